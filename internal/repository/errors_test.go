package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(gorm.ErrRecordNotFound))

	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))

	pqErr := &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	assert.True(t, isUniqueViolation(pqErr))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", pqErr)))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))

	// untyped driver errors still match on the message
	assert.True(t, isUniqueViolation(errors.New(`pq: duplicate key value violates unique constraint "mixer_commitments_pkey"`)))
}
