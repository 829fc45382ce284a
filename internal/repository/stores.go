package repository

import (
	"context"

	"mixpool-backend/internal/mixer"

	"gorm.io/gorm"
)

// NewStores bundles the gorm-backed repositories as the pool engine's
// store set. Pass a transaction handle to get a bundle scoped to that
// transaction.
func NewStores(db *gorm.DB) mixer.Stores {
	return mixer.Stores{
		Commitments: NewCommitmentRepository(db),
		Spent:       NewSpentTokenRepository(db),
		Stats:       NewDenominationStatRepository(db),
		Config:      NewPoolConfigRepository(db),
		Intents:     NewTransferIntentRepository(db),
	}
}

// txRunner implements mixer.TxRunner on a gorm database: the closure
// runs against stores bound to one transaction, so an error rolls every
// write back together.
type txRunner struct {
	db *gorm.DB
}

// NewTxRunner creates a transaction runner over db
func NewTxRunner(db *gorm.DB) mixer.TxRunner {
	return &txRunner{db: db}
}

// Atomic runs fn inside a database transaction
func (r *txRunner) Atomic(ctx context.Context, fn func(s mixer.Stores) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStores(tx))
	})
}
