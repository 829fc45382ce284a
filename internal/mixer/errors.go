package mixer

import "errors"

// Every rejection the pool can produce. Failures are synchronous and
// atomic at the call boundary: a rejected deposit or withdrawal leaves
// all stores untouched.
var (
	ErrInvalidDenomination  = errors.New("invalid denomination")
	ErrDuplicateCommitment  = errors.New("commitment already exists")
	ErrUnknownCommitment    = errors.New("unknown commitment")
	ErrInvalidAuthorization = errors.New("invalid authorization")
	ErrTokenAlreadySpent    = errors.New("token already spent")
	ErrWithdrawalTooEarly   = errors.New("withdrawal too early")
	ErrUnauthorized         = errors.New("caller is not the pool owner")
	ErrFeeTooHigh           = errors.New("fee exceeds maximum basis points")
	ErrAlreadyInitialized   = errors.New("pool already initialized")
	ErrNotInitialized       = errors.New("pool not initialized")
)
