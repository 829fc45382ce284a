package mixer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Scheme names an authorization strategy. One scheme is active per
// deployment; requests carrying material for the other scheme are
// rejected as invalid authorization.
type Scheme string

const (
	// SchemeNullifierProof authorizes with a nullifier, the commitment
	// id and an externally produced proof binding the two.
	SchemeNullifierProof Scheme = "nullifier_proof"
	// SchemeSecretReveal authorizes by revealing the deposit secret;
	// the commitment and the spend token are both derived from it.
	SchemeSecretReveal Scheme = "secret_reveal"
)

// ParseScheme validates a configured scheme name.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeNullifierProof, SchemeSecretReveal:
		return Scheme(s), nil
	}
	return "", fmt.Errorf("unknown auth scheme %q", s)
}

// Authorization is the withdrawal credential, one variant per scheme.
type Authorization interface {
	isAuthorization()
}

// NullifierProof is the SchemeNullifierProof credential.
type NullifierProof struct {
	Nullifier  string
	Commitment string
	Proof      string
}

// SecretReveal is the SchemeSecretReveal credential. Revealing the
// secret is intentional and final: the derived withdrawal token makes
// it single-use.
type SecretReveal struct {
	Secret string
}

func (NullifierProof) isAuthorization() {}
func (SecretReveal) isAuthorization()   {}

// Grant is a validated withdrawal: the live record it targets, the
// commitment id to clear and the token to record as spent.
type Grant struct {
	CommitmentID string
	SpentToken   string
	Record       *DepositRecord
}

// Verifier validates one authorization scheme against the pool state.
// Implementations own their check order; they read the stores but never
// mutate them.
type Verifier interface {
	Scheme() Scheme
	Authorize(ctx context.Context, auth Authorization, view StoreView) (*Grant, error)
}

// NewVerifier returns the verifier for a scheme.
func NewVerifier(scheme Scheme) (Verifier, error) {
	switch scheme {
	case SchemeNullifierProof:
		return nullifierProofVerifier{}, nil
	case SchemeSecretReveal:
		return secretRevealVerifier{}, nil
	}
	return nil, fmt.Errorf("unknown auth scheme %q", scheme)
}

const (
	minProofLength      = 32
	withdrawalTokenSalt = "withdraw:"
)

// VerifyProof is the placeholder proof predicate: the proof must be at
// least 32 characters and its first character must equal the first hex
// character of SHA-256(nullifier || commitment). It leaks no secret but
// proves nothing cryptographically; a real proving scheme replaces this
// behind the Verifier interface without touching the engine.
func VerifyProof(nullifier, commitment, proof string) bool {
	if len(proof) < minProofLength {
		return false
	}
	h := sha256.New()
	h.Write([]byte(nullifier))
	h.Write([]byte(commitment))
	digest := hex.EncodeToString(h.Sum(nil))
	return proof[0] == digest[0]
}

// CommitmentFromSecret derives the commitment id a secret-reveal
// deposit is stored under: hex(SHA-256(secret)).
func CommitmentFromSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// WithdrawalTokenFromSecret derives the spend token for a revealed
// secret: hex(SHA-256("withdraw:" || secret)). The salt keeps the spend
// hash distinct from the commitment hash.
func WithdrawalTokenFromSecret(secret string) string {
	sum := sha256.Sum256([]byte(withdrawalTokenSalt + secret))
	return hex.EncodeToString(sum[:])
}

type nullifierProofVerifier struct{}

func (nullifierProofVerifier) Scheme() Scheme { return SchemeNullifierProof }

// Authorize checks, in order: the nullifier is unspent, the commitment
// is live, the proof binds the two.
func (nullifierProofVerifier) Authorize(ctx context.Context, auth Authorization, view StoreView) (*Grant, error) {
	cred, ok := auth.(NullifierProof)
	if !ok {
		return nil, ErrInvalidAuthorization
	}
	if cred.Nullifier == "" || cred.Commitment == "" {
		return nil, ErrInvalidAuthorization
	}

	spent, err := view.IsSpent(ctx, cred.Nullifier)
	if err != nil {
		return nil, err
	}
	if spent {
		return nil, ErrTokenAlreadySpent
	}

	rec, err := view.GetCommitment(ctx, cred.Commitment)
	if err != nil {
		return nil, err
	}

	if !VerifyProof(cred.Nullifier, cred.Commitment, cred.Proof) {
		return nil, ErrInvalidAuthorization
	}

	return &Grant{
		CommitmentID: cred.Commitment,
		SpentToken:   cred.Nullifier,
		Record:       rec,
	}, nil
}

type secretRevealVerifier struct{}

func (secretRevealVerifier) Scheme() Scheme { return SchemeSecretReveal }

// Authorize derives both identifiers from the secret and checks, in
// order: the withdrawal token is unspent, the commitment is live. The
// spent check comes first so a replayed secret always reads as already
// spent, never as an unknown commitment.
func (secretRevealVerifier) Authorize(ctx context.Context, auth Authorization, view StoreView) (*Grant, error) {
	cred, ok := auth.(SecretReveal)
	if !ok {
		return nil, ErrInvalidAuthorization
	}
	if cred.Secret == "" {
		return nil, ErrInvalidAuthorization
	}

	token := WithdrawalTokenFromSecret(cred.Secret)
	spent, err := view.IsSpent(ctx, token)
	if err != nil {
		return nil, err
	}
	if spent {
		return nil, ErrTokenAlreadySpent
	}

	commitment := CommitmentFromSecret(cred.Secret)
	rec, err := view.GetCommitment(ctx, commitment)
	if err != nil {
		return nil, err
	}

	return &Grant{
		CommitmentID: commitment,
		SpentToken:   token,
		Record:       rec,
	}, nil
}
