package domain

import "time"

// CodeState is the lifecycle position of a pre-authorized code.
type CodeState string

const (
	CodeStateIssued   CodeState = "ISSUED"
	CodeStateRedeemed CodeState = "REDEEMED"
	CodeStateConsumed CodeState = "CONSUMED"
	CodeStateExpired  CodeState = "EXPIRED"
)

// CanTransition reports whether s may move to next. Transitions only ever
// move forward.
func (s CodeState) CanTransition(next CodeState) bool {
	switch s {
	case CodeStateIssued:
		return next == CodeStateRedeemed || next == CodeStateExpired
	case CodeStateRedeemed:
		return next == CodeStateConsumed || next == CodeStateExpired
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s CodeState) Terminal() bool {
	return s == CodeStateConsumed || s == CodeStateExpired
}

func (s CodeState) Valid() bool {
	switch s {
	case CodeStateIssued, CodeStateRedeemed, CodeStateConsumed, CodeStateExpired:
		return true
	}
	return false
}

// PreAuthCode is a single-use pre-authorized code grant. Only the
// fingerprint of the code is stored; the plain value leaves the issuer once,
// inside the credential offer.
type PreAuthCode struct {
	ID             string
	CodeHash       string
	TxCodeHash     string // argon2id PHC string, empty when no tx_code was set
	CredentialType string
	State          CodeState
	CreatedAt      time.Time
	ExpiresAt      time.Time
	RedeemedAt     *time.Time
	ConsumedAt     *time.Time
}

// HasTxCode reports whether the offer carried a transaction code.
func (c PreAuthCode) HasTxCode() bool { return c.TxCodeHash != "" }

// Expired reports whether now is past the code's expiry.
func (c PreAuthCode) Expired(now time.Time) bool { return now.After(c.ExpiresAt) }
