package domain

import "time"

// AccessToken is the opaque bearer token minted when a code is redeemed.
type AccessToken struct {
	ID              string
	TokenHash       string // deterministic fingerprint (base64url SHA-256)
	CodeHash        string
	CNonce          string
	CNonceExpiresAt time.Time
	CreatedAt       time.Time
	ExpiresAt       time.Time
	UsedAt          *time.Time
}

func (t AccessToken) Used() bool { return t.UsedAt != nil }

func (t AccessToken) Expired(now time.Time) bool { return now.After(t.ExpiresAt) }
