package models

import "time"

// Token purposes. A token is only redeemable for the purpose it was issued
// with; cross-purpose verification always fails.
const (
	PurposeAccess            = "access"
	PurposeRefresh           = "refresh"
	PurposeOTP               = "otp"
	PurposeEmailVerification = "email_verification"
	PurposeResetPassword     = "reset_password"
)

// Token mirrors one signed credential in the store. The signed string itself
// is the lookup key; the record exists so a token can be revoked or consumed
// before its embedded expiry.
type Token struct {
	Token       string    `db:"token" json:"token"`
	UserID      string    `db:"user_id" json:"userId"`
	Purpose     string    `db:"purpose" json:"purpose"`
	ExpiresAt   time.Time `db:"expires_at" json:"expiresAt"`
	Blacklisted bool      `db:"blacklisted" json:"blacklisted"`
	Used        bool      `db:"used" json:"used"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// ValidPurpose reports whether p is one of the known token purposes.
func ValidPurpose(p string) bool {
	switch p {
	case PurposeAccess, PurposeRefresh, PurposeOTP, PurposeEmailVerification, PurposeResetPassword:
		return true
	}
	return false
}
