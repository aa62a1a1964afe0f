package models

import "time"

// Role values stored on the user record. New accounts always start as
// RoleUser; RoleAdmin is only assigned out of band.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the account record. Email and Mobile are unique across the
// keyspace; the mapping tables in the Scylla layer are the enforcement
// point. Credential digests are never serialized in responses.
type User struct {
	UserBucket int    `db:"user_bucket" json:"-"`
	UserID     string `db:"user_id" json:"id"`
	FullName   string `db:"full_name" json:"fullName"`
	Email      string `db:"email" json:"email"`
	Mobile     string `db:"mobile" json:"mobile"`

	PasswordHash       string `db:"password_hash" json:"-"`
	TransactionPinHash string `db:"transaction_pin_hash" json:"-"`

	IsEmailVerified bool       `db:"is_email_verified" json:"isEmailVerified"`
	OTPHash         string     `db:"otp_hash" json:"-"`
	OTPExpires      *time.Time `db:"otp_expires" json:"-"`

	Role      string     `db:"role" json:"role"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// HasPendingOTP reports whether an OTP slot is populated. Both fields must
// be set; expiry itself is checked at verification time.
func (u *User) HasPendingOTP() bool {
	return u.OTPHash != "" && u.OTPExpires != nil
}

// ClearOTP empties the single OTP slot. Callers persist the user afterwards.
func (u *User) ClearOTP() {
	u.OTPHash = ""
	u.OTPExpires = nil
}
