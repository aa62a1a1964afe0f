package models

import "time"

// Auth event types published to Kafka and indexed for audit search.
const (
	EventUserRegistered  = "user_registered"
	EventUserLogin       = "user_login"
	EventLoginFailed     = "login_failed"
	EventUserLogout      = "user_logout"
	EventOTPGenerated    = "otp_generated"
	EventOTPVerified     = "otp_verified"
	EventEmailVerified   = "email_verified"
	EventPasswordChanged = "password_changed"
	EventPasswordReset   = "password_reset"
	EventPinSet          = "pin_set"
	EventProfileUpdated  = "profile_updated"
	EventTokensRefreshed = "tokens_refreshed"
)

// AuthEvent is the audit record emitted after every auth flow. Delivery is
// best-effort; a publish failure never fails the flow that produced it.
type AuthEvent struct {
	EventID     string    `json:"event_id"`
	EventBucket int       `json:"event_bucket"`
	UserID      string    `json:"user_id"`
	EventType   string    `json:"event_type"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
