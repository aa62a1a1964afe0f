package service

import "errors"

var (
	ErrEmailTaken       = errors.New("email already taken")
	ErrMobileTaken      = errors.New("mobile number already taken")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailNotFound    = errors.New("no user found with this email")
	ErrInvalidCredentials = errors.New("incorrect email or password")

	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")

	ErrOTPMissing  = errors.New("no verification code pending")
	ErrOTPExpired  = errors.New("verification code expired")
	ErrOTPMismatch = errors.New("incorrect verification code")

	ErrWrongPassword    = errors.New("current password is incorrect")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPinMismatch      = errors.New("pins do not match")
	ErrInvalidPin       = errors.New("pin must be 4 digits")

	ErrForbidden = errors.New("not allowed to perform this action")
)
