package authkit

import "errors"

var (
	// ErrDuplicateEmail is returned by CreateAccount when the normalized
	// email address is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. The two cases are intentionally indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountUnverified is returned when a login is attempted before the
	// email address has been verified.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrMFARequired is returned when the account has MFA enabled and the
	// login attempt presented no second factor.
	ErrMFARequired = errors.New("second factor required")
	// ErrMFAEnrollmentRequired is returned when the deployment mandates MFA
	// and the account has not enrolled a method yet.
	ErrMFAEnrollmentRequired = errors.New("mfa enrollment required")
	// ErrInvalidFactor is returned when the presented second factor fails
	// validation during login.
	ErrInvalidFactor = errors.New("invalid second factor")
	// ErrInvalidCode is returned when a verification or enrollment code does
	// not match the outstanding ephemeral secret, or the secret expired.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrAlreadyVerified is returned by ResendEmailVerification when the
	// account's email address is already verified.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrAlreadyEnrolled is returned when MFA enrollment is started for an
	// account that already has an active MFA method.
	ErrAlreadyEnrolled = errors.New("mfa method already enrolled")
	// ErrMFANotEnrolled indicates an MFA operation on an account with no
	// enrolled method or stored secret. This is a caller contract violation,
	// not a user-recoverable outcome.
	ErrMFANotEnrolled = errors.New("no mfa method enrolled")
	// ErrInvalidEmail is returned by CreateAccount when the address does not
	// parse as an email address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordPolicy is returned by CreateAccount when the password is
	// shorter than the minimum length.
	ErrPasswordPolicy = errors.New("password does not meet policy")
	// ErrInvalidPhoneNumber is returned by BeginSMSEnrollment when the number
	// is not in E.164 form.
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	// ErrDeliveryFailed is returned when the email or SMS channel could not
	// deliver a code. The stored secret survives; the caller can resend.
	ErrDeliveryFailed = errors.New("code delivery failed")

	// ErrAccountNotFound is returned by Store implementations when no record
	// exists for the given email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrVersionConflict is returned by Store.Put when the record changed
	// since it was read. Engine operations retry on it internally.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrStoreUnavailable wraps storage connectivity failures. These are
	// fatal-class and surfaced unchanged for logging.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on an
	// engine missing a required collaborator.
	ErrEngineNotReady = errors.New("engine not initialized")
)
