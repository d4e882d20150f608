package authkit

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventAccountCreated        = "account_created"
	auditEventAccountDuplicate      = "account_creation_duplicate"
	auditEventEmailVerifyConfirm    = "email_verification_confirm"
	auditEventEmailVerifyResend     = "email_verification_resend"
	auditEventTOTPEnrollStarted     = "totp_enrollment_started"
	auditEventTOTPEnrollConfirmed   = "totp_enrollment_confirmed"
	auditEventSMSEnrollStarted      = "sms_enrollment_started"
	auditEventSMSEnrollConfirmed    = "sms_enrollment_confirmed"
	auditEventSMSLoginCodeRequested = "sms_login_code_requested"
	auditEventMFADisabled           = "mfa_disabled"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginMFARequired      = "login_mfa_required"
	auditEventDeliveryFailure       = "delivery_failure"
)

// AuditErrorCode is the stable machine-readable error label carried in
// AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrDuplicate          AuditErrorCode = "duplicate_email"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUnverified         AuditErrorCode = "account_unverified"
	auditErrMFARequired        AuditErrorCode = "mfa_required"
	auditErrEnrollmentRequired AuditErrorCode = "mfa_enrollment_required"
	auditErrInvalidFactor      AuditErrorCode = "invalid_factor"
	auditErrInvalidCode        AuditErrorCode = "invalid_code"
	auditErrAlreadyVerified    AuditErrorCode = "already_verified"
	auditErrAlreadyEnrolled    AuditErrorCode = "already_enrolled"
	auditErrNotEnrolled        AuditErrorCode = "not_enrolled"
	auditErrInvalidEmail       AuditErrorCode = "invalid_email"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrInvalidPhone       AuditErrorCode = "invalid_phone_number"
	auditErrDelivery           AuditErrorCode = "delivery_failed"
	auditErrNotFound           AuditErrorCode = "account_not_found"
	auditErrConflict           AuditErrorCode = "version_conflict"
	auditErrUnavailable        AuditErrorCode = "store_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		Email:     email,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountUnverified):
		return auditErrUnverified
	case errors.Is(err, ErrMFARequired):
		return auditErrMFARequired
	case errors.Is(err, ErrMFAEnrollmentRequired):
		return auditErrEnrollmentRequired
	case errors.Is(err, ErrInvalidFactor):
		return auditErrInvalidFactor
	case errors.Is(err, ErrInvalidCode):
		return auditErrInvalidCode
	case errors.Is(err, ErrAlreadyVerified):
		return auditErrAlreadyVerified
	case errors.Is(err, ErrAlreadyEnrolled):
		return auditErrAlreadyEnrolled
	case errors.Is(err, ErrMFANotEnrolled):
		return auditErrNotEnrolled
	case errors.Is(err, ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrInvalidPhoneNumber):
		return auditErrInvalidPhone
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDelivery
	case errors.Is(err, ErrAccountNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrVersionConflict):
		return auditErrConflict
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
