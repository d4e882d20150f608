package authkit

import (
	"context"
	"errors"
	"log"

	"github.com/bba-labs/authkit/internal"
)

// BeginTOTPEnrollment provisions a TOTP secret for a verified account and
// emails setup instructions. Enrollment is resumable: when a secret already
// exists but MFA is not yet enabled, the same secret and URI are returned
// instead of regenerating, so an abandoned setup can continue with the
// original QR code.
func (e *Engine) BeginTOTPEnrollment(ctx context.Context, email string) (*TOTPEnrollment, error) {
	if e == nil || e.store == nil || e.email == nil {
		return nil, ErrEngineNotReady
	}
	email = normalizeEmail(email)

	var secret string
	account, err := e.updateAccount(ctx, email, func(a *Account) error {
		if !a.Verified {
			return ErrAccountUnverified
		}
		if a.MFAEnabled {
			return ErrAlreadyEnrolled
		}
		if a.TOTPSecret == "" {
			s, err := internal.NewBase32Secret(e.config.TOTP.SecretBytes)
			if err != nil {
				return err
			}
			a.TOTPSecret = s
		}
		secret = a.TOTPSecret
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricTOTPEnrollStarted)
	e.emitAudit(ctx, auditEventTOTPEnrollStarted, true, account.ID, email, nil, nil)

	enrollment := &TOTPEnrollment{
		Secret:          secret,
		ProvisioningURI: e.totp.ProvisionURI(secret, email),
	}

	sendCtx, cancel := e.deliveryContext(ctx)
	defer cancel()
	if err := e.email.SendTOTPSetup(sendCtx, email, enrollment.Secret, enrollment.ProvisioningURI); err != nil {
		log.Printf("authkit: totp setup email to %s failed: %v", email, err)
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventDeliveryFailure, false, account.ID, email, ErrDeliveryFailed, func() map[string]string {
			return map[string]string{"channel": "email"}
		})
		return enrollment, ErrDeliveryFailed
	}

	return enrollment, nil
}

// ConfirmTOTPEnrollment validates a code against the provisioned secret and,
// on success, activates TOTP as the account's MFA method. The matched time
// step is recorded so the same code cannot later pass the login gate.
func (e *Engine) ConfirmTOTPEnrollment(ctx context.Context, email, code string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	account, err := e.updateAccount(ctx, email, func(a *Account) error {
		if a.TOTPSecret == "" {
			return ErrMFANotEnrolled
		}
		if a.MFAEnabled {
			return ErrAlreadyEnrolled
		}

		ok, counter, err := e.totp.VerifyCode(a.TOTPSecret, code, e.clock())
		if err != nil {
			return err
		}
		if !ok || counter <= a.TOTPLastCounter {
			return ErrInvalidCode
		}

		a.MFAMethod = MFATOTP
		a.MFAEnabled = true
		a.State = StateMFAActive
		a.TOTPLastCounter = counter
		// An abandoned SMS enrollment must not stay consumable once another
		// method is active.
		if a.Slot.Purpose == SlotSMSEnrollment || a.Slot.Purpose == SlotSMSLogin {
			a.Slot = EphemeralSlot{}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			e.emitAudit(ctx, auditEventTOTPEnrollConfirmed, false, "", email, err, nil)
		}
		return err
	}

	e.metricInc(MetricTOTPEnrollConfirmed)
	e.emitAudit(ctx, auditEventTOTPEnrollConfirmed, true, account.ID, email, nil, nil)
	return nil
}
