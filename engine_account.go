package authkit

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/mail"

	"github.com/google/uuid"

	"github.com/bba-labs/authkit/internal"
)

const minPasswordLength = 8

// CreateAccount registers a new account in StateUnverified and emails it a
// verification code. The account is committed before delivery is attempted:
// when the email channel fails, the account and its stored code survive and
// the call returns the created account together with ErrDeliveryFailed, so
// the caller can fall back to ResendEmailVerification.
func (e *Engine) CreateAccount(ctx context.Context, email, plainPassword string) (*Account, error) {
	if e == nil || e.store == nil || e.email == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(plainPassword) < minPasswordLength {
		return nil, ErrPasswordPolicy
	}

	hash, err := e.passwordHash.Hash(plainPassword)
	if err != nil {
		return nil, err
	}

	code, err := internal.NewNumericCode(e.config.EmailVerification.CodeDigits)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	account := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		State:        StateUnverified,
		Slot: EphemeralSlot{
			Purpose:   SlotEmailVerification,
			Value:     code,
			ExpiresAt: now.Add(e.config.EmailVerification.CodeTTL).Unix(),
		},
		CreatedAt: now.Unix(),
	}

	if err := e.store.Put(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metricInc(MetricAccountDuplicate)
			e.emitAudit(ctx, auditEventAccountDuplicate, false, "", email, err, nil)
		}
		return nil, err
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, account.ID, email, nil, nil)

	if err := e.sendVerificationCode(ctx, account, code); err != nil {
		return account, ErrDeliveryFailed
	}
	return account, nil
}

// VerifyEmail consumes the outstanding email verification code. On success
// the slot is cleared and the account moves to StateEmailVerified, or to
// StateMFAPending when the deployment mandates a second factor. Expired codes
// are cleared and rejected; a mismatched code leaves the stored code intact.
// Repeating the call after a successful verification fails with
// ErrInvalidCode: the code was consumed along with the slot.
func (e *Engine) VerifyEmail(ctx context.Context, email, code string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	account, err := e.updateAccount(ctx, email, func(a *Account) error {
		if a.Verified {
			return ErrInvalidCode
		}
		if a.Slot.Purpose != SlotEmailVerification {
			return ErrInvalidCode
		}

		now := e.clock()
		if a.Slot.Expired(now) {
			a.Slot = EphemeralSlot{}
			return nil // committed below; rejection follows the write
		}
		if subtle.ConstantTimeCompare([]byte(a.Slot.Value), []byte(code)) != 1 {
			return ErrInvalidCode
		}

		a.Slot = EphemeralSlot{}
		a.Verified = true
		a.VerifiedAt = now.Unix()
		if e.config.MFA.Mode == MFAMandatory {
			a.State = StateMFAPending
		} else {
			a.State = StateEmailVerified
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			e.metricInc(MetricEmailVerifyFailure)
			e.emitAudit(ctx, auditEventEmailVerifyConfirm, false, "", email, err, nil)
		}
		return err
	}

	// The expired-slot path clears the slot, commits, then rejects.
	if !account.Verified {
		e.metricInc(MetricEmailVerifyFailure)
		e.emitAudit(ctx, auditEventEmailVerifyConfirm, false, account.ID, email, ErrInvalidCode, nil)
		return ErrInvalidCode
	}

	e.metricInc(MetricEmailVerifySuccess)
	e.emitAudit(ctx, auditEventEmailVerifyConfirm, true, account.ID, email, nil, func() map[string]string {
		return map[string]string{"state": account.State.String()}
	})
	return nil
}

// ResendEmailVerification issues a fresh verification code, unconditionally
// replacing any outstanding one, and emails it. The new code is committed
// before delivery is attempted.
func (e *Engine) ResendEmailVerification(ctx context.Context, email string) error {
	if e == nil || e.store == nil || e.email == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	code, err := internal.NewNumericCode(e.config.EmailVerification.CodeDigits)
	if err != nil {
		return err
	}

	account, err := e.updateAccount(ctx, email, func(a *Account) error {
		if a.Verified {
			return ErrAlreadyVerified
		}
		a.Slot = EphemeralSlot{
			Purpose:   SlotEmailVerification,
			Value:     code,
			ExpiresAt: e.clock().Add(e.config.EmailVerification.CodeTTL).Unix(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.metricInc(MetricEmailResend)
	e.emitAudit(ctx, auditEventEmailVerifyResend, true, account.ID, email, nil, nil)

	return e.sendVerificationCode(ctx, account, code)
}

func (e *Engine) sendVerificationCode(ctx context.Context, account *Account, code string) error {
	sendCtx, cancel := e.deliveryContext(ctx)
	defer cancel()

	if err := e.email.SendVerificationCode(sendCtx, account.Email, code); err != nil {
		log.Printf("authkit: verification email to %s failed: %v", account.Email, err)
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventDeliveryFailure, false, account.ID, account.Email, ErrDeliveryFailed, func() map[string]string {
			return map[string]string{"channel": "email"}
		})
		return ErrDeliveryFailed
	}
	return nil
}
