package authkit

import (
	"context"
	"errors"
	"time"
)

// AttemptLogin runs the full login decision tree: credentials, verification
// status, deployment MFA policy, then the second factor. Each step
// short-circuits with the most specific applicable error, and an unknown
// email is indistinguishable from a wrong password. factor is the presented
// second factor; pass an empty string when the caller has none, which yields
// ErrMFARequired on MFA-enabled accounts.
//
// For SMS accounts the factor consumes the challenge stored by BeginSMSLogin.
// For TOTP accounts the matched time step is persisted so the same code is
// rejected if replayed.
func (e *Engine) AttemptLogin(ctx context.Context, email, plainPassword, factor string) (*Session, error) {
	if e == nil || e.store == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}
	}()

	email = normalizeEmail(email)

	account, err := e.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := e.passwordHash.Verify(plainPassword, account.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, email, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if !account.Verified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, email, ErrAccountUnverified, nil)
		return nil, ErrAccountUnverified
	}

	if e.config.MFA.Mode == MFAMandatory && !account.MFAEnabled {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, email, ErrMFAEnrollmentRequired, nil)
		return nil, ErrMFAEnrollmentRequired
	}

	if account.MFAEnabled {
		if factor == "" {
			e.metricInc(MetricLoginMFARequired)
			e.emitAudit(ctx, auditEventLoginMFARequired, false, account.ID, email, ErrMFARequired, nil)
			return nil, ErrMFARequired
		}
		if err := e.validateLoginFactor(ctx, account, factor); err != nil {
			if errors.Is(err, ErrInvalidFactor) {
				e.metricInc(MetricLoginInvalidFactor)
				e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, email, err, func() map[string]string {
					return map[string]string{"method": account.MFAMethod.String()}
				})
			}
			return nil, err
		}
	}

	token, err := e.tokens.Issue(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, email, nil, func() map[string]string {
		return map[string]string{"mfa": account.MFAMethod.String()}
	})

	return &Session{
		AccountID: account.ID,
		Email:     account.Email,
		Token:     token,
	}, nil
}

// validateLoginFactor checks the presented second factor against the
// account's active method. Validation failures of any shape collapse into
// ErrInvalidFactor; only infrastructure errors pass through distinct.
func (e *Engine) validateLoginFactor(ctx context.Context, account *Account, factor string) error {
	switch account.MFAMethod {
	case MFATOTP:
		return e.validateTOTPFactor(ctx, account, factor)
	case MFASMS:
		return e.validateSMSFactor(ctx, account, factor)
	default:
		return ErrMFANotEnrolled
	}
}

func (e *Engine) validateTOTPFactor(ctx context.Context, account *Account, factor string) error {
	if account.TOTPSecret == "" {
		return ErrMFANotEnrolled
	}

	ok, counter, err := e.totp.VerifyCode(account.TOTPSecret, factor, e.clock())
	if err != nil {
		return err
	}
	if !ok || counter <= account.TOTPLastCounter {
		return ErrInvalidFactor
	}

	// Persist the consumed time step so the same code cannot be replayed.
	_, err = e.updateAccount(ctx, account.Email, func(a *Account) error {
		if counter <= a.TOTPLastCounter {
			return ErrInvalidFactor
		}
		a.TOTPLastCounter = counter
		return nil
	})
	return err
}

func (e *Engine) validateSMSFactor(ctx context.Context, account *Account, factor string) error {
	// The account may come from a shared store even when this process was
	// built without an SMS channel.
	if e.sms == nil {
		return ErrEngineNotReady
	}

	match, err := e.checkSMSSlot(ctx, account.Email, SlotSMSLogin, factor)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return ErrInvalidFactor
		}
		return err
	}

	_, err = e.updateAccount(ctx, account.Email, func(a *Account) error {
		if a.Slot.Purpose != SlotSMSLogin || a.Slot.Value != match.value {
			return ErrInvalidFactor
		}
		a.Slot = EphemeralSlot{}
		return nil
	})
	return err
}
