package authkit

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"regexp"

	"github.com/bba-labs/authkit/internal"
)

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// BeginSMSEnrollment starts SMS enrollment for a verified account by sending
// a one-time code to phoneNumber. In local mode the engine generates the code,
// commits it, and then transmits it; the returned correlation token is empty.
// In hosted mode the provider generates and tracks the code remotely and the
// returned correlation token identifies the outstanding challenge.
//
// The phone number is held in the ephemeral slot and only promoted onto the
// account when ConfirmSMSEnrollment succeeds.
func (e *Engine) BeginSMSEnrollment(ctx context.Context, email, phoneNumber string) (string, error) {
	if e == nil || e.store == nil || e.sms == nil {
		return "", ErrEngineNotReady
	}
	email = normalizeEmail(email)

	if !phonePattern.MatchString(phoneNumber) {
		return "", ErrInvalidPhoneNumber
	}

	if e.config.SMS.Mode == SMSModeHosted {
		return e.beginHostedSMS(ctx, email, phoneNumber, SlotSMSEnrollment)
	}
	return "", e.beginLocalSMS(ctx, email, phoneNumber, SlotSMSEnrollment)
}

// ConfirmSMSEnrollment consumes the outstanding SMS enrollment challenge. A
// local code is compared directly; a hosted challenge is validated through the
// provider using the stored correlation token. On success the pending phone
// number is promoted onto the account and SMS becomes the active MFA method.
// An account with an active method fails with ErrAlreadyEnrolled: switching
// methods goes through DisableMFA first.
func (e *Engine) ConfirmSMSEnrollment(ctx context.Context, email, code string) error {
	if e == nil || e.store == nil || e.sms == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	match, err := e.checkSMSSlot(ctx, email, SlotSMSEnrollment, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			e.emitAudit(ctx, auditEventSMSEnrollConfirmed, false, "", email, err, nil)
		}
		return err
	}

	account, err := e.updateAccount(ctx, email, func(a *Account) error {
		if a.MFAEnabled {
			return ErrAlreadyEnrolled
		}
		// Guard against the slot changing between validation and consumption.
		if a.Slot.Purpose != SlotSMSEnrollment || a.Slot.Value != match.value {
			return ErrInvalidCode
		}
		a.PhoneNumber = a.Slot.Phone
		a.Slot = EphemeralSlot{}
		a.MFAMethod = MFASMS
		a.MFAEnabled = true
		a.State = StateMFAActive
		a.TOTPSecret = ""
		a.TOTPLastCounter = 0
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			e.emitAudit(ctx, auditEventSMSEnrollConfirmed, false, "", email, err, nil)
		}
		return err
	}

	e.metricInc(MetricSMSEnrollConfirmed)
	e.emitAudit(ctx, auditEventSMSEnrollConfirmed, true, account.ID, email, nil, func() map[string]string {
		return map[string]string{"phone": account.PhoneNumber}
	})
	return nil
}

// BeginSMSLogin sends a login one-time code to the enrolled phone number of an
// SMS-MFA account. It requires valid credentials so that the SMS channel
// cannot be driven by someone who only knows the email address. The code (or
// hosted correlation token) lands in the ephemeral slot and is consumed by
// AttemptLogin's factor check.
func (e *Engine) BeginSMSLogin(ctx context.Context, email, plainPassword string) error {
	if e == nil || e.store == nil || e.sms == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	account, err := e.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	ok, err := e.passwordHash.Verify(plainPassword, account.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	if !account.Verified {
		return ErrAccountUnverified
	}
	if !account.MFAEnabled || account.MFAMethod != MFASMS {
		return ErrMFANotEnrolled
	}

	var sendErr error
	if e.config.SMS.Mode == SMSModeHosted {
		_, sendErr = e.beginHostedSMS(ctx, email, account.PhoneNumber, SlotSMSLogin)
	} else {
		sendErr = e.beginLocalSMS(ctx, email, account.PhoneNumber, SlotSMSLogin)
	}
	if sendErr != nil {
		return sendErr
	}

	e.emitAudit(ctx, auditEventSMSLoginCodeRequested, true, account.ID, email, nil, nil)
	return nil
}

// DisableMFA clears the account's second factor and returns it to the
// enrollment gate: StateEmailVerified under optional MFA, StateMFAPending
// under mandatory MFA. Calling it on an account without an active method is a
// no-op, and unverified accounts are left untouched.
func (e *Engine) DisableMFA(ctx context.Context, email string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	var cleared bool
	account, err := e.updateAccount(ctx, email, func(a *Account) error {
		cleared = a.MFAEnabled
		a.MFAMethod = MFANone
		a.MFAEnabled = false
		a.TOTPSecret = ""
		a.TOTPLastCounter = 0
		a.PhoneNumber = ""
		if a.Slot.Purpose == SlotSMSEnrollment || a.Slot.Purpose == SlotSMSLogin {
			a.Slot = EphemeralSlot{}
		}
		if a.Verified {
			if e.config.MFA.Mode == MFAMandatory {
				a.State = StateMFAPending
			} else {
				a.State = StateEmailVerified
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if cleared {
		e.metricInc(MetricMFADisabled)
		e.emitAudit(ctx, auditEventMFADisabled, true, account.ID, email, nil, nil)
	}
	return nil
}

// beginHostedSMS asks the provider to generate and deliver a code, then
// stores the returned correlation token. The provider call happens before the
// write: a failed request leaves no challenge behind.
func (e *Engine) beginHostedSMS(ctx context.Context, email, phoneNumber string, purpose SlotPurpose) (string, error) {
	account, err := e.requireEnrollable(ctx, email, purpose)
	if err != nil {
		return "", err
	}

	sendCtx, cancel := e.deliveryContext(ctx)
	token, err := e.sms.SendCode(sendCtx, phoneNumber, "")
	cancel()
	if err != nil || token == "" {
		log.Printf("authkit: hosted sms request for %s failed: %v", email, err)
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventDeliveryFailure, false, account.ID, email, ErrDeliveryFailed, func() map[string]string {
			return map[string]string{"channel": "sms"}
		})
		return "", ErrDeliveryFailed
	}

	_, err = e.updateAccount(ctx, email, func(a *Account) error {
		a.Slot = EphemeralSlot{
			Purpose:          purpose,
			Value:            token,
			CorrelationToken: true,
			Phone:            phoneNumber,
			ExpiresAt:        e.clock().Add(e.config.SMS.CodeTTL).Unix(),
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if purpose == SlotSMSEnrollment {
		e.metricInc(MetricSMSEnrollStarted)
		e.emitAudit(ctx, auditEventSMSEnrollStarted, true, account.ID, email, nil, nil)
	}
	return token, nil
}

// beginLocalSMS generates a code, commits it, then transmits it. Delivery
// failure is surfaced but the committed code survives for a retried send.
func (e *Engine) beginLocalSMS(ctx context.Context, email, phoneNumber string, purpose SlotPurpose) error {
	if _, err := e.requireEnrollable(ctx, email, purpose); err != nil {
		return err
	}

	code, err := internal.NewNumericCode(e.config.SMS.CodeDigits)
	if err != nil {
		return err
	}

	account, err := e.updateAccount(ctx, email, func(a *Account) error {
		a.Slot = EphemeralSlot{
			Purpose:   purpose,
			Value:     code,
			Phone:     phoneNumber,
			ExpiresAt: e.clock().Add(e.config.SMS.CodeTTL).Unix(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	if purpose == SlotSMSEnrollment {
		e.metricInc(MetricSMSEnrollStarted)
		e.emitAudit(ctx, auditEventSMSEnrollStarted, true, account.ID, email, nil, nil)
	}

	sendCtx, cancel := e.deliveryContext(ctx)
	defer cancel()
	if _, err := e.sms.SendCode(sendCtx, phoneNumber, code); err != nil {
		log.Printf("authkit: sms code to %s failed: %v", email, err)
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventDeliveryFailure, false, account.ID, email, ErrDeliveryFailed, func() map[string]string {
			return map[string]string{"channel": "sms"}
		})
		return ErrDeliveryFailed
	}
	return nil
}

// requireEnrollable enforces the state preconditions shared by the SMS begin
// paths without mutating the account, and returns the loaded record.
func (e *Engine) requireEnrollable(ctx context.Context, email string, purpose SlotPurpose) (*Account, error) {
	account, err := e.store.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if !account.Verified {
		return nil, ErrAccountUnverified
	}
	if purpose == SlotSMSEnrollment && account.MFAEnabled {
		return nil, ErrAlreadyEnrolled
	}
	return account, nil
}

type smsSlotMatch struct {
	value string
}

// checkSMSSlot validates code against the outstanding slot of the given
// purpose. Hosted challenges go to the provider; local codes are compared in
// constant time. An expired slot is cleared and rejected. The returned match
// carries the slot value so the caller can guard its consuming write.
func (e *Engine) checkSMSSlot(ctx context.Context, email string, purpose SlotPurpose, code string) (*smsSlotMatch, error) {
	account, err := e.store.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	slot := account.Slot
	if slot.Purpose != purpose {
		return nil, ErrInvalidCode
	}
	if slot.Expired(e.clock()) {
		_, _ = e.updateAccount(ctx, email, func(a *Account) error {
			if a.Slot.Purpose == purpose && a.Slot.Value == slot.Value {
				a.Slot = EphemeralSlot{}
			}
			return nil
		})
		return nil, ErrInvalidCode
	}

	if slot.CorrelationToken {
		checkCtx, cancel := e.deliveryContext(ctx)
		ok, err := e.sms.CheckCode(checkCtx, slot.Value, code)
		cancel()
		if err != nil {
			return nil, ErrDeliveryFailed
		}
		if !ok {
			return nil, ErrInvalidCode
		}
		return &smsSlotMatch{value: slot.Value}, nil
	}

	if subtle.ConstantTimeCompare([]byte(slot.Value), []byte(code)) != 1 {
		return nil, ErrInvalidCode
	}
	return &smsSlotMatch{value: slot.Value}, nil
}
