package authkit

import (
	"context"
	"time"
)

// AccountState represents the position of an account in the verification and
// MFA pipeline. States only move forward; the single backward edge is
// DisableMFA, which drops an account from StateMFAActive back to the
// enrollment gate.
type AccountState uint8

const (
	// StateUnverified is the state of a freshly created account.
	StateUnverified AccountState = iota
	// StateEmailVerified means the email-verification code was consumed.
	StateEmailVerified
	// StateMFAPending applies only when the deployment mandates MFA: the
	// email is verified but no second factor is enrolled yet.
	StateMFAPending
	// StateMFAActive means a second factor is enrolled and enforced.
	StateMFAActive
)

func (s AccountState) String() string {
	switch s {
	case StateUnverified:
		return "unverified"
	case StateEmailVerified:
		return "email_verified"
	case StateMFAPending:
		return "mfa_pending"
	case StateMFAActive:
		return "mfa_active"
	default:
		return "unknown"
	}
}

// MFAMethod identifies the single active second-factor method of an account.
// One method at a time; enrolling a new method requires disabling the old one.
type MFAMethod uint8

const (
	// MFANone means no second factor is configured.
	MFANone MFAMethod = iota
	// MFATOTP is an authenticator-app time-based one-time password.
	MFATOTP
	// MFASMS is a carrier SMS one-time code.
	MFASMS
)

func (m MFAMethod) String() string {
	switch m {
	case MFATOTP:
		return "totp"
	case MFASMS:
		return "sms"
	default:
		return "none"
	}
}

// SlotPurpose tags the outstanding ephemeral secret of an account.
type SlotPurpose uint8

const (
	// SlotNone means the slot is empty.
	SlotNone SlotPurpose = iota
	// SlotEmailVerification holds the emailed 6-digit verification code.
	SlotEmailVerification
	// SlotSMSEnrollment holds either a locally generated SMS code or a
	// hosted-OTP correlation token issued during SMS enrollment.
	SlotSMSEnrollment
	// SlotSMSLogin holds the SMS code or correlation token of an in-flight
	// SMS login challenge.
	SlotSMSLogin
)

// EphemeralSlot is the single outstanding short-lived secret of an account.
// Issuing a new secret overwrites the slot unconditionally; consuming or
// expiring it clears the slot. It is never read twice.
type EphemeralSlot struct {
	Purpose SlotPurpose `json:"purpose"`
	// Value is either a plaintext one-time code (compared locally) or an
	// opaque provider correlation token (presented back to the provider).
	Value string `json:"value,omitempty"`
	// CorrelationToken is true when Value must be validated through
	// SMSSender.CheckCode rather than compared locally.
	CorrelationToken bool `json:"correlation_token,omitempty"`
	// Phone carries the phone number under enrollment until it is promoted
	// onto the account by ConfirmSMSEnrollment.
	Phone     string `json:"phone,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// Empty reports whether no secret is outstanding.
func (s EphemeralSlot) Empty() bool {
	return s.Purpose == SlotNone
}

// Expired reports whether the slot's secret is past its expiry at now.
func (s EphemeralSlot) Expired(now time.Time) bool {
	return !s.Empty() && now.Unix() > s.ExpiresAt
}

// Account is the central record of the credential pipeline. It is mutated
// only through Engine operations; Store implementations persist it verbatim.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	// PasswordHash is a self-describing PHC string carrying the algorithm
	// tag, parameters, salt, and digest together.
	PasswordHash string `json:"password_hash"`

	State      AccountState `json:"state"`
	Verified   bool         `json:"verified"`
	VerifiedAt int64        `json:"verified_at,omitempty"`

	MFAMethod  MFAMethod `json:"mfa_method"`
	MFAEnabled bool      `json:"mfa_enabled"`
	// TOTPSecret is the base32 shared secret, populated only while TOTP
	// enrollment is in progress or active.
	TOTPSecret string `json:"totp_secret,omitempty"`
	// TOTPLastCounter is the highest accepted time-step counter, used to
	// reject replays of an already-consumed TOTP code at the MFA gate.
	TOTPLastCounter int64 `json:"totp_last_counter,omitempty"`
	// PhoneNumber is the E.164 number, populated only when MFAMethod is
	// MFASMS.
	PhoneNumber string `json:"phone_number,omitempty"`

	Slot EphemeralSlot `json:"slot"`

	CreatedAt int64 `json:"created_at"`
	// Version is the optimistic-concurrency counter maintained by the
	// Store. Zero means "not yet persisted".
	Version uint64 `json:"version"`
}

// Store is the durable key-value collaborator that persists account records.
// Implementations must make Put an atomic per-account compare-and-swap on
// Account.Version: a Put whose Version does not match the stored record fails
// with ErrVersionConflict, and a Put with Version zero creates the record or
// fails with ErrDuplicateEmail. On success the implementation advances
// Account.Version in place.
//
// Shipped implementations: store/memstore and store/redisstore.
type Store interface {
	Get(ctx context.Context, email string) (*Account, error)
	Put(ctx context.Context, account *Account) error
	Exists(ctx context.Context, email string) (bool, error)
}

// EmailSender is the email channel of the delivery gateway. Sends are
// fire-and-forget: the code is validated locally and failures are surfaced to
// the caller, never retried internally.
type EmailSender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendTOTPSetup(ctx context.Context, email, secret, provisioningURI string) error
}

// SMSSender is the SMS channel of the delivery gateway. Two modes exist:
//
//   - Local-OTP: the engine generates the code and passes it in; SendCode
//     returns an empty correlation ID and CheckCode is never called.
//   - Hosted-OTP: code is empty, the provider generates and tracks the code
//     remotely, SendCode returns a correlation ID, and validation goes
//     through CheckCode.
//
// The active mode is selected by Config.SMS.Mode, not by the sender.
type SMSSender interface {
	SendCode(ctx context.Context, phoneNumber, code string) (correlationID string, err error)
	CheckCode(ctx context.Context, correlationID, code string) (bool, error)
}

// TokenIssuer mints the opaque session credential returned on successful
// login. Its format is outside this package; the token subpackage ships a
// JWT-backed implementation.
type TokenIssuer interface {
	Issue(ctx context.Context, accountID string) (string, error)
}

// Session is the result of a fully successful AttemptLogin.
type Session struct {
	AccountID string
	Email     string
	Token     string
}

// TOTPEnrollment is returned by BeginTOTPEnrollment. Secret is shown to the
// user exactly once per enrollment; ProvisioningURI is the otpauth:// URI for
// QR provisioning.
type TOTPEnrollment struct {
	Secret          string
	ProvisioningURI string
}

// Clock supplies the authoritative time used for code expiry and TOTP
// validation. Defaults to time.Now.
type Clock func() time.Time
