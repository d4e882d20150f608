package authkit

import (
	"errors"
	"strings"
	"time"
)

// MFAMode controls whether a second factor is optional or mandatory for the
// whole deployment.
type MFAMode int

const (
	// MFAOptional lets verified accounts log in without a second factor
	// until they explicitly enroll one.
	MFAOptional MFAMode = iota
	// MFAMandatory blocks login for verified accounts until a second factor
	// is enrolled; VerifyEmail parks such accounts in StateMFAPending.
	MFAMandatory
)

// SMSMode selects how SMS one-time codes are generated and validated.
type SMSMode int

const (
	// SMSModeLocal generates the code in-process and uses the SMS channel
	// purely for transmission; validation is a local comparison.
	SMSModeLocal SMSMode = iota
	// SMSModeHosted delegates code generation and validation to the
	// provider; the engine stores only the returned correlation token.
	SMSModeHosted
)

// EmailVerificationConfig governs the emailed verification code.
type EmailVerificationConfig struct {
	CodeDigits int
	CodeTTL    time.Duration
}

// TOTPConfig carries the RFC 6238 parameters used for enrollment and
// validation.
type TOTPConfig struct {
	Issuer      string
	Digits      int
	Period      int
	Skew        int
	Algorithm   string
	SecretBytes int
}

// SMSConfig governs the SMS channel for enrollment and login codes.
type SMSConfig struct {
	Mode       SMSMode
	CodeDigits int
	CodeTTL    time.Duration
}

// MFAConfig selects the deployment-wide MFA policy.
type MFAConfig struct {
	Mode MFAMode
}

// PasswordConfig carries the argon2id parameters.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DeliveryConfig bounds every outbound gateway call. A timeout is treated as
// an ordinary delivery failure.
type DeliveryConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config is the full engine configuration. Obtain a baseline from
// DefaultConfig and override fields before passing it to Builder.WithConfig.
type Config struct {
	EmailVerification EmailVerificationConfig
	TOTP              TOTPConfig
	SMS               SMSConfig
	MFA               MFAConfig
	Password          PasswordConfig
	Delivery          DeliveryConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
}

// DefaultConfig returns the production baseline: 6-digit codes, a 10 minute
// email code TTL, a 5 minute SMS code TTL, SHA1/30s/±1 TOTP, and argon2id at
// 64 MiB.
func DefaultConfig() Config {
	return Config{
		EmailVerification: EmailVerificationConfig{
			CodeDigits: 6,
			CodeTTL:    10 * time.Minute,
		},
		TOTP: TOTPConfig{
			Issuer:      "BBA Services",
			Digits:      6,
			Period:      30,
			Skew:        1,
			Algorithm:   "SHA1",
			SecretBytes: 20,
		},
		SMS: SMSConfig{
			Mode:       SMSModeLocal,
			CodeDigits: 6,
			CodeTTL:    5 * time.Minute,
		},
		MFA: MFAConfig{
			Mode: MFAOptional,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Delivery: DeliveryConfig{
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot operate under.
func (c *Config) Validate() error {
	if c.EmailVerification.CodeDigits < 6 || c.EmailVerification.CodeDigits > 10 {
		return errors.New("email verification code digits must be in [6,10]")
	}
	if c.EmailVerification.CodeTTL <= 0 {
		return errors.New("email verification code TTL must be positive")
	}
	if c.SMS.CodeDigits < 4 || c.SMS.CodeDigits > 10 {
		return errors.New("sms code digits must be in [4,10]")
	}
	if c.SMS.CodeTTL <= 0 {
		return errors.New("sms code TTL must be positive")
	}
	switch c.SMS.Mode {
	case SMSModeLocal, SMSModeHosted:
	default:
		return errors.New("invalid sms mode")
	}
	switch c.MFA.Mode {
	case MFAOptional, MFAMandatory:
	default:
		return errors.New("invalid mfa mode")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("totp digits must be in [6,8]")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("totp skew must be in [0,2]")
	}
	switch strings.ToUpper(c.TOTP.Algorithm) {
	case "", "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("unsupported totp algorithm")
	}
	if c.TOTP.SecretBytes < 20 || c.TOTP.SecretBytes > 32 {
		return errors.New("totp secret must be 20-32 bytes")
	}
	if c.Delivery.Timeout <= 0 {
		return errors.New("delivery timeout must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are values; a shallow copy is a deep copy.
	return cfg
}
