package authkit

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig must validate: %v", err)
	}
	if cfg.EmailVerification.CodeDigits != 6 {
		t.Fatalf("expected 6-digit email codes, got %d", cfg.EmailVerification.CodeDigits)
	}
	if cfg.EmailVerification.CodeTTL != 10*time.Minute {
		t.Fatalf("expected 10m email TTL, got %v", cfg.EmailVerification.CodeTTL)
	}
	if cfg.TOTP.Issuer != "BBA Services" {
		t.Fatalf("unexpected issuer %q", cfg.TOTP.Issuer)
	}
	if cfg.MFA.Mode != MFAOptional {
		t.Fatal("MFA must default to optional")
	}
	if cfg.SMS.Mode != SMSModeLocal {
		t.Fatal("SMS must default to local mode")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"email digits low", func(c *Config) { c.EmailVerification.CodeDigits = 4 }},
		{"email digits high", func(c *Config) { c.EmailVerification.CodeDigits = 12 }},
		{"email ttl zero", func(c *Config) { c.EmailVerification.CodeTTL = 0 }},
		{"sms digits low", func(c *Config) { c.SMS.CodeDigits = 3 }},
		{"sms ttl negative", func(c *Config) { c.SMS.CodeTTL = -time.Minute }},
		{"sms mode bogus", func(c *Config) { c.SMS.Mode = SMSMode(9) }},
		{"mfa mode bogus", func(c *Config) { c.MFA.Mode = MFAMode(9) }},
		{"totp digits", func(c *Config) { c.TOTP.Digits = 5 }},
		{"totp period", func(c *Config) { c.TOTP.Period = 0 }},
		{"totp skew", func(c *Config) { c.TOTP.Skew = 5 }},
		{"totp algorithm", func(c *Config) { c.TOTP.Algorithm = "MD5" }},
		{"totp secret short", func(c *Config) { c.TOTP.SecretBytes = 10 }},
		{"delivery timeout", func(c *Config) { c.Delivery.Timeout = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuilderRequiresCollaborators(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without store")
	}

	store := newMockStore()
	if _, err := New().WithStore(store).Build(); err == nil {
		t.Fatal("expected error without email sender")
	}
	if _, err := New().WithStore(store).WithEmailSender(&mockEmailSender{}).Build(); err == nil {
		t.Fatal("expected error without token issuer")
	}

	engine, err := New().
		WithStore(store).
		WithEmailSender(&mockEmailSender{}).
		WithTokenIssuer(&mockTokenIssuer{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().
		WithStore(newMockStore()).
		WithEmailSender(&mockEmailSender{}).
		WithTokenIssuer(&mockTokenIssuer{})

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("second Build must fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TOTP.Period = 0

	_, err := New().
		WithConfig(cfg).
		WithStore(newMockStore()).
		WithEmailSender(&mockEmailSender{}).
		WithTokenIssuer(&mockTokenIssuer{}).
		Build()
	if err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestEngineWithoutSMSSenderRejectsSMSOps(t *testing.T) {
	engine, err := New().
		WithStore(newMockStore()).
		WithEmailSender(&mockEmailSender{}).
		WithTokenIssuer(&mockTokenIssuer{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.BeginSMSEnrollment(context.Background(), "a@x.com", "+14155551234"); err != ErrEngineNotReady {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
