package authkit

import (
	"errors"

	"github.com/bba-labs/authkit/password"
)

// Builder assembles an Engine from its collaborators. A Builder is single-use:
// Build consumes it.
type Builder struct {
	config Config

	store  Store
	email  EmailSender
	sms    SMSSender
	tokens TokenIssuer

	auditSink AuditSink
	now       Clock

	built bool
}

// New returns a Builder primed with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the account store. Required.
func (b *Builder) WithStore(s Store) *Builder {
	b.store = s
	return b
}

// WithEmailSender sets the email delivery channel. Required.
func (b *Builder) WithEmailSender(s EmailSender) *Builder {
	b.email = s
	return b
}

// WithSMSSender sets the SMS delivery channel. Required only when SMS
// enrollment or SMS login will be used.
func (b *Builder) WithSMSSender(s SMSSender) *Builder {
	b.sms = s
	return b
}

// WithTokenIssuer sets the session token issuer. Required.
func (b *Builder) WithTokenIssuer(t TokenIssuer) *Builder {
	b.tokens = t
	return b
}

// WithAuditSink sets the audit destination. Defaults to NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source. Intended for tests.
func (b *Builder) WithClock(c Clock) *Builder {
	b.now = c
	return b
}

// WithMetricsEnabled toggles the metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and collaborators and returns an
// immutable Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("account store required")
	}
	if b.email == nil {
		return nil, errors.New("email sender required")
	}
	if b.tokens == nil {
		return nil, errors.New("token issuer required")
	}

	hash, err := password.NewArgon2(password.Argon2Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	b.built = true

	return &Engine{
		config:       cfg,
		store:        b.store,
		email:        b.email,
		sms:          b.sms,
		tokens:       b.tokens,
		passwordHash: hash,
		totp:         newTOTPManager(cfg.TOTP),
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
		now:          b.now,
	}, nil
}
