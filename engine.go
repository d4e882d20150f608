package authkit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bba-labs/authkit/password"
)

// maxPutRetries bounds the optimistic-write retry loop when a concurrent
// writer advances the account version between Get and Put.
const maxPutRetries = 4

// Engine is the credential pipeline. Construct it with Builder; a zero Engine
// is not usable. All exported methods are safe for concurrent use.
type Engine struct {
	config       Config
	store        Store
	email        EmailSender
	sms          SMSSender
	tokens       TokenIssuer
	passwordHash *password.Argon2
	totp         *totpManager
	audit        *auditDispatcher
	metrics      *Metrics
	now          Clock
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded under pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine's metrics counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) clock() time.Time {
	if e != nil && e.now != nil {
		return e.now()
	}
	return time.Now().UTC()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// deliveryContext bounds an outbound gateway call so a hung provider cannot
// hold a caller past the configured delivery timeout.
func (e *Engine) deliveryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := e.config.Delivery.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// updateAccount loads the account for email, applies fn, and writes the
// result back with compare-and-swap semantics. fn returning an error aborts
// without a write. A version conflict reloads and reapplies fn, up to
// maxPutRetries times, so fn must be a pure function of the loaded account.
func (e *Engine) updateAccount(ctx context.Context, email string, fn func(*Account) error) (*Account, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	var lastErr error
	for attempt := 0; attempt <= maxPutRetries; attempt++ {
		account, err := e.store.Get(ctx, email)
		if err != nil {
			return nil, err
		}

		if err := fn(account); err != nil {
			return nil, err
		}

		if err := e.store.Put(ctx, account); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return account, nil
	}

	return nil, lastErr
}
