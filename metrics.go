package authkit

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram slot in the in-process metrics
// system.
type MetricID uint16

const (
	// MetricAccountCreated counts successful account creations.
	MetricAccountCreated MetricID = iota
	// MetricAccountDuplicate counts creations rejected for a duplicate email.
	MetricAccountDuplicate
	// MetricEmailVerifySuccess counts successful email verifications.
	MetricEmailVerifySuccess
	// MetricEmailVerifyFailure counts rejected verification codes.
	MetricEmailVerifyFailure
	// MetricEmailResend counts re-issued email verification codes.
	MetricEmailResend
	// MetricTOTPEnrollStarted counts TOTP enrollments begun or resumed.
	MetricTOTPEnrollStarted
	// MetricTOTPEnrollConfirmed counts confirmed TOTP enrollments.
	MetricTOTPEnrollConfirmed
	// MetricSMSEnrollStarted counts SMS enrollments begun.
	MetricSMSEnrollStarted
	// MetricSMSEnrollConfirmed counts confirmed SMS enrollments.
	MetricSMSEnrollConfirmed
	// MetricMFADisabled counts DisableMFA calls that cleared a method.
	MetricMFADisabled
	// MetricLoginSuccess counts fully successful logins.
	MetricLoginSuccess
	// MetricLoginFailure counts logins rejected for credentials or state.
	MetricLoginFailure
	// MetricLoginMFARequired counts logins halted awaiting a second factor.
	MetricLoginMFARequired
	// MetricLoginInvalidFactor counts logins rejected on the second factor.
	MetricLoginInvalidFactor
	// MetricDeliveryFailure counts failed email/SMS delivery attempts.
	MetricDeliveryFailure
	// MetricLoginLatency is the AttemptLogin latency histogram.
	MetricLoginLatency

	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// Metrics holds lock-free padded atomic counters and an optional latency
// histogram for the login path. All operations are no-ops when disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the login latency histogram is active.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the latency histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricLoginLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a consistent-enough copy of all counters and histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricLoginLatency].buckets[i])
		}
		s.Histograms[MetricLoginLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
