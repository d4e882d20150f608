package authkit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockStore implements Store with the same compare-and-swap contract as the
// shipped stores.
type mockStore struct {
	mu       sync.Mutex
	accounts map[string]Account

	failGet error
	failPut error
}

func newMockStore() *mockStore {
	return &mockStore{accounts: make(map[string]Account)}
}

func (s *mockStore) Get(_ context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failGet != nil {
		return nil, s.failGet
	}
	stored, ok := s.accounts[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := stored
	return &copied, nil
}

func (s *mockStore) Put(_ context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPut != nil {
		return s.failPut
	}

	stored, exists := s.accounts[account.Email]
	if account.Version == 0 {
		if exists {
			return ErrDuplicateEmail
		}
		account.Version = 1
		s.accounts[account.Email] = *account
		return nil
	}
	if !exists {
		return ErrAccountNotFound
	}
	if stored.Version != account.Version {
		return ErrVersionConflict
	}
	account.Version++
	s.accounts[account.Email] = *account
	return nil
}

func (s *mockStore) Exists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.accounts[email]
	return ok, nil
}

func (s *mockStore) snapshot(t *testing.T, email string) Account {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[email]
	if !ok {
		t.Fatalf("no stored account for %s", email)
	}
	return stored
}

type sentEmail struct {
	To     string
	Code   string
	Secret string
	URI    string
}

type mockEmailSender struct {
	mu       sync.Mutex
	sent     []sentEmail
	failWith error
}

func (m *mockEmailSender) SendVerificationCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, sentEmail{To: email, Code: code})
	return nil
}

func (m *mockEmailSender) SendTOTPSetup(_ context.Context, email, secret, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, sentEmail{To: email, Secret: secret, URI: uri})
	return nil
}

func (m *mockEmailSender) lastCode(t *testing.T) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no email sent")
	}
	return m.sent[len(m.sent)-1].Code
}

type smsSend struct {
	Phone string
	Code  string
}

// mockSMSSender covers both modes: hosted mode hands out correlation tokens
// and validates through CheckCode against hostedCode.
type mockSMSSender struct {
	mu         sync.Mutex
	sent       []smsSend
	failWith   error
	hosted     bool
	hostedCode string
	nextToken  string
	checks     int
}

func (m *mockSMSSender) SendCode(_ context.Context, phone, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return "", m.failWith
	}
	m.sent = append(m.sent, smsSend{Phone: phone, Code: code})
	if m.hosted {
		if m.nextToken == "" {
			m.nextToken = "req-1"
		}
		return m.nextToken, nil
	}
	return "", nil
}

func (m *mockSMSSender) CheckCode(_ context.Context, token, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	if m.failWith != nil {
		return false, m.failWith
	}
	if !m.hosted {
		return false, errors.New("check on local-mode sender")
	}
	return token == m.nextToken && code == m.hostedCode, nil
}

func (m *mockSMSSender) lastSend(t *testing.T) smsSend {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no sms sent")
	}
	return m.sent[len(m.sent)-1]
}

type mockTokenIssuer struct {
	failWith error
}

func (m *mockTokenIssuer) Issue(_ context.Context, accountID string) (string, error) {
	if m.failWith != nil {
		return "", m.failWith
	}
	return "token-" + accountID, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testHarness struct {
	engine *Engine
	store  *mockStore
	email  *mockEmailSender
	sms    *mockSMSSender
	clock  *testClock
}

func newTestHarness(t *testing.T, mutate func(*Config), sms *mockSMSSender) *testHarness {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Audit.Enabled = false
	// Cheap hashing keeps the suite fast; production defaults stay at 64 MiB.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	if mutate != nil {
		mutate(&cfg)
	}

	store := newMockStore()
	email := &mockEmailSender{}
	if sms == nil {
		sms = &mockSMSSender{}
	}
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithEmailSender(email).
		WithSMSSender(sms).
		WithTokenIssuer(&mockTokenIssuer{}).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testHarness{
		engine: engine,
		store:  store,
		email:  email,
		sms:    sms,
		clock:  clock,
	}
}

// createVerified registers an account and walks it through email verification.
func (h *testHarness) createVerified(t *testing.T, email, password string) *Account {
	t.Helper()
	ctx := context.Background()

	account, err := h.engine.CreateAccount(ctx, email, password)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := h.engine.VerifyEmail(ctx, email, h.email.lastCode(t)); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	return account
}
