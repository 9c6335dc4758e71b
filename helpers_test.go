package goIdentity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "Secr3t!pass"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// captureSender records every notification handed to it.
type captureSender struct {
	ch chan goIdentity.Notification
}

func newCaptureSender() *captureSender {
	return &captureSender{ch: make(chan goIdentity.Notification, 32)}
}

func (s *captureSender) SendCode(ctx context.Context, n goIdentity.Notification) error {
	select {
	case s.ch <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *captureSender) next(t testing.TB) goIdentity.Notification {
	t.Helper()
	select {
	case n := <-s.ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return goIdentity.Notification{}
	}
}

type harness struct {
	engine *goIdentity.Engine
	store  *memory.Store
	clock  *fakeClock
	sender *captureSender
	audit  <-chan goIdentity.AuditEvent
	redis  *miniredis.Miniredis
}

type harnessOption func(*goIdentity.Config, *goIdentity.Builder, *harness)

func withRedis(t testing.TB) harnessOption {
	return func(_ *goIdentity.Config, b *goIdentity.Builder, h *harness) {
		h.redis = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: h.redis.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		b.WithRedis(client)
	}
}

func withConfig(mutate func(*goIdentity.Config)) harnessOption {
	return func(cfg *goIdentity.Config, _ *goIdentity.Builder, _ *harness) {
		mutate(cfg)
	}
}

func withVerifier(method string, v goIdentity.IdentityVerifier) harnessOption {
	return func(_ *goIdentity.Config, b *goIdentity.Builder, _ *harness) {
		b.WithIdentityVerifier(method, v)
	}
}

func testConfig() goIdentity.Config {
	cfg := goIdentity.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-refresh-secret-0123456789")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = true
	return cfg
}

func newHarness(t testing.TB, opts ...harnessOption) *harness {
	t.Helper()

	sink := goIdentity.NewChannelAuditSink(256)
	h := &harness{
		store:  memory.New(),
		clock:  newFakeClock(),
		sender: newCaptureSender(),
		audit:  sink.Events(),
	}

	cfg := testConfig()
	b := goIdentity.New()
	for _, opt := range opts {
		opt(&cfg, b, h)
	}
	engine, err := b.
		WithConfig(cfg).
		WithStore(h.store).
		WithNotifier(h.sender).
		WithAuditSink(sink).
		WithClock(h.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	if err := engine.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	h.engine = engine
	return h
}

func (h *harness) user(t testing.TB, userID string) *goIdentity.User {
	t.Helper()
	u, err := h.store.FindUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("FindUserByID: %v", err)
	}
	return u
}

// register creates an account and returns its id and pending code.
func (h *harness) register(t testing.TB, email string) (string, string) {
	t.Helper()
	userID, err := h.engine.Register(context.Background(), goIdentity.RegisterRequest{
		Email:    email,
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return userID, h.user(t, userID).OTPCode
}

// activeUser registers and verifies an account.
func (h *harness) activeUser(t testing.TB, email string) string {
	t.Helper()
	userID, code := h.register(t, email)
	if err := h.engine.VerifyOTP(context.Background(), userID, code); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	return userID
}

func (h *harness) login(t testing.TB, email string) *goIdentity.TokenPair {
	t.Helper()
	res, err := h.engine.Login(context.Background(), email, testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Tokens == nil {
		t.Fatal("expected tokens")
	}
	return res.Tokens
}
