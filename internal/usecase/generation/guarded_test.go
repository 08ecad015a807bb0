package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/domain"
)

// --- Mocks ---

type mockGenerator struct {
	result    domain.GenerationResult
	err       error
	calls     int
	gotReq    domain.GenerationRequest
	healthErr error
}

func (m *mockGenerator) Generate(_ context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	m.calls++
	m.gotReq = req
	return m.result, m.err
}

func (m *mockGenerator) HealthCheck(_ context.Context) error { return m.healthErr }

type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, _ domain.GenerationRequest) (domain.GenerationResult, error) {
	<-ctx.Done()
	return domain.GenerationResult{}, ctx.Err()
}

func testBreaker() BreakerConfig {
	return BreakerConfig{MinRequests: 2, FailureRatio: 0.5, Interval: time.Minute, OpenTimeout: time.Minute, HalfOpenMax: 1}
}

// --- Tests ---

func TestGenerate_Success(t *testing.T) {
	inner := &mockGenerator{result: domain.GenerationResult{Text: "**Réponse :** ...", PromptTokens: 120, CompletionTokens: 40}}
	g := NewGuardedGenerator(inner, "openai", "gpt-4o-mini", DefaultBreakerConfig(), zap.NewNop())

	req := domain.GenerationRequest{System: "sys", User: "user", Temperature: 0.1}
	res, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "**Réponse :** ..." || res.PromptTokens != 120 {
		t.Errorf("unexpected result %+v", res)
	}
	if inner.gotReq != req {
		t.Errorf("request not forwarded unchanged: %+v", inner.gotReq)
	}
}

func TestGenerate_ErrorIsUnavailable(t *testing.T) {
	inner := &mockGenerator{err: errors.New("502 bad gateway")}
	g := NewGuardedGenerator(inner, "openai", "m", DefaultBreakerConfig(), zap.NewNop())

	_, err := g.Generate(context.Background(), domain.GenerationRequest{})
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected exactly one call (no retries), got %d", inner.calls)
	}
}

func TestGenerate_BreakerOpens(t *testing.T) {
	inner := &mockGenerator{err: errors.New("down")}
	g := NewGuardedGenerator(inner, "trip-test", "m", testBreaker(), zap.NewNop())
	ctx := context.Background()

	for range 2 {
		_, _ = g.Generate(ctx, domain.GenerationRequest{})
	}
	if g.State() != "open" {
		t.Fatalf("expected open breaker, got %s", g.State())
	}

	_, err := g.Generate(ctx, domain.GenerationRequest{})
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("open breaker must short-circuit, got %d calls", inner.calls)
	}
	if err := g.HealthCheck(ctx); err == nil {
		t.Error("expected health check failure while open")
	}
}

func TestGenerate_Timeout(t *testing.T) {
	g := NewGuardedGenerator(slowGenerator{}, "slow", "m", DefaultBreakerConfig(), zap.NewNop(),
		WithTimeout(10*time.Millisecond))

	_, err := g.Generate(context.Background(), domain.GenerationRequest{})
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected deadline exceeded as ErrGenerationUnavailable, got %v", err)
	}
}

func TestGenerate_CallerCancel(t *testing.T) {
	g := NewGuardedGenerator(slowGenerator{}, "cancel-test", "m", testBreaker(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for range 3 {
		_, err := g.Generate(ctx, domain.GenerationRequest{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if errors.Is(err, domain.ErrGenerationUnavailable) {
			t.Fatalf("caller cancel must not be tagged as an outage: %v", err)
		}
	}
	if g.State() != "closed" {
		t.Errorf("caller cancels must not trip the breaker, got %s", g.State())
	}
}

func TestGenerate_RateLimitHonorsContext(t *testing.T) {
	inner := &mockGenerator{}
	g := NewGuardedGenerator(inner, "limited", "m", DefaultBreakerConfig(), zap.NewNop(), WithRateLimit(1, 1))

	if _, err := g.Generate(context.Background(), domain.GenerationRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Generate(ctx, domain.GenerationRequest{})
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable on limiter wait, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", inner.calls)
	}
}

func TestHealthCheck_ForwardsToProvider(t *testing.T) {
	g := NewGuardedGenerator(&mockGenerator{healthErr: errors.New("401")}, "p", "m", DefaultBreakerConfig(), zap.NewNop())
	if err := g.HealthCheck(context.Background()); !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}

	ok := NewGuardedGenerator(&mockGenerator{}, "p", "m", DefaultBreakerConfig(), zap.NewNop())
	if err := ok.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
