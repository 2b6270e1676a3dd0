package provider

import (
	"context"
	"errors"
	"testing"
)

// fakeGateway scripts responses for wrapper tests.
type fakeGateway struct {
	name     string
	results  []*Result
	errs     []error
	calls    int
	streamFn func(ctx context.Context, req *Request) (<-chan *Chunk, error)
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) Capabilities(model string) ModelCapabilities {
	return ModelCapabilities{MaxContextTokens: 8000, MaxOutputTokens: 1024, Streaming: true}
}

func (f *fakeGateway) Generate(ctx context.Context, req *Request) (*Result, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return &Result{Text: "ok"}, nil
}

func (f *fakeGateway) Stream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	if f.streamFn != nil {
		return f.streamFn(ctx, req)
	}
	ch := make(chan *Chunk, 1)
	ch <- &Chunk{Done: true}
	close(ch)
	return ch, nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"rate limit text", errors.New("429 rate limit exceeded"), KindRateLimited},
		{"overloaded", errors.New("overloaded_error: Overloaded"), KindRateLimited},
		{"timeout text", errors.New("request timed out"), KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"bad request", errors.New("400 invalid request body"), KindInvalidRequest},
		{"context length", errors.New("maximum context length exceeded"), KindInvalidRequest},
		{"unknown", errors.New("connection reset by peer"), KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("test", "model-x", tt.err)
			if got.Kind != tt.want {
				t.Errorf("Classify(%v).Kind = %v, want %v", tt.err, got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classified error does not wrap the cause")
			}
		})
	}
}

func TestClassifyPassesThroughNormalizedErrors(t *testing.T) {
	original := &Error{Kind: KindRateLimited, Provider: "openai", Message: "slow down"}
	got := Classify("other", "m", original)
	if got != original {
		t.Errorf("expected normalized error to pass through unchanged")
	}
}

func TestErrorRetryable(t *testing.T) {
	if !(&Error{Kind: KindRateLimited}).Retryable() {
		t.Errorf("rate limited should be retryable")
	}
	if !(&Error{Kind: KindTimeout}).Retryable() {
		t.Errorf("timeout should be retryable")
	}
	if (&Error{Kind: KindInvalidRequest}).Retryable() {
		t.Errorf("invalid request should not be retryable")
	}
	if (&Error{Kind: KindUnavailable}).Retryable() {
		t.Errorf("unavailable should not be retryable")
	}
}

func TestRetryingGateway_RetriesTransient(t *testing.T) {
	fake := &fakeGateway{
		name: "fake",
		errs: []error{
			&Error{Kind: KindRateLimited, Provider: "fake", Message: "throttled"},
			&Error{Kind: KindTimeout, Provider: "fake", Message: "slow"},
		},
		results: []*Result{nil, nil, {Text: "finally"}},
	}
	gw := NewRetryingGateway(fake, nil)
	gw.config.InitialDelay = 1
	gw.config.MaxDelay = 1

	result, err := gw.Generate(context.Background(), &Request{Model: "m"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Text != "finally" {
		t.Errorf("Generate() text = %q, want %q", result.Text, "finally")
	}
	if fake.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", fake.calls)
	}
}

func TestRetryingGateway_DoesNotRetryInvalidRequest(t *testing.T) {
	fake := &fakeGateway{
		name: "fake",
		errs: []error{&Error{Kind: KindInvalidRequest, Provider: "fake", Message: "bad prompt"}},
	}
	gw := NewRetryingGateway(fake, nil)
	gw.config.InitialDelay = 1

	_, err := gw.Generate(context.Background(), &Request{Model: "m"})
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("Generate() error = %v, want invalid request", err)
	}
	if fake.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", fake.calls)
	}
}

func TestRetryingGateway_GivesUpAfterBudget(t *testing.T) {
	fake := &fakeGateway{
		name: "fake",
		errs: []error{
			&Error{Kind: KindRateLimited, Provider: "fake"},
			&Error{Kind: KindRateLimited, Provider: "fake"},
			&Error{Kind: KindRateLimited, Provider: "fake"},
			&Error{Kind: KindRateLimited, Provider: "fake"},
		},
	}
	gw := NewRetryingGateway(fake, nil)
	gw.config.InitialDelay = 1
	gw.config.MaxDelay = 1

	_, err := gw.Generate(context.Background(), &Request{Model: "m"})
	if !IsKind(err, KindRateLimited) {
		t.Fatalf("Generate() error = %v, want rate limited", err)
	}
	if fake.calls != 3 {
		t.Errorf("expected 3 attempts (initial + 2 retries), got %d", fake.calls)
	}
}

func TestClampRequest(t *testing.T) {
	req := &Request{Temperature: 3.5, MaxTokens: 999999}
	caps := ModelCapabilities{MaxOutputTokens: 4096}

	adjusted := clampRequest(req, caps, 2.0)
	if req.Temperature != 2.0 {
		t.Errorf("temperature = %v, want 2.0", req.Temperature)
	}
	if req.MaxTokens != 4096 {
		t.Errorf("max tokens = %d, want 4096", req.MaxTokens)
	}
	if len(adjusted) != 2 {
		t.Errorf("expected 2 adjustments, got %v", adjusted)
	}
}

func TestClampRequestDefaultsMaxTokens(t *testing.T) {
	req := &Request{Temperature: 0.7}
	clampRequest(req, ModelCapabilities{}, 2.0)
	if req.MaxTokens != 1024 {
		t.Errorf("max tokens = %d, want default 1024", req.MaxTokens)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	fake := &fakeGateway{name: "fake"}

	if err := reg.Register(fake); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(fake); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	gw, err := reg.Get("fake")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gw.Name() != "fake" {
		t.Errorf("Get() returned wrong gateway")
	}
	if _, err := reg.Get("missing"); err == nil {
		t.Errorf("expected lookup of unregistered provider to fail")
	}
}
