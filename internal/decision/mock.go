package decision

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

// Policy chooses the mock's next action. It must be deterministic for a
// given sequence of calls if tests depend on it.
type Policy func(ctx context.Context, dc Context) (Action, error)

// MockProvider is an always-available provider for tests and demos.
type MockProvider struct {
	policy Policy
	text   func(prompt string) (string, error)
}

// MockOption configures a MockProvider.
type MockOption func(*MockProvider)

// WithPolicy replaces the default always-wait policy.
func WithPolicy(p Policy) MockOption {
	return func(m *MockProvider) { m.policy = p }
}

// WithText replaces the default GenerateText echo.
func WithText(fn func(prompt string) (string, error)) MockOption {
	return func(m *MockProvider) { m.text = fn }
}

// NewMock creates a mock provider. Without options it always waits.
func NewMock(opts ...MockOption) *MockProvider {
	m := &MockProvider{policy: AlwaysWait}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AlwaysWait is the default mock policy.
func AlwaysWait(_ context.Context, dc Context) (Action, error) {
	return Wait("Mock decision for " + dc.AgentName), nil
}

// Scripted returns actions in order and then keeps waiting.
func Scripted(actions ...Action) Policy {
	var mu sync.Mutex
	next := 0
	return func(_ context.Context, dc Context) (Action, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(actions) {
			return Wait("script exhausted"), nil
		}
		a := actions[next]
		next++
		return a, nil
	}
}

// Failing always returns err.
func Failing(err error) Policy {
	return func(context.Context, Context) (Action, error) {
		return Action{}, err
	}
}

// Seeded picks uniformly among move, wait, speak and completing the current
// task, reproducibly for a given seed.
func Seeded(seed int64) Policy {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))
	return func(_ context.Context, dc Context) (Action, error) {
		mu.Lock()
		defer mu.Unlock()
		switch rng.Intn(4) {
		case 0:
			return Move(rng.Intn(100), rng.Intn(100), "mock exploring"), nil
		case 1:
			return Wait("mock resting"), nil
		case 2:
			return Speak(fmt.Sprintf("%s is mock thinking...", dc.AgentName), "broadcast"), nil
		default:
			if dc.CurrentTask != "" {
				return CompleteTask(dc.CurrentTask, "mock completed"), nil
			}
			return Wait("mock waiting"), nil
		}
	}
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	return BackendMock
}

// IsAvailable implements Provider.
func (m *MockProvider) IsAvailable(context.Context) bool {
	return true
}

// MakeDecision implements Provider.
func (m *MockProvider) MakeDecision(ctx context.Context, dc Context) (Action, error) {
	a, err := m.policy(ctx, dc)
	if err != nil {
		return Action{}, err
	}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

// GenerateText implements Provider.
func (m *MockProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if m.text != nil {
		return m.text(prompt)
	}
	return "Mock response to: " + prompt, nil
}

var _ Provider = (*MockProvider)(nil)
