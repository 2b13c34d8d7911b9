package metadata

import (
	"context"
	"fmt"
	"testing"
	"time"

	"genretag/internal/logger"
)

type chainMockProvider struct {
	name  string
	genre string
	err   error
	panic bool
	calls int
}

func (m *chainMockProvider) Name() string { return m.name }
func (m *chainMockProvider) Lookup(_ context.Context, _ TrackKey) (string, error) {
	m.calls++
	if m.panic {
		panic("boom")
	}
	return m.genre, m.err
}

var testKey = TrackKey{Artist: "Artist", Title: "Title"}

func TestChain_PriorityOrder(t *testing.T) {
	p1 := &chainMockProvider{name: "first", genre: "Rock"}
	p2 := &chainMockProvider{name: "second", genre: "Pop"}

	chain := NewChain([]Provider{p1, p2}, 0, logger.New(false))
	genre, source := chain.Resolve(context.Background(), testKey)

	if genre != "Rock" || source != "first" {
		t.Errorf("Resolve() = (%q, %q), want (Rock, first)", genre, source)
	}
	if p2.calls != 0 {
		t.Errorf("second provider called %d times, want 0", p2.calls)
	}
}

func TestChain_ShortCircuit(t *testing.T) {
	p1 := &chainMockProvider{name: "one"}
	p2 := &chainMockProvider{name: "two", genre: "Jazz"}
	p3 := &chainMockProvider{name: "three", genre: "Blues"}

	chain := NewChain([]Provider{p1, p2, p3}, 0, logger.New(false))
	genre, source := chain.Resolve(context.Background(), testKey)

	if genre != "Jazz" || source != "two" {
		t.Errorf("Resolve() = (%q, %q), want (Jazz, two)", genre, source)
	}
	if p1.calls != 1 || p2.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", p1.calls, p2.calls)
	}
	if p3.calls != 0 {
		t.Errorf("third provider called %d times, want 0", p3.calls)
	}
}

func TestChain_FallbackOnError(t *testing.T) {
	p1 := &chainMockProvider{name: "failing", err: fmt.Errorf("api down")}
	p2 := &chainMockProvider{name: "fallback", genre: "Soul"}

	chain := NewChain([]Provider{p1, p2}, 0, logger.New(false))
	genre, _ := chain.Resolve(context.Background(), testKey)

	if genre != "Soul" {
		t.Errorf("Resolve() genre = %q, want Soul", genre)
	}
}

func TestChain_RecoversPanic(t *testing.T) {
	p1 := &chainMockProvider{name: "panics", panic: true}
	p2 := &chainMockProvider{name: "steady", genre: "Folk"}

	chain := NewChain([]Provider{p1, p2}, 0, logger.New(false))
	genre, source := chain.Resolve(context.Background(), testKey)

	if genre != "Folk" || source != "steady" {
		t.Errorf("Resolve() = (%q, %q), want (Folk, steady)", genre, source)
	}
}

func TestChain_AllExhausted(t *testing.T) {
	p1 := &chainMockProvider{name: "fail1", err: fmt.Errorf("error1")}
	p2 := &chainMockProvider{name: "empty"}

	chain := NewChain([]Provider{p1, p2}, 0, logger.New(false))
	genre, source := chain.Resolve(context.Background(), testKey)

	if genre != "" || source != "" {
		t.Errorf("Resolve() = (%q, %q), want empty", genre, source)
	}
}

type slowProvider struct{}

func (slowProvider) Name() string { return "slow" }
func (slowProvider) Lookup(ctx context.Context, _ TrackKey) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(5 * time.Second):
		return "Too Late", nil
	}
}

func TestChain_Timeout(t *testing.T) {
	fast := &chainMockProvider{name: "fast", genre: "Ambient"}

	chain := NewChain([]Provider{slowProvider{}, fast}, 20*time.Millisecond, logger.New(false))
	start := time.Now()
	genre, _ := chain.Resolve(context.Background(), testKey)

	if genre != "Ambient" {
		t.Errorf("Resolve() genre = %q, want Ambient", genre)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Resolve() took %s, timeout not applied", elapsed)
	}
}

func TestChain_Names(t *testing.T) {
	chain := NewChain([]Provider{&chainMockProvider{name: "a"}, &chainMockProvider{name: "b"}}, 0, logger.New(false))
	names := chain.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}
