package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"studyhall/internal/fault"
)

// fakeGenerator records every call and answers deterministically.
type fakeGenerator struct {
	mu    sync.Mutex
	calls []fakeCall
	fail  func(systemPrompt string) error
}

type fakeCall struct {
	system string
	user   string
	tokens int
}

func (f *fakeGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, maxOutputTokens int) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{system: systemPrompt, user: userPrompt, tokens: maxOutputTokens})
	n := len(f.calls)
	f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(systemPrompt); err != nil {
			return "", err
		}
	}
	if strings.Contains(systemPrompt, "Merge them") {
		return "combined", nil
	}
	return fmt.Sprintf("partial-%d", n), nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRun_SmallTextSingleCall(t *testing.T) {
	gen := &fakeGenerator{}
	p := New(gen, WithBudget(100))

	out, err := p.Run(context.Background(), "short lecture text", ModeSummarize)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "partial-1" {
		t.Errorf("expected direct output, got %q", out)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected 1 call, got %d", gen.callCount())
	}
	if strings.Contains(gen.calls[0].system, "part 1 of") {
		t.Errorf("small text must not use chunk wording: %q", gen.calls[0].system)
	}
}

func TestRun_ThreeChunksPlusCombine(t *testing.T) {
	tokens := make([]string, 2728)
	for i := range tokens {
		tokens[i] = "abcdefghij"
	}
	text := strings.Join(tokens, " ") // 30,007 chars

	gen := &fakeGenerator{}
	p := New(gen, WithBudget(12000))

	out, err := p.Run(context.Background(), text, ModeSummarize)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "combined" {
		t.Errorf("expected combine output, got %q", out)
	}
	if gen.callCount() != 4 {
		t.Fatalf("expected 3 partial + 1 combine calls, got %d", gen.callCount())
	}

	// Chunk prompts name their position; the combine call is last and
	// receives the partials in original chunk order.
	parts := 0
	for _, c := range gen.calls[:3] {
		if strings.Contains(c.system, fmt.Sprintf("of %d", 3)) {
			parts++
		}
	}
	if parts != 3 {
		t.Errorf("expected 3 part-of-3 prompts, got %d", parts)
	}
	combine := gen.calls[3]
	if !strings.Contains(combine.system, "Merge them") {
		t.Errorf("last call should be the combine call: %q", combine.system)
	}
	if !strings.Contains(combine.user, "---") {
		t.Errorf("combine input should use section separators: %q", combine.user)
	}
	idx1 := strings.Index(combine.user, "partial-")
	if idx1 != 0 {
		t.Errorf("combine input should start with the first partial, got %q", combine.user[:20])
	}
}

func TestRun_CombineOrderMatchesChunkOrder(t *testing.T) {
	// Generator output encodes which chunk it served, so the combine input
	// proves recombination order even if calls ran concurrently.
	gen := &orderedGenerator{}
	p := New(gen, WithBudget(10))

	_, err := p.Run(context.Background(), "aaaa bbbb cccc dddd eeee ffff", ModeExtract)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if gen.combineInput == "" {
		t.Fatal("expected a combine call")
	}
	want := "got:aaaa bbbb" + partSeparator + "got:cccc dddd" + partSeparator + "got:eeee ffff"
	if gen.combineInput != want {
		t.Errorf("combine input out of order:\n got %q\nwant %q", gen.combineInput, want)
	}
}

type orderedGenerator struct {
	mu           sync.Mutex
	combineInput string
}

func (g *orderedGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, maxOutputTokens int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if strings.Contains(systemPrompt, "Merge them") {
		g.combineInput = userPrompt
		return "merged", nil
	}
	return "got:" + userPrompt, nil
}

func TestRun_SingleChunkSkipsCombine(t *testing.T) {
	// Longer than the budget in raw length, but a single chunk after
	// whitespace normalization.
	text := "aa" + strings.Repeat(" ", 30) + "bb"
	gen := &fakeGenerator{}
	p := New(gen, WithBudget(20))

	out, err := p.Run(context.Background(), text, ModeSummarize)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected 1 call (no combine), got %d", gen.callCount())
	}
	if out != "partial-1" {
		t.Errorf("expected the sole partial unchanged, got %q", out)
	}
	if !strings.Contains(gen.calls[0].system, "part 1 of 1") {
		t.Errorf("degenerate case still uses the chunk prompt: %q", gen.calls[0].system)
	}
}

func TestRun_ChunkFailureAbortsWithoutCombine(t *testing.T) {
	tokens := make([]string, 2728)
	for i := range tokens {
		tokens[i] = "abcdefghij"
	}
	text := strings.Join(tokens, " ")

	infErr := fault.Wrap(fault.ErrInference, "llm", "generate", "down", nil)
	gen := &fakeGenerator{fail: func(systemPrompt string) error {
		if strings.Contains(systemPrompt, "part 2 of") {
			return infErr
		}
		return nil
	}}
	p := New(gen, WithBudget(12000))

	_, err := p.Run(context.Background(), text, ModeSummarize)
	if !errors.Is(err, fault.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
	for _, c := range gen.calls {
		if strings.Contains(c.system, "Merge them") {
			t.Error("combine call must not run after a chunk failure")
		}
	}
}

func TestRun_ModeChangesWordingOnly(t *testing.T) {
	gen := &fakeGenerator{}
	p := New(gen, WithBudget(100))

	p.Run(context.Background(), "some text", ModeExtract)
	if !strings.Contains(gen.calls[0].system, "Extract the key concepts") {
		t.Errorf("extract mode should use extract wording: %q", gen.calls[0].system)
	}
}

func TestRun_RejectsUnknownModeAndEmptyText(t *testing.T) {
	p := New(&fakeGenerator{})
	if _, err := p.Run(context.Background(), "text", Mode("translate")); !errors.Is(err, fault.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for unknown mode, got %v", err)
	}
	if _, err := p.Run(context.Background(), "   ", ModeSummarize); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty text, got %v", err)
	}
}
