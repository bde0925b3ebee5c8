// Package pipeline turns an oversized document into a bounded sequence of
// inference calls: split into chunks, process each chunk, combine.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"studyhall/internal/chunker"
	"studyhall/internal/fault"
	"studyhall/internal/llm"
	"studyhall/internal/logging"
)

// Mode selects the prompt wording. It never changes control flow.
type Mode string

const (
	ModeSummarize Mode = "summarize"
	ModeExtract   Mode = "extract"
)

// ValidModes are the accepted pipeline modes.
var ValidModes = map[Mode]bool{
	ModeSummarize: true,
	ModeExtract:   true,
}

const defaultMaxOutputTokens = 4096

// Pipeline runs summarize/extract over raw lecture text.
type Pipeline struct {
	gen             llm.Generator
	budget          int
	maxOutputTokens int
	logger          *slog.Logger
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithBudget overrides the per-chunk character budget.
func WithBudget(budget int) Option {
	return func(p *Pipeline) {
		if budget > 0 {
			p.budget = budget
		}
	}
}

// WithMaxOutputTokens overrides the per-call output token cap.
func WithMaxOutputTokens(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxOutputTokens = n
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New constructs a pipeline around the given generator.
func New(gen llm.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:             gen,
		budget:          chunker.DefaultBudget,
		maxOutputTokens: defaultMaxOutputTokens,
		logger:          logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes rawText in the given mode.
//
// Text within the chunk budget is handled by exactly one inference call.
// Larger text is split, each chunk is processed by an independent call
// (concurrently, results collected in original chunk order), and a final
// combine call merges the partial outputs. The combine call is skipped when
// chunking yields a single chunk.
func (p *Pipeline) Run(ctx context.Context, rawText string, mode Mode) (string, error) {
	if !ValidModes[mode] {
		return "", fault.Wrap(fault.ErrConfiguration, "pipeline", "run", "unknown mode "+string(mode), nil)
	}
	if strings.TrimSpace(rawText) == "" {
		return "", fault.Wrap(fault.ErrNotFound, "pipeline", "run", "empty input", nil)
	}

	if len(rawText) <= p.budget {
		return p.gen.Generate(ctx, systemPromptFor(mode), rawText, p.maxOutputTokens)
	}

	chunks := chunker.Split(rawText, p.budget)
	n := len(chunks)
	p.logger.Info("processing in chunks",
		logging.FieldComponent, "pipeline",
		"mode", string(mode),
		"chunks", n,
		"text_len", len(rawText))

	partials := make([]string, n)
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			out, err := p.gen.Generate(gctx, chunkSystemPrompt(mode, i+1, n), chunk, p.maxOutputTokens)
			if err != nil {
				return err
			}
			partials[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if n == 1 {
		// One chunk means nothing to merge; a combine call would be a
		// redundant inference round-trip.
		return partials[0], nil
	}

	return p.gen.Generate(ctx, combineSystemPrompt, strings.Join(partials, partSeparator), p.maxOutputTokens)
}
