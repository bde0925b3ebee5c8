// Package lecture implements the per-lecture memory actor: one lecture's
// raw text plus its append-only chat history.
package lecture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"studyhall/internal/actor"
	"studyhall/internal/chunker"
	"studyhall/internal/llm"
	"studyhall/internal/logging"
	"studyhall/internal/model"
	"studyhall/internal/pipeline"
	"studyhall/internal/store"
)

const (
	opStoreText = "store_text"
	opChat      = "chat"
	opRawText   = "raw_text"
	opSummarize = "summarize"
	opExtract   = "extract"
)

const chatSystemPrompt = "You are a study assistant. Answer strictly from the conversation history and " +
	"lecture context provided below; do not invent outside facts. Be concise."

const defaultChatOutputTokens = 1024

// ErrEmptyText is returned when an upload carries no content.
var ErrEmptyText = errors.New("lecture: raw text is empty")

// Option customizes the service.
type Option func(*Service)

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithChunkBudget overrides the pipeline's per-chunk character budget.
func WithChunkBudget(budget int) Option {
	return func(s *Service) {
		if budget > 0 {
			s.chunkBudget = budget
		}
	}
}

// WithMaxOutputTokens overrides the pipeline's per-call output token cap.
func WithMaxOutputTokens(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxOutputTokens = n
		}
	}
}

// Service fronts the per-key lecture memory actors.
type Service struct {
	rt              *actor.Runtime
	logger          *slog.Logger
	chunkBudget     int
	maxOutputTokens int
}

// NewService builds the lecture service over the given store and generator.
func NewService(st store.Store, gen llm.Generator, opts ...Option) *Service {
	s := &Service{
		logger:      logging.NewNop(),
		chunkBudget: chunker.DefaultBudget,
	}
	for _, opt := range opts {
		opt(s)
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithBudget(s.chunkBudget),
		pipeline.WithLogger(s.logger),
	}
	if s.maxOutputTokens > 0 {
		pipeOpts = append(pipeOpts, pipeline.WithMaxOutputTokens(s.maxOutputTokens))
	}
	pipe := pipeline.New(gen, pipeOpts...)

	s.rt = actor.New(func(key string) actor.Actor {
		return &memory{
			key:    key,
			store:  st,
			gen:    gen,
			pipe:   pipe,
			logger: s.logger,
		}
	}, actor.WithLogger(s.logger))
	return s
}

// StoreLecture sets the raw text for the key. Rejects empty text. A key
// normally receives this once (one upload = one new key), but the
// operation overwrites rather than appends.
func (s *Service) StoreLecture(ctx context.Context, key, rawText string) error {
	_, err := s.rt.Dispatch(ctx, key, actor.Invocation{Op: opStoreText, Payload: rawText})
	return err
}

// Chat records the user message, asks the model for a reply grounded in the
// full history, records the reply and returns it. The user message stays
// durably recorded even when inference fails.
func (s *Service) Chat(ctx context.Context, key, message string) (string, error) {
	return s.dispatchText(ctx, key, actor.Invocation{Op: opChat, Payload: message})
}

// RawText returns the stored lecture text.
func (s *Service) RawText(ctx context.Context, key string) (string, error) {
	return s.dispatchText(ctx, key, actor.Invocation{Op: opRawText})
}

// Summarize runs the chunked summarization pipeline over the stored text.
func (s *Service) Summarize(ctx context.Context, key string) (string, error) {
	return s.dispatchText(ctx, key, actor.Invocation{Op: opSummarize})
}

// Extract runs the chunked concept-extraction pipeline over the stored text.
func (s *Service) Extract(ctx context.Context, key string) (string, error) {
	return s.dispatchText(ctx, key, actor.Invocation{Op: opExtract})
}

// Close shuts down the underlying actor runtime.
func (s *Service) Close() {
	s.rt.Close()
}

func (s *Service) dispatchText(ctx context.Context, key string, inv actor.Invocation) (string, error) {
	res, err := s.rt.Dispatch(ctx, key, inv)
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// memory owns one lecture's durable record.
type memory struct {
	key    string
	store  store.Store
	gen    llm.Generator
	pipe   *pipeline.Pipeline
	logger *slog.Logger
}

func (m *memory) Receive(ctx context.Context, inv actor.Invocation) (any, error) {
	switch inv.Op {
	case opStoreText:
		text, _ := inv.Payload.(string)
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyText
		}
		return nil, m.store.PutLecture(ctx, m.key, text)
	case opChat:
		message, _ := inv.Payload.(string)
		return m.chat(ctx, message)
	case opRawText:
		return m.store.GetRawText(ctx, m.key)
	case opSummarize:
		return m.process(ctx, pipeline.ModeSummarize)
	case opExtract:
		return m.process(ctx, pipeline.ModeExtract)
	default:
		return nil, fmt.Errorf("lecture: unknown op %q", inv.Op)
	}
}

func (m *memory) chat(ctx context.Context, message string) (string, error) {
	// Persist the user's message first: conversational state survives a
	// failed turn, deliberately without rollback.
	if _, err := m.store.AppendMessage(ctx, m.key, model.RoleUser, message); err != nil {
		return "", err
	}

	history, err := m.store.History(ctx, m.key)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, msg := range history {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	reply, err := m.gen.Generate(ctx, chatSystemPrompt, b.String(), defaultChatOutputTokens)
	if err != nil {
		m.logger.Warn("chat turn failed after recording user message",
			logging.FieldComponent, "lecture",
			logging.FieldActorKey, m.key,
			logging.Error(err))
		return "", err
	}

	if _, err := m.store.AppendMessage(ctx, m.key, model.RoleAssistant, reply); err != nil {
		return "", err
	}
	return reply, nil
}

func (m *memory) process(ctx context.Context, mode pipeline.Mode) (string, error) {
	text, err := m.store.GetRawText(ctx, m.key)
	if err != nil {
		return "", err
	}
	return m.pipe.Run(ctx, text, mode)
}
