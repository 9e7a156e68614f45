package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/edgard/commentqa/internal/llm"
)

const (
	// MaxAnswerTokens caps the generated answer.
	MaxAnswerTokens = 500
	// MaxAnswerLength is the longest answer, in characters, sent to the chat
	// before truncation.
	MaxAnswerLength = 2000

	truncationSuffix = "..."
)

// Synthesizer composes an answer to a question from article texts.
type Synthesizer struct {
	oracle llm.Oracle
	log    *slog.Logger
	plain  *plainText
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithPlainText strips markdown formatting from answers before they are
// measured and returned.
func WithPlainText() SynthesizerOption {
	return func(s *Synthesizer) {
		s.plain = newPlainText()
	}
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(oracle llm.Oracle, log *slog.Logger, opts ...SynthesizerOption) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	s := &Synthesizer{oracle: oracle, log: log.With("component", "synthesizer")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns the answer text, or false when no articles were given,
// the oracle failed or it produced nothing.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, articles []Article) (string, bool) {
	if len(articles) == 0 {
		s.log.WarnContext(ctx, "No articles to answer from")
		return "", false
	}

	answer, err := s.oracle.Complete(ctx, llm.Request{
		Prompt:    buildAnswerPrompt(question, articles),
		MaxTokens: MaxAnswerTokens,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Answer generation failed", "error", err)
		return "", false
	}
	answer = strings.TrimSpace(answer)
	if s.plain != nil {
		answer = s.plain.Render(answer)
	}
	if answer == "" {
		s.log.WarnContext(ctx, "Answer generation returned empty text")
		return "", false
	}

	return truncate(answer, MaxAnswerLength), true
}

func buildAnswerPrompt(question string, articles []Article) string {
	var sb strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&sb, articleSectionHeader, i+1)
		sb.WriteString(a.Text)
	}
	return fmt.Sprintf(synthesizerPrompt, question, sb.String())
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + truncationSuffix
}
