package qa

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/edgard/commentqa/internal/llm"
)

// DefaultConfidenceThreshold is the minimal confidence, inclusive, for a
// positive classification.
const DefaultConfidenceThreshold = 0.7

type verdict struct {
	IsQuestion *bool    `json:"is_question"`
	Confidence *float64 `json:"confidence"`
}

// Classifier labels comment text as question or not.
type Classifier struct {
	oracle    llm.Oracle
	threshold float64
	log       *slog.Logger
}

// NewClassifier creates a Classifier. A non-positive threshold selects
// DefaultConfidenceThreshold.
func NewClassifier(oracle llm.Oracle, threshold float64, log *slog.Logger) *Classifier {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{
		oracle:    oracle,
		threshold: threshold,
		log:       log.With("component", "classifier"),
	}
}

// IsQuestion reports whether the model judges text to be a question with
// enough confidence. Any oracle or decoding failure yields false.
func (c *Classifier) IsQuestion(ctx context.Context, text string) bool {
	raw, err := c.oracle.Complete(ctx, llm.Request{Prompt: classifierPrompt + text, JSON: true})
	if err != nil {
		c.log.ErrorContext(ctx, "Question classification failed", "error", err)
		return false
	}

	var v verdict
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &v); err != nil {
		c.log.ErrorContext(ctx, "Failed to decode classification verdict", "error", err, "response", raw)
		return false
	}
	if v.IsQuestion == nil || v.Confidence == nil {
		c.log.ErrorContext(ctx, "Classification verdict is missing fields", "response", raw)
		return false
	}

	ok := *v.IsQuestion && *v.Confidence >= c.threshold
	c.log.DebugContext(ctx, "Classified text", "is_question", *v.IsQuestion, "confidence", *v.Confidence, "result", ok)
	return ok
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
