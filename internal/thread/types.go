// Package thread runs every incoming group message through the comment
// pipeline: gate, parent resolution, persistence, question detection,
// article retrieval, answer synthesis, delivery and answer persistence.
package thread

import (
	"context"
	"time"

	"github.com/edgard/commentqa/internal/database"
	"github.com/edgard/commentqa/internal/qa"
)

// Store is the part of database.Store the pipeline needs.
type Store interface {
	Insert(ctx context.Context, message *database.Message) (*database.Message, bool)
	FindByExternalID(ctx context.Context, id database.ExternalID) (*database.Message, bool)
	Update(ctx context.Context, id int64, update database.MessageUpdate) (*database.Message, bool)
}

// Classifier decides whether a comment is a question.
type Classifier interface {
	IsQuestion(ctx context.Context, text string) bool
}

// Synthesizer answers a question from article texts.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, articles []qa.Article) (string, bool)
}

// Fetcher downloads a page body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, bool)
}

// Extractor turns a page body into plain text.
type Extractor interface {
	Extract(rawHTML string) (string, bool)
}

// Replier sends text to a chat as a reply to an existing message.
type Replier interface {
	Reply(ctx context.Context, chatID, replyToMessageID int64, text string) error
}

// BotIdentity identifies the bot as author of stored answers.
type BotIdentity struct {
	ID       int64
	Username string
}

// Incoming is a group message as seen by the pipeline.
type Incoming struct {
	ChatID    int64
	MessageID int64
	Text      string
	UserID    *int64
	Username  *string
	// ReplyTo is the platform id of the replied-to message, zero when the
	// message is not a reply.
	ReplyTo int64
}

// IsReply reports whether the message replies to another one.
func (in Incoming) IsReply() bool { return in.ReplyTo != 0 }

// State is the terminal state of a pipeline run.
type State string

// Terminal states.
const (
	StateDiscarded State = "discarded"
	StateCompleted State = "completed"
)

// Reasons reported with an Outcome.
const (
	ReasonDisabled        = "disabled"
	ReasonParentMissing   = "parent_missing"
	ReasonNotReply        = "not_reply"
	ReasonNotQuestion     = "not_question"
	ReasonNoURLs          = "no_urls"
	ReasonNoArticles      = "no_articles"
	ReasonNoAnswer        = "no_answer"
	ReasonDeliveryFailed  = "delivery_failed"
	ReasonAnswerNotStored = "answer_not_stored"
	ReasonPanic           = "panic"
	ReasonAnswered        = "answered"

	ReasonNotStored    = "not_stored"
	ReasonUnchanged    = "unchanged"
	ReasonUpdateFailed = "update_failed"
	ReasonEdited       = "edited"
)

// Outcome is the result of Handle or HandleEdit.
type Outcome struct {
	State  State
	Reason string
}

func discarded(reason string) Outcome { return Outcome{State: StateDiscarded, Reason: reason} }

func completed(reason string) Outcome { return Outcome{State: StateCompleted, Reason: reason} }

// Defaults for Config.
const (
	DefaultPollInterval  = time.Second
	DefaultSettleTimeout = 8 * time.Second
	DefaultMaxArticles   = 3
)

// Config tunes the pipeline.
type Config struct {
	// PollInterval is the delay between parent lookups.
	PollInterval time.Duration
	// SettleTimeout bounds the total wait for a parent to appear.
	SettleTimeout time.Duration
	// MaxArticles is how many URLs of a post are read.
	MaxArticles int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.SettleTimeout < 0 {
		c.SettleTimeout = DefaultSettleTimeout
	}
	if c.MaxArticles <= 0 {
		c.MaxArticles = DefaultMaxArticles
	}
	return c
}
