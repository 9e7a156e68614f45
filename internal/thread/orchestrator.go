package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/avast/retry-go/v4"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/edgard/commentqa/internal/database"
	"github.com/edgard/commentqa/internal/qa"
)

var errParentNotStored = errors.New("parent message not stored yet")

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Logger      *slog.Logger
	Store       Store
	Classifier  Classifier
	Synthesizer Synthesizer
	Fetcher     Fetcher
	Extractor   Extractor
	Replier     Replier
	Switch      *Switch
	Bot         BotIdentity
}

// Orchestrator drives group messages through the comment pipeline. Each call
// is sequential; concurrent calls share only the Store and the Switch.
type Orchestrator struct {
	deps Deps
	cfg  Config
	log  *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil Switch starts enabled.
func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Switch == nil {
		deps.Switch = NewSwitch(true)
	}
	return &Orchestrator{
		deps: deps,
		cfg:  cfg.withDefaults(),
		log:  deps.Logger.With("component", "orchestrator"),
	}
}

// Handle runs one group message to a terminal state. Side effects committed
// before a failure, such as a stored comment, are kept.
func (o *Orchestrator) Handle(ctx context.Context, in Incoming) (out Outcome) {
	log := o.log.With("message_id", in.MessageID, "chat_id", in.ChatID)

	if !o.deps.Switch.Enabled() {
		log.DebugContext(ctx, "Processing disabled, message ignored")
		return discarded(ReasonDisabled)
	}

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Panic while processing message", "panic", r, "stack", string(debug.Stack()))
			out = discarded(ReasonPanic)
		}
	}()

	var parentID *int64
	if in.IsReply() {
		log.InfoContext(ctx, "Resolving parent of comment", "reply_to", in.ReplyTo)
		parent, ok := o.awaitParent(ctx, log, database.PlatformID(in.ReplyTo))
		if !ok {
			log.WarnContext(ctx, "Parent message not found in store, comment discarded", "reply_to", in.ReplyTo)
			return discarded(ReasonParentMissing)
		}
		parentID = &parent.ID
		log.InfoContext(ctx, "Parent message resolved", "parent_id", parent.ID)
	}

	commentID := database.PlatformID(in.MessageID)
	if _, ok := o.deps.Store.Insert(ctx, &database.Message{
		TelegramID: commentID,
		Text:       in.Text,
		UserID:     in.UserID,
		Username:   in.Username,
		ParentID:   parentID,
	}); ok {
		log.InfoContext(ctx, "Comment stored")
	} else {
		log.ErrorContext(ctx, "Failed to store comment, continuing")
	}

	if !in.IsReply() {
		return discarded(ReasonNotReply)
	}
	if !o.deps.Classifier.IsQuestion(ctx, in.Text) {
		log.DebugContext(ctx, "Comment is not a question")
		return discarded(ReasonNotQuestion)
	}
	log.InfoContext(ctx, "Question detected")

	post, ok := o.deps.Store.FindByExternalID(ctx, database.PlatformID(in.ReplyTo))
	if !ok || len(post.URL) == 0 {
		log.InfoContext(ctx, "Parent message has no article URLs", "reply_to", in.ReplyTo)
		return discarded(ReasonNoURLs)
	}

	articles := o.readArticles(ctx, log, post.URL)
	if len(articles) == 0 {
		log.WarnContext(ctx, "No article could be read", "urls", len(post.URL))
		return discarded(ReasonNoArticles)
	}

	answer, ok := o.deps.Synthesizer.Synthesize(ctx, in.Text, articles)
	if !ok {
		return discarded(ReasonNoAnswer)
	}

	if err := o.deps.Replier.Reply(ctx, in.ChatID, in.MessageID, answer); err != nil {
		log.ErrorContext(ctx, "Failed to deliver answer", "error", err)
		return discarded(ReasonDeliveryFailed)
	}

	botID, botUsername := o.deps.Bot.ID, o.deps.Bot.Username
	answerMsg := &database.Message{
		TelegramID: database.AnswerID(commentID),
		Text:       answer,
		UserID:     &botID,
	}
	if botUsername != "" {
		answerMsg.Username = &botUsername
	}
	if comment, ok := o.deps.Store.FindByExternalID(ctx, commentID); ok {
		answerMsg.ParentID = &comment.ID
	} else {
		log.WarnContext(ctx, "Comment not found in store, answer stored without parent")
	}
	if _, ok := o.deps.Store.Insert(ctx, answerMsg); !ok {
		log.ErrorContext(ctx, "Answer delivered but not stored")
		return discarded(ReasonAnswerNotStored)
	}

	log.InfoContext(ctx, "Answer sent and stored", "articles", len(articles))
	return completed(ReasonAnswered)
}

// awaitParent looks the parent up immediately and then every PollInterval
// until it appears or SettleTimeout has elapsed.
func (o *Orchestrator) awaitParent(ctx context.Context, log *slog.Logger, id database.ExternalID) (*database.Message, bool) {
	attempts := uint(o.cfg.SettleTimeout/o.cfg.PollInterval) + 1

	var parent *database.Message
	err := retry.Do(
		func() error {
			m, ok := o.deps.Store.FindByExternalID(ctx, id)
			if !ok {
				return errParentNotStored
			}
			parent = m
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(o.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, _ error) {
			log.DebugContext(ctx, "Parent not stored yet, waiting", "attempt", n+1, "max_attempts", attempts)
		}),
	)
	if err != nil {
		if !errors.Is(err, errParentNotStored) {
			log.WarnContext(ctx, "Parent lookup interrupted", "error", err)
		}
		return nil, false
	}
	return parent, true
}

// readArticles fetches and extracts at most MaxArticles URLs in order,
// skipping the ones that fail.
func (o *Orchestrator) readArticles(ctx context.Context, log *slog.Logger, urls database.URLList) []qa.Article {
	if len(urls) > o.cfg.MaxArticles {
		urls = urls[:o.cfg.MaxArticles]
	}

	articles := make([]qa.Article, 0, len(urls))
	for _, url := range urls {
		body, ok := o.deps.Fetcher.Fetch(ctx, url)
		if !ok {
			continue
		}
		text, ok := o.deps.Extractor.Extract(body)
		if !ok {
			log.WarnContext(ctx, "No text extracted from article", "url", url)
			continue
		}
		articles = append(articles, qa.Article{URL: url, Text: text})
	}
	return articles
}

// HandleEdit applies the new text of an edited message to its stored copy.
func (o *Orchestrator) HandleEdit(ctx context.Context, in Incoming) (out Outcome) {
	log := o.log.With("message_id", in.MessageID, "chat_id", in.ChatID)

	if !o.deps.Switch.Enabled() {
		return discarded(ReasonDisabled)
	}

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Panic while applying edit", "panic", r, "stack", string(debug.Stack()))
			out = discarded(ReasonPanic)
		}
	}()

	stored, ok := o.deps.Store.FindByExternalID(ctx, database.PlatformID(in.MessageID))
	if !ok {
		log.DebugContext(ctx, "Edited message is not stored, ignoring")
		return discarded(ReasonNotStored)
	}
	if stored.Text == in.Text {
		return discarded(ReasonUnchanged)
	}

	text := in.Text
	if _, ok := o.deps.Store.Update(ctx, stored.ID, database.MessageUpdate{Text: &text}); !ok {
		log.ErrorContext(ctx, "Failed to update edited message", "id", stored.ID)
		return discarded(ReasonUpdateFailed)
	}

	log.InfoContext(ctx, "Stored message text updated", "id", stored.ID, "diff", textDiff(stored.Text, in.Text))
	return completed(ReasonEdited)
}

// textDiff renders the change between two texts as a compact patch.
func textDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))
	patch := dmp.PatchToText(dmp.PatchMake(before, diffs))
	if patch == "" {
		return fmt.Sprintf("%d -> %d characters", len(before), len(after))
	}
	return patch
}
