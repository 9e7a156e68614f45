package thread

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edgard/commentqa/internal/database"
	"github.com/edgard/commentqa/internal/qa"
)

const (
	testChatID = int64(-100500)
	botID      = int64(777)
	botName    = "answer_bot"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(database.DriverSQLite, filepath.Join(t.TempDir(), "thread.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, discardLogger())
}

func ptr[T any](v T) *T { return &v }

type fakeClassifier struct {
	result bool
	panics bool
	calls  int
}

func (f *fakeClassifier) IsQuestion(context.Context, string) bool {
	f.calls++
	if f.panics {
		panic("classifier exploded")
	}
	return f.result
}

type fakeSynthesizer struct {
	answer   string
	ok       bool
	calls    int
	question string
	articles []qa.Article
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, question string, articles []qa.Article) (string, bool) {
	f.calls++
	f.question = question
	f.articles = articles
	return f.answer, f.ok
}

// fakeFetcher serves bodies by URL; unknown URLs fail.
type fakeFetcher struct {
	bodies  map[string]string
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, bool) {
	f.fetched = append(f.fetched, url)
	body, ok := f.bodies[url]
	return body, ok
}

type passthroughExtractor struct{}

func (passthroughExtractor) Extract(rawHTML string) (string, bool) {
	text := strings.TrimSpace(rawHTML)
	return text, text != ""
}

type sentReply struct {
	chatID, replyTo int64
	text            string
}

type fakeReplier struct {
	err  error
	sent []sentReply
}

func (f *fakeReplier) Reply(_ context.Context, chatID, replyTo int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentReply{chatID: chatID, replyTo: replyTo, text: text})
	return nil
}

// hidingStore pretends the given external id is absent for the first
// `hidden` lookups.
type hidingStore struct {
	database.Store
	target database.ExternalID
	hidden int

	mu      sync.Mutex
	lookups int
}

func (s *hidingStore) FindByExternalID(ctx context.Context, id database.ExternalID) (*database.Message, bool) {
	if id == s.target {
		s.mu.Lock()
		s.lookups++
		n := s.lookups
		s.mu.Unlock()
		if n <= s.hidden {
			return nil, false
		}
	}
	return s.Store.FindByExternalID(ctx, id)
}

type harness struct {
	store       database.Store
	classifier  *fakeClassifier
	synthesizer *fakeSynthesizer
	fetcher     *fakeFetcher
	replier     *fakeReplier
	sw          *Switch
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		store:       newTestStore(t),
		classifier:  &fakeClassifier{result: true},
		synthesizer: &fakeSynthesizer{answer: "Yes, per Article 1, it is good.", ok: true},
		fetcher:     &fakeFetcher{bodies: map[string]string{"https://example.com/a": "Article A text"}},
		replier:     &fakeReplier{},
		sw:          NewSwitch(true),
	}
}

func (h *harness) orchestrator(store Store) *Orchestrator {
	if store == nil {
		store = h.store
	}
	return NewOrchestrator(Deps{
		Logger:      discardLogger(),
		Store:       store,
		Classifier:  h.classifier,
		Synthesizer: h.synthesizer,
		Fetcher:     h.fetcher,
		Extractor:   passthroughExtractor{},
		Replier:     h.replier,
		Switch:      h.sw,
		Bot:         BotIdentity{ID: botID, Username: botName},
	}, Config{PollInterval: time.Millisecond, SettleTimeout: 5 * time.Millisecond})
}

func (h *harness) storePost(t *testing.T, telegramID int64, urls ...string) *database.Message {
	t.Helper()
	post, ok := h.store.Insert(context.Background(), &database.Message{
		TelegramID: database.PlatformID(telegramID),
		Text:       "Channel post",
		IsPost:     true,
		URL:        urls,
	})
	if !ok {
		t.Fatal("failed to store post")
	}
	return post
}

func (h *harness) find(t *testing.T, id database.ExternalID) (*database.Message, bool) {
	t.Helper()
	return h.store.FindByExternalID(context.Background(), id)
}

func comment(id, replyTo int64, text string) Incoming {
	return Incoming{
		ChatID:    testChatID,
		MessageID: id,
		Text:      text,
		UserID:    ptr(int64(42)),
		Username:  ptr("reader"),
		ReplyTo:   replyTo,
	}
}

func TestHandleAnswersQuestion(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	post := h.storePost(t, 10, "https://example.com/a")

	out := h.orchestrator(nil).Handle(context.Background(), comment(11, 10, "Is this good?"))
	if out != completed(ReasonAnswered) {
		t.Fatalf("Handle() = %+v, want completed", out)
	}

	stored, ok := h.find(t, database.PlatformID(11))
	if !ok {
		t.Fatal("comment not stored")
	}
	if stored.ParentID == nil || *stored.ParentID != post.ID {
		t.Errorf("comment parent = %v, want %d", stored.ParentID, post.ID)
	}
	if stored.Text != "Is this good?" || stored.UserID == nil || *stored.UserID != 42 || stored.Username == nil || *stored.Username != "reader" {
		t.Errorf("comment stored as %+v", stored)
	}

	want := sentReply{chatID: testChatID, replyTo: 11, text: "Yes, per Article 1, it is good."}
	if len(h.replier.sent) != 1 || h.replier.sent[0] != want {
		t.Errorf("replies = %+v, want [%+v]", h.replier.sent, want)
	}
	if h.synthesizer.question != "Is this good?" || len(h.synthesizer.articles) != 1 || h.synthesizer.articles[0].Text != "Article A text" {
		t.Errorf("synthesizer got %q, %+v", h.synthesizer.question, h.synthesizer.articles)
	}

	answer, ok := h.find(t, database.AnswerID(database.PlatformID(11)))
	if !ok {
		t.Fatal("answer not stored")
	}
	if answer.TelegramID.String() != "answer_11" {
		t.Errorf("answer id = %s, want answer_11", answer.TelegramID)
	}
	if answer.ParentID == nil || *answer.ParentID != stored.ID {
		t.Errorf("answer parent = %v, want comment store id %d", answer.ParentID, stored.ID)
	}
	if answer.UserID == nil || *answer.UserID != botID || answer.Username == nil || *answer.Username != botName {
		t.Errorf("answer author = %v/%v", answer.UserID, answer.Username)
	}
	if answer.Text != want.text || answer.IsPost || len(answer.URL) != 0 {
		t.Errorf("answer stored as %+v", answer)
	}
}

func TestHandleFetchFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.storePost(t, 10, "https://example.com/unreachable")

	out := h.orchestrator(nil).Handle(context.Background(), comment(11, 10, "Is this good?"))
	if out != discarded(ReasonNoArticles) {
		t.Fatalf("Handle() = %+v, want no_articles", out)
	}
	if _, ok := h.find(t, database.PlatformID(11)); !ok {
		t.Error("comment not stored")
	}
	if len(h.replier.sent) != 0 {
		t.Errorf("unexpected replies: %+v", h.replier.sent)
	}
	if h.synthesizer.calls != 0 {
		t.Error("synthesizer called without articles")
	}
	if _, ok := h.find(t, database.AnswerID(database.PlatformID(11))); ok {
		t.Error("answer stored although nothing was sent")
	}
}

func TestHandleNonReply(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out := h.orchestrator(nil).Handle(context.Background(), comment(20, 0, "Hello everyone"))
	if out != discarded(ReasonNotReply) {
		t.Fatalf("Handle() = %+v, want not_reply", out)
	}
	stored, ok := h.find(t, database.PlatformID(20))
	if !ok {
		t.Fatal("comment not stored")
	}
	if stored.ParentID != nil {
		t.Errorf("parent = %d, want none", *stored.ParentID)
	}
	if h.classifier.calls != 0 || h.synthesizer.calls != 0 {
		t.Error("classification or synthesis attempted for a non-reply")
	}
}

func TestHandleDisabled(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.storePost(t, 10, "https://example.com/a")
	h.sw.Disable()
	o := h.orchestrator(nil)

	for _, in := range []Incoming{comment(11, 10, "Is this good?"), comment(12, 0, "hi")} {
		if out := o.Handle(context.Background(), in); out != discarded(ReasonDisabled) {
			t.Errorf("Handle(%d) = %+v, want disabled", in.MessageID, out)
		}
		if _, ok := h.find(t, database.PlatformID(in.MessageID)); ok {
			t.Errorf("message %d stored while disabled", in.MessageID)
		}
	}
	if len(h.replier.sent) != 0 || h.classifier.calls != 0 {
		t.Error("pipeline ran while disabled")
	}
}

func TestHandleOrphanReply(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	store := &hidingStore{Store: h.store, target: database.PlatformID(999), hidden: 1 << 30}

	start := time.Now()
	out := h.orchestrator(store).Handle(context.Background(), comment(11, 999, "Is this good?"))
	if out != discarded(ReasonParentMissing) {
		t.Fatalf("Handle() = %+v, want parent_missing", out)
	}
	if _, ok := h.find(t, database.PlatformID(11)); ok {
		t.Error("orphan reply was stored")
	}
	// One immediate lookup plus one per poll interval within the settle timeout.
	if store.lookups != 6 {
		t.Errorf("parent looked up %d times, want 6", store.lookups)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("gave up after %v, before the settle timeout", elapsed)
	}
	if h.classifier.calls != 0 {
		t.Error("orphan reply was classified")
	}
}

func TestHandleWaitsForLateParent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	post := h.storePost(t, 10, "https://example.com/a")
	store := &hidingStore{Store: h.store, target: database.PlatformID(10), hidden: 3}

	h.classifier.result = false
	out := h.orchestrator(store).Handle(context.Background(), comment(11, 10, "nice"))
	if out != discarded(ReasonNotQuestion) {
		t.Fatalf("Handle() = %+v, want not_question", out)
	}
	stored, ok := h.find(t, database.PlatformID(11))
	if !ok || stored.ParentID == nil || *stored.ParentID != post.ID {
		t.Fatalf("comment = %+v, %v; want parent %d", stored, ok, post.ID)
	}
	if store.lookups != 4 {
		t.Errorf("parent looked up %d times, want 4", store.lookups)
	}
}

func TestHandleParentWaitCancelled(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	store := &hidingStore{Store: h.store, target: database.PlatformID(10), hidden: 1 << 30}

	o := NewOrchestrator(Deps{
		Logger:     discardLogger(),
		Store:      store,
		Classifier: h.classifier,
		Replier:    h.replier,
	}, Config{PollInterval: time.Hour, SettleTimeout: 8 * time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if out := o.Handle(ctx, comment(11, 10, "?")); out != discarded(ReasonParentMissing) {
		t.Fatalf("Handle() = %+v, want parent_missing", out)
	}
}

func TestHandleStopsEarly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		urls       []string
		setup      func(h *harness)
		wantReason string
	}{
		{
			name:       "not a question",
			urls:       []string{"https://example.com/a"},
			setup:      func(h *harness) { h.classifier.result = false },
			wantReason: ReasonNotQuestion,
		},
		{
			name:       "post without urls",
			wantReason: ReasonNoURLs,
		},
		{
			name:       "synthesis fails",
			urls:       []string{"https://example.com/a"},
			setup:      func(h *harness) { h.synthesizer.ok = false; h.synthesizer.answer = "" },
			wantReason: ReasonNoAnswer,
		},
		{
			name:       "delivery fails",
			urls:       []string{"https://example.com/a"},
			setup:      func(h *harness) { h.replier.err = errors.New("chat not found") },
			wantReason: ReasonDeliveryFailed,
		},
		{
			name:       "classifier panics",
			urls:       []string{"https://example.com/a"},
			setup:      func(h *harness) { h.classifier.panics = true },
			wantReason: ReasonPanic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			h.storePost(t, 10, tt.urls...)
			if tt.setup != nil {
				tt.setup(h)
			}

			out := h.orchestrator(nil).Handle(context.Background(), comment(11, 10, "Is this good?"))
			if out != discarded(tt.wantReason) {
				t.Fatalf("Handle() = %+v, want discarded/%s", out, tt.wantReason)
			}
			if _, ok := h.find(t, database.PlatformID(11)); !ok {
				t.Error("comment committed before the failure is missing")
			}
			if _, ok := h.find(t, database.AnswerID(database.PlatformID(11))); ok {
				t.Error("answer stored")
			}
		})
	}
}

func TestHandleReadsAtMostThreeArticles(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.fetcher.bodies = map[string]string{
		"https://example.com/1": "one",
		"https://example.com/3": "   ",
		"https://example.com/4": "four",
	}
	h.storePost(t, 10,
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
		"https://example.com/4",
	)

	if out := h.orchestrator(nil).Handle(context.Background(), comment(11, 10, "?")); out.State != StateCompleted {
		t.Fatalf("Handle() = %+v, want completed", out)
	}

	wantFetched := []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}
	if strings.Join(h.fetcher.fetched, ",") != strings.Join(wantFetched, ",") {
		t.Errorf("fetched %v, want %v", h.fetcher.fetched, wantFetched)
	}
	if len(h.synthesizer.articles) != 1 || h.synthesizer.articles[0].URL != "https://example.com/1" {
		t.Errorf("articles = %+v, want only the first", h.synthesizer.articles)
	}
}

func TestHandleDuplicateCommentStillAnswers(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.storePost(t, 10, "https://example.com/a")
	if _, ok := h.store.Insert(context.Background(), &database.Message{TelegramID: database.PlatformID(11), Text: "earlier copy"}); !ok {
		t.Fatal("failed to seed comment")
	}

	out := h.orchestrator(nil).Handle(context.Background(), comment(11, 10, "Is this good?"))
	if out != completed(ReasonAnswered) {
		t.Fatalf("Handle() = %+v, want completed", out)
	}
	existing, _ := h.find(t, database.PlatformID(11))
	answer, ok := h.find(t, database.AnswerID(database.PlatformID(11)))
	if !ok || answer.ParentID == nil || *answer.ParentID != existing.ID {
		t.Errorf("answer = %+v, want parent %d", answer, existing.ID)
	}
}

func TestHandleEdit(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	o := h.orchestrator(nil)
	ctx := context.Background()

	if out := o.Handle(ctx, comment(20, 0, "Helo world")); out != discarded(ReasonNotReply) {
		t.Fatalf("Handle() = %+v", out)
	}

	edited := comment(20, 0, "Hello world")
	if out := o.HandleEdit(ctx, edited); out != completed(ReasonEdited) {
		t.Fatalf("HandleEdit() = %+v, want edited", out)
	}
	stored, _ := h.find(t, database.PlatformID(20))
	if stored.Text != "Hello world" {
		t.Errorf("text = %q, want the edited text", stored.Text)
	}
	if stored.UserID == nil || *stored.UserID != 42 {
		t.Error("edit touched other fields")
	}

	if out := o.HandleEdit(ctx, edited); out != discarded(ReasonUnchanged) {
		t.Errorf("HandleEdit(same text) = %+v, want unchanged", out)
	}
	if out := o.HandleEdit(ctx, comment(404, 0, "x")); out != discarded(ReasonNotStored) {
		t.Errorf("HandleEdit(unknown) = %+v, want not_stored", out)
	}

	h.sw.Disable()
	if out := o.HandleEdit(ctx, comment(20, 0, "changed again")); out != discarded(ReasonDisabled) {
		t.Errorf("HandleEdit(disabled) = %+v, want disabled", out)
	}
}

// panickingUpdateStore panics on every Update.
type panickingUpdateStore struct {
	database.Store
}

func (panickingUpdateStore) Update(context.Context, int64, database.MessageUpdate) (*database.Message, bool) {
	panic("update exploded")
}

func TestHandleEditRecoversFromPanic(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if out := h.orchestrator(nil).Handle(ctx, comment(30, 0, "before")); out != discarded(ReasonNotReply) {
		t.Fatalf("Handle() = %+v", out)
	}

	o := h.orchestrator(panickingUpdateStore{Store: h.store})
	if out := o.HandleEdit(ctx, comment(30, 0, "after")); out != discarded(ReasonPanic) {
		t.Fatalf("HandleEdit() = %+v, want discarded/panic", out)
	}
	stored, _ := h.find(t, database.PlatformID(30))
	if stored.Text != "before" {
		t.Errorf("text = %q, want the original text", stored.Text)
	}
}

func TestTextDiff(t *testing.T) {
	t.Parallel()

	got := textDiff("Helo world", "Hello world")
	if !strings.HasPrefix(got, "@@") || !strings.Contains(got, "+l") {
		t.Errorf("textDiff() = %q, want a patch adding the letter", got)
	}
}

func TestSwitch(t *testing.T) {
	t.Parallel()

	s := NewSwitch(false)
	if s.Enabled() {
		t.Fatal("NewSwitch(false) is enabled")
	}
	if prev := s.Enable(); prev || !s.Enabled() {
		t.Errorf("Enable() prev = %v, enabled = %v", prev, s.Enabled())
	}
	if prev := s.Disable(); !prev || s.Enabled() {
		t.Errorf("Disable() prev = %v, enabled = %v", prev, s.Enabled())
	}
}
