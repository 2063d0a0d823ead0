package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperr "github.com/xaenox/shop-bot/internal/errors"
)

const (
	chatID = int64(100)
	userID = int64(7)
)

var testTexts = Texts{
	WrongNumberFormat: "Wrong number format",
	WrongPhotoFormat:  "Wrong photo format",
	Failure:           "Something went wrong",
}

type recordingReplier struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingReplier) SendText(chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingReplier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func (r *recordingReplier) last() string {
	all := r.all()
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) SessionStarted(string) {}

func (o *recordingObserver) SessionEnded(flow, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) all() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.outcomes...)
}

// completion captures the Result passed to Flow.Complete.
type completion struct {
	mu     sync.Mutex
	result *Result
	err    error
}

func (c *completion) fn(ctx context.Context, r Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = &r
	return c.err
}

func (c *completion) get() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func newTestManager(cfg Config) (*Manager, *recordingReplier, *recordingObserver) {
	replier := &recordingReplier{}
	observer := &recordingObserver{}
	m := NewManager(replier, cfg, testTexts, zap.NewNop(), WithObserver(observer))
	return m, replier, observer
}

func longConfig() Config {
	return Config{PromptTimeout: time.Minute, PhotoTimeout: time.Minute, PhotoContinuationTimeout: time.Minute}
}

func text(s string) Input {
	return Input{ChatID: chatID, UserID: userID, Text: s}
}

func photo(ref string) Input {
	return Input{ChatID: chatID, UserID: userID, PhotoRef: ref}
}

func TestTextAndNumberFlow(t *testing.T) {
	m, replier, observer := newTestManager(longConfig())
	defer m.Close()
	done := &completion{}

	m.Begin(context.Background(), chatID, userID, &Flow{
		Name: "register",
		Steps: []Step{
			AskText("name", "Enter name"),
			AskNumber("age", "Enter age", ParseInt),
		},
		Complete: done.fn,
	})
	assert.Equal(t, "Enter name", replier.last())
	assert.True(t, m.Pending(chatID))

	require.True(t, m.Deliver(context.Background(), text("  Alice ")))
	assert.Equal(t, "Enter age", replier.last())

	require.True(t, m.Deliver(context.Background(), text("seventeen")))
	all := replier.all()
	assert.Equal(t, []string{"Wrong number format", "Enter age"}, all[len(all)-2:])

	require.True(t, m.Deliver(context.Background(), text("17")))
	res := done.get()
	require.NotNil(t, res)
	assert.Equal(t, "Alice", res.Answers.Text("name"))
	assert.Equal(t, 17, res.Answers.Int("age"))
	assert.False(t, m.Pending(chatID))
	assert.Equal(t, []string{OutcomeCompleted}, observer.all())
}

func TestCommandsAndStrangersAreNotConsumed(t *testing.T) {
	m, _, _ := newTestManager(longConfig())
	defer m.Close()

	m.Begin(context.Background(), chatID, userID, &Flow{Name: "f", Steps: []Step{AskText("a", "q")}})

	assert.False(t, m.Deliver(context.Background(), text("/cart")))
	assert.False(t, m.Deliver(context.Background(), Input{ChatID: chatID, UserID: 999, Text: "hi"}))
	assert.False(t, m.Deliver(context.Background(), Input{ChatID: 555, UserID: userID, Text: "hi"}))
	assert.True(t, m.Pending(chatID))
}

func TestNoSessionNothingConsumed(t *testing.T) {
	m, _, _ := newTestManager(longConfig())
	assert.False(t, m.Deliver(context.Background(), text("hello")))
}

func TestInvalidInputReprompts(t *testing.T) {
	m, replier, _ := newTestManager(longConfig())
	defer m.Close()
	done := &completion{}
	notTooLong := func(ctx context.Context, v Value, a *Answers) error {
		if len(v.Text) > 3 {
			return apperr.NewInvalidInput("Too long")
		}
		return nil
	}

	m.Begin(context.Background(), chatID, userID, &Flow{
		Name:     "f",
		Steps:    []Step{AskText("name", "Enter name", notTooLong)},
		Complete: done.fn,
	})
	require.True(t, m.Deliver(context.Background(), text("abcdef")))
	all := replier.all()
	assert.Equal(t, []string{"Enter name", "Too long", "Enter name"}, all)
	assert.Nil(t, done.get())

	require.True(t, m.Deliver(context.Background(), text("abc")))
	require.NotNil(t, done.get())
}

func TestAbortEndsFlowWithMessage(t *testing.T) {
	m, replier, observer := newTestManager(longConfig())
	defer m.Close()
	done := &completion{}
	mustExist := func(ctx context.Context, v Value, a *Answers) error {
		return apperr.NewAbort("No such category with this name.", apperr.ErrNotFound)
	}

	m.Begin(context.Background(), chatID, userID, &Flow{
		Name:     "add_item",
		Steps:    []Step{AskText("category", "Enter category name", mustExist), AskText("name", "Enter item name")},
		Complete: done.fn,
	})
	require.True(t, m.Deliver(context.Background(), text("Shoes")))

	assert.Equal(t, "No such category with this name.", replier.last())
	assert.False(t, m.Pending(chatID))
	assert.Nil(t, done.get())
	assert.Equal(t, []string{OutcomeAborted}, observer.all())
}

func TestCompleteErrorSendsFailure(t *testing.T) {
	m, replier, observer := newTestManager(longConfig())
	defer m.Close()
	done := &completion{err: apperr.NewPersistence("create category", errors.New("disk full"))}

	m.Begin(context.Background(), chatID, userID, &Flow{
		Name:     "add_category",
		Steps:    []Step{AskText("name", "Enter category name")},
		Complete: done.fn,
	})
	require.True(t, m.Deliver(context.Background(), text("Hats")))

	assert.Equal(t, testTexts.Failure, replier.last())
	assert.Equal(t, []string{OutcomeFailed}, observer.all())
}

func TestTextTimeoutAbandonsSilently(t *testing.T) {
	m, replier, observer := newTestManager(Config{
		PromptTimeout: 30 * time.Millisecond, PhotoTimeout: time.Minute, PhotoContinuationTimeout: time.Minute,
	})
	defer m.Close()
	done := &completion{}

	m.Begin(context.Background(), chatID, userID, &Flow{
		Name: "f", Steps: []Step{AskText("a", "question")}, Complete: done.fn,
	})

	require.Eventually(t, func() bool { return !m.Pending(chatID) }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(observer.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"question"}, replier.all())
	assert.Equal(t, []string{OutcomeAbandoned}, observer.all())
	assert.Nil(t, done.get())
	assert.False(t, m.Deliver(context.Background(), text("late answer")))
}

func TestNinePhotosComplete(t *testing.T) {
	m, _, _ := newTestManager(longConfig())
	defer m.Close()
	done := &completion{}

	m.Begin(context.Background(), chatID, userID, &Flow{
		Name: "add_item", Steps: []Step{AskPhotos("photos", "Send photos", 9)}, Complete: done.fn,
	})
	for i := 0; i < 9; i++ {
		require.True(t, m.Deliver(context.Background(), photo(string(rune('a'+i)))))
	}

	res := done.get()
	require.NotNil(t, res)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}, res.Answers.Photos("photos"))
	assert.False(t, m.Pending(chatID))
}

func TestZeroPhotosFails(t *testing.T) {
	m, replier, observer := newTestManager(Config{
		PromptTimeout: time.Minute, PhotoTimeout: 30 * time.Millisecond, PhotoContinuationTimeout: time.Minute,
	})
	defer m.Close()
	done := &completion{}

	m.Begin(context.Background(), chatID, userID, &Flow{
		Name: "add_item", Steps: []Step{AskPhotos("photos", "Send photos", 9)}, Complete: done.fn,
	})

	require.Eventually(t, func() bool { return len(observer.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, testTexts.Failure, replier.last())
	assert.Nil(t, done.get())
	assert.Equal(t, []string{OutcomeFailed}, observer.all())
}

func TestPhotoTimeoutAfterSomePhotosCompletes(t *testing.T) {
	m, _, _ := newTestManager(Config{
		PromptTimeout: time.Minute, PhotoTimeout: time.Minute, PhotoContinuationTimeout: 30 * time.Millisecond,
	})
	defer m.Close()
	done := &completion{}

	m.Begin(context.Background(), chatID, userID, &Flow{
		Name: "add_item", Steps: []Step{AskPhotos("photos", "Send photos", 9)}, Complete: done.fn,
	})
	require.True(t, m.Deliver(context.Background(), photo("p1")))
	require.True(t, m.Deliver(context.Background(), photo("p2")))

	require.Eventually(t, func() bool { return done.get() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"p1", "p2"}, done.get().Answers.Photos("photos"))
}

func TestNonPhotoAtPhotoStep(t *testing.T) {
	m, replier, _ := newTestManager(longConfig())
	defer m.Close()

	m.Begin(context.Background(), chatID, userID, &Flow{
		Name: "add_item", Steps: []Step{AskPhotos("photos", "Send photos", 9)},
	})
	require.True(t, m.Deliver(context.Background(), text("not a photo")))

	assert.Equal(t, "Wrong photo format", replier.last())
	assert.True(t, m.Pending(chatID))
}

func TestPhotoAtTextStepIsIgnored(t *testing.T) {
	m, replier, _ := newTestManager(longConfig())
	defer m.Close()

	m.Begin(context.Background(), chatID, userID, &Flow{Name: "f", Steps: []Step{AskText("a", "question")}})
	before, ok := m.Session(chatID)
	require.True(t, ok)

	require.True(t, m.Deliver(context.Background(), photo("p1")))

	after, ok := m.Session(chatID)
	require.True(t, ok)
	assert.Equal(t, before.Deadline, after.Deadline)
	assert.Equal(t, []string{"question"}, replier.all())
}

func TestBeginReplacesPendingSession(t *testing.T) {
	m, _, observer := newTestManager(longConfig())
	defer m.Close()
	first, second := &completion{}, &completion{}

	m.Begin(context.Background(), chatID, userID, &Flow{Name: "one", Steps: []Step{AskText("a", "q1")}, Complete: first.fn})
	m.Begin(context.Background(), chatID, userID, &Flow{Name: "two", Steps: []Step{AskText("b", "q2")}, Complete: second.fn})

	require.True(t, m.Deliver(context.Background(), text("x")))
	assert.Nil(t, first.get())
	require.NotNil(t, second.get())
	assert.Equal(t, "x", second.get().Answers.Text("b"))
	assert.Equal(t, []string{OutcomeReplaced, OutcomeCompleted}, observer.all())
	assert.Equal(t, 0, m.Active())
}

func TestExpiryGoesThroughScheduler(t *testing.T) {
	var mu sync.Mutex
	var scheduled []int64
	replier := &recordingReplier{}
	m := NewManager(replier, Config{
		PromptTimeout: 20 * time.Millisecond, PhotoTimeout: 20 * time.Millisecond, PhotoContinuationTimeout: 20 * time.Millisecond,
	}, testTexts, zap.NewNop(), WithScheduler(func(id int64, task func(ctx context.Context)) {
		mu.Lock()
		scheduled = append(scheduled, id)
		mu.Unlock()
		task(context.Background())
	}))
	defer m.Close()

	m.Begin(context.Background(), chatID, userID, &Flow{Name: "f", Steps: []Step{AskText("a", "q")}})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(scheduled) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFlowWithoutStepsCompletesImmediately(t *testing.T) {
	m, replier, _ := newTestManager(longConfig())
	done := &completion{}

	m.Begin(context.Background(), chatID, userID, &Flow{Name: "empty", Complete: done.fn})

	require.NotNil(t, done.get())
	assert.Empty(t, replier.all())
	assert.False(t, m.Pending(chatID))
}

func TestCloseStopsTimers(t *testing.T) {
	m, replier, _ := newTestManager(Config{
		PromptTimeout: time.Minute, PhotoTimeout: 20 * time.Millisecond, PhotoContinuationTimeout: time.Minute,
	})

	m.Begin(context.Background(), chatID, userID, &Flow{Name: "f", Steps: []Step{AskPhotos("p", "Send photos", 9)}})
	m.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"Send photos"}, replier.all())
	assert.Equal(t, 0, m.Active())
}

func TestParsers(t *testing.T) {
	tests := []struct {
		name   string
		parse  NumberParser
		in     string
		want   float64
		wantOK bool
	}{
		{"int", ParseInt, "17", 17, true},
		{"int spaces", ParseInt, " 42 ", 42, true},
		{"int negative", ParseInt, "-1", -1, true},
		{"int decimal", ParseInt, "1.5", 0, false},
		{"int word", ParseInt, "ten", 0, false},
		{"int overflow", ParseInt, "99999999999999999999", 0, false},
		{"float dot", ParseFloat, "12.5", 12.5, true},
		{"float comma", ParseFloat, "12,5", 12.5, true},
		{"float int", ParseFloat, "3", 3, true},
		{"float nan", ParseFloat, "NaN", 0, false},
		{"float inf", ParseFloat, "Inf", 0, false},
		{"float empty", ParseFloat, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse(tt.in)
			if !tt.wantOK {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
