// Package conversation runs multi-step chat dialogues.
//
// A Manager keeps at most one Session per chat. Each Session waits for the
// answer to one Step at a time, with a deadline driven by a timer. Inputs are
// delivered by the update dispatcher before any command routing happens.
package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apperr "github.com/xaenox/shop-bot/internal/errors"
)

// Outcomes reported to the Observer.
const (
	OutcomeCompleted = "completed"
	OutcomeAbandoned = "abandoned"
	OutcomeAborted   = "aborted"
	OutcomeFailed    = "failed"
	OutcomeReplaced  = "replaced"
)

// Replier sends texts to a chat.
type Replier interface {
	SendText(chatID int64, text string) error
}

// Observer is notified when sessions start and end.
type Observer interface {
	SessionStarted(flow string)
	SessionEnded(flow, outcome string)
}

// Scheduler runs task in the serial context of chatID.
type Scheduler func(chatID int64, task func(ctx context.Context))

// Input is an inbound chat message.
type Input struct {
	ChatID   int64
	UserID   int64
	Text     string
	PhotoRef string // file id of the largest photo variant, empty for non-photo messages
}

// Result is handed to Flow.Complete.
type Result struct {
	ChatID  int64
	UserID  int64
	Answers *Answers
}

// Flow is a sequence of steps ending in Complete.
// Complete errors are reported to the user: an AbortError with its message,
// anything else with the generic failure text.
type Flow struct {
	Name     string
	Steps    []Step
	Complete func(ctx context.Context, r Result) error
}

// Config holds the answer windows.
type Config struct {
	PromptTimeout            time.Duration
	PhotoTimeout             time.Duration
	PhotoContinuationTimeout time.Duration
}

// DefaultConfig waits three minutes for answers and one second between photos.
func DefaultConfig() Config {
	return Config{
		PromptTimeout:            180 * time.Second,
		PhotoTimeout:             180 * time.Second,
		PhotoContinuationTimeout: time.Second,
	}
}

// Texts are the fixed replies the Manager sends itself.
type Texts struct {
	WrongNumberFormat string
	WrongPhotoFormat  string
	Failure           string
}

// Session is the pending dialogue of one chat.
type Session struct {
	ChatID   int64
	UserID   int64
	Question string
	Deadline time.Time

	flow    *Flow
	step    int
	answers *Answers
	gen     uint64
	timer   *time.Timer
}

// Manager owns all pending sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	gen      uint64
	closed   bool

	replier  Replier
	cfg      Config
	texts    Texts
	logger   *zap.Logger
	observer Observer
	schedule Scheduler
	clock    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver reports session lifecycle events to o.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithScheduler routes expiry handling through s.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.schedule = s }
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string) {}
func (nopObserver) SessionEnded(string, string) {}

func NewManager(replier Replier, cfg Config, texts Texts, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[int64]*Session),
		replier:  replier,
		cfg:      cfg,
		texts:    texts,
		logger:   logger,
		observer: nopObserver{},
		schedule: func(chatID int64, task func(ctx context.Context)) { task(context.Background()) },
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetScheduler replaces the expiry scheduler. Call it before the first Begin.
func (m *Manager) SetScheduler(s Scheduler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedule = s
}

// Begin starts flow for chatID, replacing any pending session of that chat.
func (m *Manager) Begin(ctx context.Context, chatID, userID int64, flow *Flow) {
	if prev := m.take(chatID); prev != nil {
		m.observer.SessionEnded(prev.flow.Name, OutcomeReplaced)
		m.logger.Debug("Conversation replaced",
			zap.Int64("chat_id", chatID), zap.String("flow", prev.flow.Name))
	}

	sess := &Session{ChatID: chatID, UserID: userID, flow: flow, answers: newAnswers()}
	m.observer.SessionStarted(flow.Name)
	m.logger.Debug("Conversation started", zap.Int64("chat_id", chatID), zap.String("flow", flow.Name))
	m.enterStep(ctx, sess)
}

// Deliver hands in to the pending session of its chat. It reports whether the
// input was consumed. Commands and inputs from other users are never consumed.
func (m *Manager) Deliver(ctx context.Context, in Input) bool {
	if strings.HasPrefix(in.Text, "/") {
		return false
	}

	m.mu.Lock()
	sess, ok := m.sessions[in.ChatID]
	if !ok || sess.UserID != in.UserID {
		m.mu.Unlock()
		return false
	}
	m.detach(sess)
	m.mu.Unlock()

	m.process(ctx, sess, in)
	return true
}

// Pending reports whether chatID has an outstanding prompt.
func (m *Manager) Pending(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[chatID]
	return ok
}

// Session returns a copy of the pending session of chatID.
func (m *Manager) Session(chatID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[chatID]
	if !ok {
		return Session{}, false
	}
	return Session{ChatID: sess.ChatID, UserID: sess.UserID, Question: sess.Question, Deadline: sess.Deadline}, true
}

// Active returns the number of pending sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops all timers and forgets every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		m.detach(sess)
	}
	m.closed = true
}

func (m *Manager) take(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[chatID]
	if !ok {
		return nil
	}
	m.detach(sess)
	return sess
}

// detach removes sess from the table. The caller holds m.mu.
func (m *Manager) detach(sess *Session) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	delete(m.sessions, sess.ChatID)
}

// arm puts sess back in the table and expires it at deadline.
func (m *Manager) arm(sess *Session, deadline time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.gen++
	gen := m.gen
	sess.gen = gen
	sess.Deadline = deadline
	wait := deadline.Sub(m.clock())
	if wait < 0 {
		wait = 0
	}
	sess.timer = time.AfterFunc(wait, func() { m.expire(sess.ChatID, gen) })
	m.sessions[sess.ChatID] = sess
}

func (m *Manager) expire(chatID int64, gen uint64) {
	m.mu.Lock()
	sess, ok := m.sessions[chatID]
	if !ok || sess.gen != gen {
		m.mu.Unlock()
		return
	}
	sess.timer = nil
	delete(m.sessions, chatID)
	schedule := m.schedule
	m.mu.Unlock()

	schedule(chatID, func(ctx context.Context) { m.onExpired(ctx, sess) })
}

func (m *Manager) onExpired(ctx context.Context, sess *Session) {
	step := sess.flow.Steps[sess.step]
	if step.kind == kindPhotos && len(sess.answers.photos[step.Key]) > 0 {
		m.advance(ctx, sess)
		return
	}

	log := m.logger.With(zap.Int64("chat_id", sess.ChatID), zap.String("flow", sess.flow.Name),
		zap.String("step", step.Key))
	if step.kind == kindPhotos {
		log.Info("Conversation failed: no photos received")
		m.reply(sess.ChatID, m.texts.Failure)
		m.observer.SessionEnded(sess.flow.Name, OutcomeFailed)
		return
	}
	log.Debug("Conversation abandoned after timeout")
	m.observer.SessionEnded(sess.flow.Name, OutcomeAbandoned)
}

func (m *Manager) stepWindow(sess *Session) time.Duration {
	step := sess.flow.Steps[sess.step]
	if step.kind != kindPhotos {
		return m.cfg.PromptTimeout
	}
	if len(sess.answers.photos[step.Key]) == 0 {
		return m.cfg.PhotoTimeout
	}
	return m.cfg.PhotoContinuationTimeout
}

func (m *Manager) enterStep(ctx context.Context, sess *Session) {
	if sess.step >= len(sess.flow.Steps) {
		m.complete(ctx, sess)
		return
	}
	m.ask(sess)
}

// ask sends the current question and opens a fresh window.
func (m *Manager) ask(sess *Session) {
	step := sess.flow.Steps[sess.step]
	sess.Question = step.Prompt
	m.reply(sess.ChatID, step.Prompt)
	m.arm(sess, m.clock().Add(m.stepWindow(sess)))
}

func (m *Manager) process(ctx context.Context, sess *Session, in Input) {
	step := sess.flow.Steps[sess.step]

	switch step.kind {
	case kindPhotos:
		if in.PhotoRef == "" {
			m.reply(sess.ChatID, m.texts.WrongPhotoFormat)
			m.arm(sess, m.clock().Add(m.stepWindow(sess)))
			return
		}
		sess.answers.photos[step.Key] = append(sess.answers.photos[step.Key], in.PhotoRef)
		if len(sess.answers.photos[step.Key]) >= step.maxPhotos {
			m.advance(ctx, sess)
			return
		}
		m.arm(sess, m.clock().Add(m.cfg.PhotoContinuationTimeout))

	case kindText, kindNumber:
		text := strings.TrimSpace(in.Text)
		if text == "" {
			// not an answer; keep waiting within the current window
			m.arm(sess, sess.Deadline)
			return
		}
		v := Value{Text: text}
		if step.kind == kindNumber {
			n, err := step.parse(text)
			if err != nil {
				m.reply(sess.ChatID, m.texts.WrongNumberFormat)
				m.ask(sess)
				return
			}
			v.Number = n
		}
		if !m.runChecks(ctx, sess, step, v) {
			return
		}
		if step.kind == kindNumber {
			sess.answers.numbers[step.Key] = v.Number
		}
		sess.answers.texts[step.Key] = text
		m.advance(ctx, sess)
	}
}

// runChecks reports whether v was accepted. Otherwise it has already
// re-prompted or ended the session.
func (m *Manager) runChecks(ctx context.Context, sess *Session, step Step, v Value) bool {
	for _, check := range step.checks {
		err := check(ctx, v, sess.answers)
		if err == nil {
			continue
		}
		if msg, ok := apperr.IsInvalidInput(err); ok {
			m.reply(sess.ChatID, msg)
			m.ask(sess)
			return false
		}
		m.fail(sess, err)
		return false
	}
	return true
}

func (m *Manager) advance(ctx context.Context, sess *Session) {
	sess.step++
	m.enterStep(ctx, sess)
}

func (m *Manager) complete(ctx context.Context, sess *Session) {
	if sess.flow.Complete == nil {
		m.observer.SessionEnded(sess.flow.Name, OutcomeCompleted)
		return
	}
	err := sess.flow.Complete(ctx, Result{ChatID: sess.ChatID, UserID: sess.UserID, Answers: sess.answers})
	if err != nil {
		m.fail(sess, err)
		return
	}
	m.observer.SessionEnded(sess.flow.Name, OutcomeCompleted)
	m.logger.Debug("Conversation completed",
		zap.Int64("chat_id", sess.ChatID), zap.String("flow", sess.flow.Name))
}

// fail ends sess after err. Abort messages are shown as is.
func (m *Manager) fail(sess *Session, err error) {
	if msg, ok := apperr.IsAbort(err); ok {
		m.logger.Info("Conversation aborted", zap.Int64("chat_id", sess.ChatID),
			zap.String("flow", sess.flow.Name), zap.Error(err))
		m.reply(sess.ChatID, msg)
		m.observer.SessionEnded(sess.flow.Name, OutcomeAborted)
		return
	}
	m.logger.Error("Conversation failed", zap.Int64("chat_id", sess.ChatID),
		zap.String("flow", sess.flow.Name), zap.Error(err))
	m.reply(sess.ChatID, m.texts.Failure)
	m.observer.SessionEnded(sess.flow.Name, OutcomeFailed)
}

func (m *Manager) reply(chatID int64, text string) {
	if text == "" {
		return
	}
	if err := m.replier.SendText(chatID, text); err != nil {
		m.logger.Error("Failed to send conversation message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
