package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/shop-bot/internal/conversation"
	"github.com/xaenox/shop-bot/internal/locales"
	"github.com/xaenox/shop-bot/internal/metrics"
	"github.com/xaenox/shop-bot/internal/moderation"
	"github.com/xaenox/shop-bot/internal/photos"
	"github.com/xaenox/shop-bot/internal/storage"
	"github.com/xaenox/shop-bot/internal/telegram"
)

// Config tunes the bot behaviour.
type Config struct {
	AdminIDs             []int64
	MaxConcurrentUpdates int
	FeedbackPageSize     int
	Conversation         conversation.Config
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrentUpdates: 10,
		FeedbackPageSize:     3,
		Conversation:         conversation.DefaultConfig(),
	}
}

type Option func(*Bot)

func WithConfig(cfg Config) Option {
	return func(b *Bot) { b.cfg = cfg }
}

func WithMessages(msgs *locales.Messages) Option {
	return func(b *Bot) { b.msgs = msgs }
}

func WithModerator(m moderation.Moderator) Option {
	return func(b *Bot) { b.moderator = m }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

type Bot struct {
	sender     telegram.MessageSender
	storage    storage.Storage
	photos     *photos.Library
	moderator  moderation.Moderator
	msgs       *locales.Messages
	metrics    *metrics.Metrics
	conv       *conversation.Manager
	dispatcher *Dispatcher
	commands   map[string]command
	cfg        Config
	logger     *zap.Logger
}

func New(api telegram.BotAPI, store storage.Storage, library *photos.Library, logger *zap.Logger, opts ...Option) *Bot {
	b := &Bot{
		storage:   store,
		photos:    library,
		moderator: moderation.Nop{},
		msgs:      locales.New("en"),
		cfg:       DefaultConfig(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.cfg.FeedbackPageSize <= 0 {
		b.cfg.FeedbackPageSize = 3
	}

	b.sender = telegram.NewSender(api, logger)
	b.dispatcher = NewDispatcher(b.cfg.MaxConcurrentUpdates, logger)
	b.conv = conversation.NewManager(b.sender, b.cfg.Conversation, conversation.Texts{
		WrongNumberFormat: b.msgs.Get(locales.WrongNumberFormat),
		WrongPhotoFormat:  b.msgs.Get(locales.WrongPhotoFormat),
		Failure:           b.msgs.Get(locales.GenericError),
	}, logger, conversation.WithObserver(b.metrics))
	b.commands = b.commandTable()
	return b
}

// Run handles updates until ctx is done or the channel closes.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	b.conv.SetScheduler(func(chatID int64, task func(ctx context.Context)) {
		b.dispatcher.Submit(ctx, chatID, task)
	})
	defer b.dispatcher.Wait()
	defer b.conv.Close()

	if err := b.sender.SetCommands(b.menu()); err != nil {
		b.logger.Warn("Bot command menu not registered", zap.Error(err))
	}

	b.logger.Info("Bot started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bot stopping", zap.Error(ctx.Err()))
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			chatID := updateChatID(update)
			if chatID == 0 {
				continue
			}
			b.dispatcher.Submit(ctx, chatID, func(ctx context.Context) {
				b.HandleUpdate(ctx, update)
			})
		}
	}
}

// HandleUpdate processes one update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	switch {
	case update.Message != nil && update.Message.Chat != nil && update.Message.From != nil:
		outcome := b.handleMessage(ctx, update.Message)
		b.metrics.RecordUpdate("message", outcome, time.Since(start))
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		outcome := b.handleCallback(ctx, update.CallbackQuery)
		b.metrics.RecordUpdate("callback", outcome, time.Since(start))
	default:
		b.metrics.RecordUpdate("other", metrics.OutcomeIgnored, time.Since(start))
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) string {
	in := conversation.Input{
		ChatID: message.Chat.ID,
		UserID: message.From.ID,
		Text:   message.Text,
	}
	if n := len(message.Photo); n > 0 {
		in.PhotoRef = message.Photo[n-1].FileID
	}

	if b.conv.Deliver(ctx, in) {
		return metrics.OutcomeConsumed
	}

	name, args, ok := ParseCommand(message.Text)
	if !ok {
		b.reply(message.Chat.ID, locales.WrongCommand)
		return metrics.OutcomeRejected
	}
	req := &request{
		chatID:   message.Chat.ID,
		userID:   message.From.ID,
		username: message.From.UserName,
		args:     args,
	}
	return b.dispatchCommand(ctx, name, req)
}

// Conversations exposes the pending dialogue table.
func (b *Bot) Conversations() *conversation.Manager {
	return b.conv
}

func (b *Bot) reply(chatID int64, key locales.Key, args ...interface{}) {
	_ = b.sender.SendText(chatID, b.msgs.Get(key, args...))
}

func (b *Bot) isAdminID(telegramID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}
