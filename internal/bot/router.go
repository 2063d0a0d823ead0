package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	apperr "github.com/xaenox/shop-bot/internal/errors"
	"github.com/xaenox/shop-bot/internal/locales"
	"github.com/xaenox/shop-bot/internal/metrics"
	"github.com/xaenox/shop-bot/internal/models"
)

type request struct {
	chatID   int64
	userID   int64
	username string
	args     string
}

type command struct {
	name        string
	adminOnly   bool
	description locales.Key
	handle      func(ctx context.Context, req *request) error
}

// ParseCommand splits "/name args" into a lower-cased name and its arguments.
// A "@botname" suffix on the name is dropped. ok is false for free text.
func ParseCommand(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	name, args, _ = strings.Cut(text, " ")
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	return strings.ToLower(name), strings.TrimLeft(args, " \t\n"), true
}

// commandList keeps menu and help order.
func (b *Bot) commandList() []command {
	return []command{
		{name: "/start", description: locales.CmdStart, handle: b.handleStart},
		{name: "/categories", description: locales.CmdCategories, handle: b.handleCategories},
		{name: "/items", description: locales.CmdItems, handle: b.handleCategories},
		{name: "/cart", description: locales.CmdCart, handle: b.handleCart},
		{name: "/info", description: locales.CmdInfo, handle: b.handleInfo},
		{name: "/feedbacks", description: locales.CmdFeedbacks, handle: b.handleFeedbacks},
		{name: "/add_feedback", description: locales.CmdAddFeedback, handle: b.handleAddFeedback},
		{name: "/add_category", adminOnly: true, description: locales.CmdAddCategory, handle: b.handleAddCategory},
		{name: "/add_item", adminOnly: true, description: locales.CmdAddItem, handle: b.handleAddItem},
		{name: "/delete_category", adminOnly: true, description: locales.CmdDeleteCategory, handle: b.handleDeleteCategory},
		{name: "/delete_item", adminOnly: true, description: locales.CmdDeleteItem, handle: b.handleDeleteItem},
		{name: "/delete_feedback", adminOnly: true, description: locales.CmdDeleteFeedback, handle: b.handleDeleteFeedback},
	}
}

func (b *Bot) commandTable() map[string]command {
	table := make(map[string]command)
	for _, c := range b.commandList() {
		table[c.name] = c
	}
	return table
}

// menu lists the commands every user may run.
func (b *Bot) menu() []tgbotapi.BotCommand {
	var menu []tgbotapi.BotCommand
	for _, c := range b.commandList() {
		if c.adminOnly {
			continue
		}
		menu = append(menu, tgbotapi.BotCommand{
			Command:     strings.TrimPrefix(c.name, "/"),
			Description: b.msgs.Get(c.description),
		})
	}
	return menu
}

// commandHelp renders the command list for a role.
func (b *Bot) commandHelp(admin bool) string {
	var sb strings.Builder
	sb.WriteString(b.msgs.Get(locales.AvailableCommands))
	for _, c := range b.commandList() {
		if !c.adminOnly {
			fmt.Fprintf(&sb, "\n%s - %s", c.name, b.msgs.Get(c.description))
		}
	}
	if !admin {
		return sb.String()
	}
	sb.WriteString("\n\n")
	sb.WriteString(b.msgs.Get(locales.AdminCommands))
	for _, c := range b.commandList() {
		if c.adminOnly {
			fmt.Fprintf(&sb, "\n%s - %s", c.name, b.msgs.Get(c.description))
		}
	}
	return sb.String()
}

func (b *Bot) dispatchCommand(ctx context.Context, name string, req *request) string {
	cmd, ok := b.commands[name]
	if !ok {
		b.logger.Debug("Ignoring unknown command", zap.String("command", name), zap.Int64("chat_id", req.chatID))
		return metrics.OutcomeIgnored
	}

	if cmd.adminOnly {
		if err := b.requireAdmin(ctx, req.userID); err != nil {
			b.handleError(req.chatID, cmd.name, err)
			return metrics.OutcomeRejected
		}
	}

	if err := cmd.handle(ctx, req); err != nil {
		b.handleError(req.chatID, cmd.name, err)
		return metrics.OutcomeFailed
	}
	return metrics.OutcomeHandled
}

// requireAdmin returns ErrPermissionDenied unless telegramID belongs to a registered admin.
func (b *Bot) requireAdmin(ctx context.Context, telegramID int64) error {
	user, err := b.storage.GetUser(ctx, telegramID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrPermissionDenied
	}
	if err != nil {
		return err
	}
	if !user.IsAdmin {
		return apperr.ErrPermissionDenied
	}
	return nil
}

// registeredUser loads the caller or tells them to register.
func (b *Bot) registeredUser(ctx context.Context, chatID, telegramID int64) (*models.User, bool, error) {
	user, err := b.storage.GetUser(ctx, telegramID)
	if errors.Is(err, apperr.ErrNotFound) {
		b.reply(chatID, locales.NotRegistered)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// handleError turns a handler error into at most one reply.
func (b *Bot) handleError(chatID int64, op string, err error) {
	log := b.logger.With(zap.Int64("chat_id", chatID), zap.String("op", op))
	switch {
	case errors.Is(err, apperr.ErrPermissionDenied):
		b.reply(chatID, locales.NoAdminPermission)
	case apperr.IsCatalogInvariant(err):
		log.Error("Catalog invariant violated", zap.Error(err))
		b.reply(chatID, locales.PicturesBroken)
	default:
		if msg, ok := apperr.IsAbort(err); ok {
			_ = b.sender.SendText(chatID, msg)
			return
		}
		log.Error("Failed to handle command", zap.Error(err))
		b.reply(chatID, locales.GenericError)
	}
}
