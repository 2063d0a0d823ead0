package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/shop-bot/internal/callback"
	apperr "github.com/xaenox/shop-bot/internal/errors"
	"github.com/xaenox/shop-bot/internal/locales"
	"github.com/xaenox/shop-bot/internal/metrics"
	"github.com/xaenox/shop-bot/internal/models"
	"github.com/xaenox/shop-bot/internal/photos"
	"github.com/xaenox/shop-bot/internal/storage"
)

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) string {
	_ = b.sender.AckCallback(query.ID)

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	log := b.logger.With(zap.Int64("chat_id", chatID), zap.String("data", query.Data))

	intent, err := callback.Decode(query.Data)
	if err != nil {
		log.Warn("Dropping callback with malformed data", zap.Error(err))
		return metrics.OutcomeIgnored
	}
	b.metrics.RecordCallback(intent.Action.String())

	err = b.routeCallback(ctx, chatID, query.From.ID, intent)
	switch {
	case err == nil:
		return metrics.OutcomeHandled
	case errors.Is(err, apperr.ErrNotFound):
		// the button outlived its entity
		log.Warn("Dropping callback for missing entity", zap.Error(err))
		return metrics.OutcomeIgnored
	default:
		b.handleError(chatID, intent.Action.String(), err)
		return metrics.OutcomeFailed
	}
}

func (b *Bot) routeCallback(ctx context.Context, chatID, telegramID int64, intent callback.Intent) error {
	switch intent.Action {
	case callback.CategoryGet:
		category, err := b.findCategory(ctx, intent.Subject)
		if err != nil {
			return err
		}
		return b.showCategory(ctx, chatID, category)

	case callback.ItemGet:
		item, err := b.findItem(ctx, intent.Subject)
		if err != nil {
			return err
		}
		return b.showItem(ctx, chatID, item)

	case callback.CategoryDelete:
		if err := b.requireAdmin(ctx, telegramID); err != nil {
			return err
		}
		category, err := b.findCategory(ctx, intent.Subject)
		if err != nil {
			return err
		}
		err = b.storage.InTx(ctx, func(tx storage.Writer) error {
			return tx.DeleteCategory(ctx, category.ID)
		})
		if err != nil {
			return apperr.NewPersistence("delete category", err)
		}
		for _, it := range category.Items {
			b.discardPhotos(ctx, photos.Namespace(it.Name), it.Photos)
		}
		b.logger.Info("Category deleted", zap.String("category", category.Name), zap.Int64("user_id", telegramID))
		b.reply(chatID, locales.CategoryDeleted, category.Name)
		return nil

	case callback.ItemDelete:
		if err := b.requireAdmin(ctx, telegramID); err != nil {
			return err
		}
		item, err := b.findItem(ctx, intent.Subject)
		if err != nil {
			return err
		}
		err = b.storage.InTx(ctx, func(tx storage.Writer) error {
			return tx.DeleteItem(ctx, item.ID)
		})
		if err != nil {
			return apperr.NewPersistence("delete item", err)
		}
		b.discardPhotos(ctx, photos.Namespace(item.Name), item.Photos)
		b.logger.Info("Item deleted", zap.String("item", item.Name), zap.Int64("user_id", telegramID))
		b.reply(chatID, locales.ItemDeleted, item.Name)
		return nil

	case callback.AddToCart, callback.RemoveFromCart:
		return b.changeCart(ctx, chatID, telegramID, intent)

	case callback.FeedbackPage:
		return b.showFeedbacks(ctx, chatID, telegramID, intent.Page)
	}
	return fmt.Errorf("unhandled callback action %s", intent.Action)
}

func (b *Bot) changeCart(ctx context.Context, chatID, telegramID int64, intent callback.Intent) error {
	user, ok, err := b.registeredUser(ctx, chatID, telegramID)
	if err != nil || !ok {
		return err
	}
	item, err := b.findItem(ctx, intent.Subject)
	if err != nil {
		return err
	}
	cart, err := b.storage.GetCart(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}

	if intent.Action == callback.AddToCart {
		err = b.storage.InTx(ctx, func(tx storage.Writer) error {
			return tx.AddToCart(ctx, cart.ID, item.ID)
		})
		if err != nil {
			return apperr.NewPersistence("add to cart", err)
		}
		b.reply(chatID, locales.AddedToCart, item.Name)
		return nil
	}

	var removed bool
	err = b.storage.InTx(ctx, func(tx storage.Writer) error {
		var err error
		removed, err = tx.RemoveFromCart(ctx, cart.ID, item.ID)
		return err
	})
	if err != nil {
		return apperr.NewPersistence("remove from cart", err)
	}
	if !removed {
		b.reply(chatID, locales.NotInCart, item.Name)
		return nil
	}
	b.reply(chatID, locales.RemovedFromCart, item.Name)
	return nil
}

// findCategory scans the catalog for the category whose token subject is subject.
func (b *Bot) findCategory(ctx context.Context, subject string) (*models.Category, error) {
	categories, err := b.storage.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range categories {
		if strings.ToLower(c.Name) == subject {
			return c, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", subject, apperr.ErrNotFound)
}

func (b *Bot) findItem(ctx context.Context, subject string) (*models.Item, error) {
	items, err := b.storage.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	for _, it := range items {
		if strings.ToLower(it.Name) == subject {
			return it, nil
		}
	}
	return nil, fmt.Errorf("item %q: %w", subject, apperr.ErrNotFound)
}
