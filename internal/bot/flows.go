package bot

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xaenox/shop-bot/internal/callback"
	"github.com/xaenox/shop-bot/internal/conversation"
	apperr "github.com/xaenox/shop-bot/internal/errors"
	"github.com/xaenox/shop-bot/internal/locales"
	"github.com/xaenox/shop-bot/internal/models"
	"github.com/xaenox/shop-bot/internal/photos"
	"github.com/xaenox/shop-bot/internal/storage"
)

// Flow names, also used as metric labels.
const (
	FlowRegister       = "register"
	FlowAddCategory    = "add_category"
	FlowAddItem        = "add_item"
	FlowAddFeedback    = "add_feedback"
	FlowDeleteFeedback = "delete_feedback"
)

const (
	minAge = 1
	maxAge = 150
)

var (
	categoryActions = []callback.Action{callback.CategoryGet, callback.CategoryDelete}
	itemActions     = []callback.Action{callback.ItemGet, callback.ItemDelete, callback.AddToCart, callback.RemoveFromCart}
)

func (b *Bot) handleAddCategory(ctx context.Context, req *request) error {
	b.conv.Begin(ctx, req.chatID, req.userID, b.addCategoryFlow())
	return nil
}

func (b *Bot) handleAddItem(ctx context.Context, req *request) error {
	b.conv.Begin(ctx, req.chatID, req.userID, b.addItemFlow())
	return nil
}

func (b *Bot) handleAddFeedback(ctx context.Context, req *request) error {
	if _, ok, err := b.registeredUser(ctx, req.chatID, req.userID); err != nil || !ok {
		return err
	}
	b.conv.Begin(ctx, req.chatID, req.userID, b.addFeedbackFlow())
	return nil
}

func (b *Bot) handleDeleteFeedback(ctx context.Context, req *request) error {
	b.conv.Begin(ctx, req.chatID, req.userID, b.deleteFeedbackFlow())
	return nil
}

func (b *Bot) registerFlow(username string) *conversation.Flow {
	return &conversation.Flow{
		Name: FlowRegister,
		Steps: []conversation.Step{
			conversation.AskNumber("age", b.msgs.Get(locales.AskAge), conversation.ParseInt,
				b.between(minAge, maxAge, locales.AgeRange)),
		},
		Complete: func(ctx context.Context, r conversation.Result) error {
			isAdmin := b.isAdminID(r.UserID)
			user, cart := models.NewUser(r.UserID, username, r.Answers.Int("age"), isAdmin)
			err := b.storage.InTx(ctx, func(tx storage.Writer) error {
				if _, err := tx.GetUser(ctx, r.UserID); err == nil {
					return apperr.NewAbort(b.msgs.Get(locales.AlreadyRegistered), apperr.ErrAlreadyExists)
				}
				return tx.CreateUser(ctx, user, cart)
			})
			if err != nil {
				return persistenceError("create user", err)
			}

			b.logger.Info("User registered", zap.Int64("user_id", r.UserID), zap.Bool("admin", isAdmin))
			b.reply(r.ChatID, locales.Registered)
			if isAdmin {
				b.reply(r.ChatID, locales.YouAreAdmin)
			}
			_ = b.sender.SendText(r.ChatID, b.commandHelp(isAdmin))
			if err := b.showCategories(ctx, r.ChatID); err != nil {
				b.logger.Error("Failed to show categories", zap.Error(err), zap.Int64("chat_id", r.ChatID))
			}
			return nil
		},
	}
}

func (b *Bot) addCategoryFlow() *conversation.Flow {
	return &conversation.Flow{
		Name: FlowAddCategory,
		Steps: []conversation.Step{
			conversation.AskText("name", b.msgs.Get(locales.AskCategoryName),
				b.validName(categoryActions), b.freeCategoryName),
			conversation.AskText("description", b.msgs.Get(locales.AskCategoryDesc),
				b.maxLength(models.MaxDescriptionLength, locales.DescriptionLength)),
		},
		Complete: func(ctx context.Context, r conversation.Result) error {
			category := models.NewCategory(r.Answers.Text("name"), r.Answers.Text("description"))
			err := b.storage.InTx(ctx, func(tx storage.Writer) error {
				return tx.CreateCategory(ctx, category)
			})
			if errors.Is(err, apperr.ErrAlreadyExists) {
				return apperr.NewAbort(b.msgs.Get(locales.CategoryExists), err)
			}
			if err != nil {
				return persistenceError("create category", err)
			}
			b.logger.Info("Category created", zap.String("category", category.Name), zap.Int64("user_id", r.UserID))
			b.reply(r.ChatID, locales.CategoryCreated, category.Name)
			return nil
		},
	}
}

func (b *Bot) addItemFlow() *conversation.Flow {
	return &conversation.Flow{
		Name: FlowAddItem,
		Steps: []conversation.Step{
			conversation.AskText("category", b.msgs.Get(locales.AskItemCategory), b.openCategory),
			conversation.AskText("name", b.msgs.Get(locales.AskItemName),
				b.validName(itemActions), b.freeItemName),
			conversation.AskText("description", b.msgs.Get(locales.AskItemDesc),
				b.maxLength(models.MaxDescriptionLength, locales.DescriptionLength)),
			conversation.AskNumber("units", b.msgs.Get(locales.AskUnits), conversation.ParseInt, b.nonNegative),
			conversation.AskNumber("price", b.msgs.Get(locales.AskPrice), conversation.ParseFloat, b.nonNegative),
			conversation.AskPhotos("photos", b.msgs.Get(locales.AskPhotos, models.MaxPhotosPerItem), models.MaxPhotosPerItem),
		},
		Complete: b.createItem,
	}
}

// createItem stores the collected photos, then writes the item.
func (b *Bot) createItem(ctx context.Context, r conversation.Result) error {
	name := r.Answers.Text("name")
	refs := r.Answers.Photos("photos")
	if len(refs) == 0 {
		return fmt.Errorf("item %s: %w", name, apperr.ErrPhotoSetEmpty)
	}

	ns := photos.Namespace(name)
	fileNames := make([]string, 0, len(refs))
	for _, ref := range refs {
		fileName := photos.NewFileName()
		err := b.photos.Store(ctx, ref, ns, fileName)
		b.metrics.RecordPhoto(err)
		if err != nil {
			b.discardPhotos(ctx, ns, fileNames)
			return persistenceError("store photo", err)
		}
		fileNames = append(fileNames, fileName)
	}

	var item *models.Item
	err := b.storage.InTx(ctx, func(tx storage.Writer) error {
		category, err := tx.GetCategoryByName(ctx, r.Answers.Text("category"))
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NewAbort(b.msgs.Get(locales.NoSuchCategory), err)
		}
		if err != nil {
			return err
		}
		if len(category.Items) >= models.MaxItemsPerCategory {
			return apperr.NewAbort(b.msgs.Get(locales.CategoryFull, models.MaxItemsPerCategory), nil)
		}
		item = models.NewItem(category, name, r.Answers.Text("description"),
			r.Answers.Float("price"), r.Answers.Int("units"), fileNames)
		return tx.CreateItem(ctx, item)
	})
	if err != nil {
		b.discardPhotos(ctx, ns, fileNames)
	}
	if errors.Is(err, apperr.ErrAlreadyExists) {
		return apperr.NewAbort(b.msgs.Get(locales.ItemExists), err)
	}
	if err != nil {
		return persistenceError("create item", err)
	}

	b.logger.Info("Item created", zap.String("item", item.Name), zap.Int("photos", len(fileNames)),
		zap.Int64("user_id", r.UserID))
	b.reply(r.ChatID, locales.ItemCreated, item.Name)
	return nil
}

func (b *Bot) addFeedbackFlow() *conversation.Flow {
	return &conversation.Flow{
		Name: FlowAddFeedback,
		Steps: []conversation.Step{
			conversation.AskText("title", b.msgs.Get(locales.AskFeedbackTitle),
				b.maxLength(models.MaxNameLength, locales.TextTooLong)),
			conversation.AskNumber("rating", b.msgs.Get(locales.AskRating), conversation.ParseInt,
				b.validRating),
			conversation.AskText("text", b.msgs.Get(locales.AskFeedbackText),
				b.maxLength(models.MaxFeedbackLength, locales.TextTooLong), b.moderated),
		},
		Complete: func(ctx context.Context, r conversation.Result) error {
			var feedback *models.Feedback
			err := b.storage.InTx(ctx, func(tx storage.Writer) error {
				author, err := tx.GetUser(ctx, r.UserID)
				if errors.Is(err, apperr.ErrNotFound) {
					return apperr.NewAbort(b.msgs.Get(locales.NotRegistered), err)
				}
				if err != nil {
					return err
				}
				feedback = models.NewFeedback(author, r.Answers.Text("title"), r.Answers.Text("text"), r.Answers.Int("rating"))
				return tx.CreateFeedback(ctx, feedback)
			})
			if err != nil {
				return persistenceError("create feedback", err)
			}
			b.logger.Info("Feedback saved", zap.String("feedback_id", feedback.ID), zap.Int("rating", feedback.Rating))
			b.reply(r.ChatID, locales.FeedbackSaved)
			return nil
		},
	}
}

func (b *Bot) deleteFeedbackFlow() *conversation.Flow {
	return &conversation.Flow{
		Name: FlowDeleteFeedback,
		Steps: []conversation.Step{
			conversation.AskText("id", b.msgs.Get(locales.AskFeedbackID)),
		},
		Complete: func(ctx context.Context, r conversation.Result) error {
			id := r.Answers.Text("id")
			err := b.storage.InTx(ctx, func(tx storage.Writer) error {
				return tx.DeleteFeedback(ctx, id)
			})
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NewAbort(b.msgs.Get(locales.NoSuchFeedback), err)
			}
			if err != nil {
				return persistenceError("delete feedback", err)
			}
			b.logger.Info("Feedback deleted", zap.String("feedback_id", id), zap.Int64("user_id", r.UserID))
			b.reply(r.ChatID, locales.FeedbackDeleted)
			return nil
		},
	}
}

// persistenceError keeps abort replies and wraps everything else.
func persistenceError(op string, err error) error {
	if _, ok := apperr.IsAbort(err); ok {
		return err
	}
	return apperr.NewPersistence(op, err)
}

func (b *Bot) invalid(key locales.Key, args ...interface{}) error {
	return apperr.NewInvalidInput(b.msgs.Get(key, args...))
}

func (b *Bot) between(lo, hi int, key locales.Key) conversation.Check {
	return func(_ context.Context, v conversation.Value, _ *conversation.Answers) error {
		if v.Number < float64(lo) || v.Number > float64(hi) {
			return b.invalid(key, lo, hi)
		}
		return nil
	}
}

func (b *Bot) validRating(_ context.Context, v conversation.Value, _ *conversation.Answers) error {
	if !models.ValidRating(int(v.Number)) {
		return b.invalid(locales.RatingRange, models.MinRating, models.MaxRating)
	}
	return nil
}

func (b *Bot) nonNegative(_ context.Context, v conversation.Value, _ *conversation.Answers) error {
	if v.Number < 0 {
		return b.invalid(locales.NegativeValue)
	}
	return nil
}

func (b *Bot) maxLength(limit int, key locales.Key) conversation.Check {
	return func(_ context.Context, v conversation.Value, _ *conversation.Answers) error {
		if utf8.RuneCountInString(v.Text) > limit {
			return b.invalid(key, limit)
		}
		return nil
	}
}

// validName checks length and that every button token built from the name fits.
func (b *Bot) validName(actions []callback.Action) conversation.Check {
	return func(_ context.Context, v conversation.Value, _ *conversation.Answers) error {
		if utf8.RuneCountInString(v.Text) > models.MaxNameLength || !callback.Fits(v.Text, actions...) {
			return b.invalid(locales.NameLength, models.MaxNameLength)
		}
		return nil
	}
}

func (b *Bot) freeCategoryName(ctx context.Context, v conversation.Value, _ *conversation.Answers) error {
	_, err := b.storage.GetCategoryByName(ctx, v.Text)
	switch {
	case err == nil:
		return b.invalid(locales.CategoryExists)
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	}
	return err
}

func (b *Bot) freeItemName(ctx context.Context, v conversation.Value, _ *conversation.Answers) error {
	_, err := b.storage.GetItemByName(ctx, v.Text)
	switch {
	case err == nil:
		return b.invalid(locales.ItemExists)
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	}
	return err
}

// openCategory ends the flow unless the named category exists and has room.
func (b *Bot) openCategory(ctx context.Context, v conversation.Value, _ *conversation.Answers) error {
	category, err := b.storage.GetCategoryByName(ctx, v.Text)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NewAbort(b.msgs.Get(locales.NoSuchCategory), err)
	}
	if err != nil {
		return err
	}
	if len(category.Items) >= models.MaxItemsPerCategory {
		return apperr.NewAbort(b.msgs.Get(locales.CategoryFull, models.MaxItemsPerCategory), nil)
	}
	return nil
}

func (b *Bot) moderated(ctx context.Context, v conversation.Value, _ *conversation.Answers) error {
	flagged, err := b.moderator.Flagged(ctx, v.Text)
	if err != nil {
		b.logger.Warn("Moderation unavailable, accepting feedback", zap.Error(err))
		return nil
	}
	if flagged {
		return b.invalid(locales.FeedbackRejected)
	}
	return nil
}

// discardPhotos removes photos no item refers to anymore. Failures are only logged.
func (b *Bot) discardPhotos(ctx context.Context, namespace string, names []string) {
	if len(names) == 0 {
		return
	}
	if err := b.photos.Remove(ctx, namespace, names...); err != nil {
		b.logger.Warn("Failed to remove photos", zap.String("namespace", namespace), zap.Error(err))
	}
}
