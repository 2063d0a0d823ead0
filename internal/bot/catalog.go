package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/shop-bot/internal/callback"
	apperr "github.com/xaenox/shop-bot/internal/errors"
	"github.com/xaenox/shop-bot/internal/locales"
	"github.com/xaenox/shop-bot/internal/models"
	"github.com/xaenox/shop-bot/internal/photos"
	"github.com/xaenox/shop-bot/internal/telegram"
)

const maxGallery = 9

func (b *Bot) handleStart(ctx context.Context, req *request) error {
	user, err := b.storage.GetUser(ctx, req.userID)
	if err == nil {
		b.reply(req.chatID, locales.AlreadyRegistered)
		_ = b.sender.SendText(req.chatID, b.commandHelp(user.IsAdmin))
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	b.reply(req.chatID, locales.RegistrationIntro)
	b.conv.Begin(ctx, req.chatID, req.userID, b.registerFlow(req.username))
	return nil
}

func (b *Bot) handleCategories(ctx context.Context, req *request) error {
	return b.showCategories(ctx, req.chatID)
}

func (b *Bot) handleCart(ctx context.Context, req *request) error {
	user, ok, err := b.registeredUser(ctx, req.chatID, req.userID)
	if err != nil || !ok {
		return err
	}
	return b.showCart(ctx, req.chatID, user)
}

func (b *Bot) handleInfo(ctx context.Context, req *request) error {
	user, ok, err := b.registeredUser(ctx, req.chatID, req.userID)
	if err != nil || !ok {
		return err
	}
	name := user.Username
	if name == "" {
		name = b.msgs.Get(locales.Anonymous)
	}
	role := b.msgs.Get(locales.RoleCustomer)
	if user.IsAdmin {
		role = b.msgs.Get(locales.RoleAdmin)
	}
	_ = b.sender.SendText(req.chatID, b.msgs.Get(locales.Info, name, user.Age, role)+"\n\n"+b.commandHelp(user.IsAdmin))
	return nil
}

func (b *Bot) handleFeedbacks(ctx context.Context, req *request) error {
	return b.showFeedbacks(ctx, req.chatID, req.userID, 0)
}

func (b *Bot) handleDeleteCategory(ctx context.Context, req *request) error {
	categories, err := b.storage.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	if len(categories) == 0 {
		b.reply(req.chatID, locales.NoCategories)
		return nil
	}
	buttons := make([]telegram.Button, 0, len(categories))
	for _, c := range categories {
		buttons = append(buttons, telegram.Button{Text: c.Name, Data: callback.EncodeCategoryDelete(c.Name)})
	}
	return b.sender.SendWithKeyboard(req.chatID, b.msgs.Get(locales.ChooseCategoryDelete), telegram.Grid(2, buttons...))
}

func (b *Bot) handleDeleteItem(ctx context.Context, req *request) error {
	items, err := b.storage.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	if len(items) == 0 {
		b.reply(req.chatID, locales.NoItems)
		return nil
	}
	buttons := make([]telegram.Button, 0, len(items))
	for _, it := range items {
		buttons = append(buttons, telegram.Button{Text: it.Name, Data: callback.EncodeItemDelete(it.Name)})
	}
	return b.sender.SendWithKeyboard(req.chatID, b.msgs.Get(locales.ChooseItemDelete), telegram.Grid(2, buttons...))
}

func (b *Bot) showCategories(ctx context.Context, chatID int64) error {
	categories, err := b.storage.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	if len(categories) == 0 {
		b.reply(chatID, locales.NoCategories)
		return nil
	}

	entries := make([]string, 0, len(categories)+1)
	entries = append(entries, b.msgs.Get(locales.CategoriesHeader))
	buttons := make([]telegram.Button, 0, len(categories))
	for _, c := range categories {
		entries = append(entries, b.msgs.Get(locales.CategoryEntry, c.Name, c.Description))
		buttons = append(buttons, telegram.Button{Text: c.Name, Data: callback.EncodeCategoryGet(c.Name)})
	}
	return b.sender.SendWithKeyboard(chatID, strings.Join(entries, "\n\n"), telegram.Grid(2, buttons...))
}

// showCategory sends the first photo of every item with a numbered price list.
func (b *Bot) showCategory(ctx context.Context, chatID int64, category *models.Category) error {
	if len(category.Items) == 0 {
		b.reply(chatID, locales.NoItemsInCategory)
		return nil
	}
	if err := checkPhotoCount(len(category.Items)); err != nil {
		return fmt.Errorf("category %s: %w", category.Name, err)
	}

	lines := []string{b.msgs.Get(locales.CategoryItemsHeader, category.Name)}
	buttons := make([]telegram.Button, 0, len(category.Items))
	refs := make([]photoRef, 0, len(category.Items))
	for i, it := range category.Items {
		if len(it.Photos) == 0 {
			return fmt.Errorf("item %s: %w", it.Name, apperr.ErrPhotoSetEmpty)
		}
		lines = append(lines, b.msgs.Get(locales.ItemShort, i+1, it.Name, it.Price))
		buttons = append(buttons, telegram.Button{Text: it.Name, Data: callback.EncodeItemGet(it.Name)})
		refs = append(refs, photoRef{namespace: photos.Namespace(it.Name), name: it.Photos[0]})
	}
	keyboard := telegram.Grid(3, buttons...)
	return b.sendGallery(ctx, chatID, refs, strings.Join(lines, "\n"), b.msgs.Get(locales.ChooseItem), keyboard)
}

func (b *Bot) showItem(ctx context.Context, chatID int64, item *models.Item) error {
	if err := checkPhotoCount(len(item.Photos)); err != nil {
		return fmt.Errorf("item %s: %w", item.Name, err)
	}
	ns := photos.Namespace(item.Name)
	refs := make([]photoRef, 0, len(item.Photos))
	for _, name := range item.Photos {
		refs = append(refs, photoRef{namespace: ns, name: name})
	}
	caption := b.msgs.Get(locales.ItemLong, item.Name, item.Price, item.Description, item.UnitsInStock)
	keyboard := telegram.Grid(1, telegram.Button{
		Text: b.msgs.Get(locales.AddToCartButton),
		Data: callback.EncodeAddToCart(item.Name),
	})
	return b.sendGallery(ctx, chatID, refs, caption, item.Name, keyboard)
}

func (b *Bot) showCart(ctx context.Context, chatID int64, user *models.User) error {
	cart, err := b.storage.GetCart(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}
	if len(cart.Items) == 0 {
		b.reply(chatID, locales.CartEmpty)
		return nil
	}

	lines := []string{b.msgs.Get(locales.CartHeader)}
	cartLines := cart.Lines()
	buttons := make([]telegram.Button, 0, len(cartLines))
	for i, line := range cartLines {
		lines = append(lines, b.msgs.Get(locales.CartLine, i+1, line.Item.Name, line.Quantity,
			line.Item.Price*float64(line.Quantity)))
		buttons = append(buttons, telegram.Button{
			Text: b.msgs.Get(locales.RemoveButton, line.Item.Name),
			Data: callback.EncodeRemoveFromCart(line.Item.Name),
		})
	}
	lines = append(lines, "", b.msgs.Get(locales.CartTotal, cart.Total()))
	return b.sender.SendWithKeyboard(chatID, strings.Join(lines, "\n"), telegram.Grid(1, buttons...))
}

// showFeedbacks renders page (0-based), newest first.
func (b *Bot) showFeedbacks(ctx context.Context, chatID, telegramID int64, page int) error {
	size := b.cfg.FeedbackPageSize
	total, err := b.storage.CountFeedbacks(ctx)
	if err != nil {
		return fmt.Errorf("count feedbacks: %w", err)
	}
	if total == 0 {
		b.reply(chatID, locales.NoFeedbacks)
		return nil
	}

	if page < 0 || page > (total-1)/size {
		b.reply(chatID, locales.NoMoreFeedbacks)
		return nil
	}
	offset := page * size
	feedbacks, err := b.storage.ListFeedbacks(ctx, offset, size)
	if err != nil {
		return fmt.Errorf("list feedbacks: %w", err)
	}
	if len(feedbacks) == 0 {
		b.reply(chatID, locales.NoMoreFeedbacks)
		return nil
	}

	showIDs := b.requireAdmin(ctx, telegramID) == nil
	entries := []string{b.msgs.Get(locales.FeedbacksHeader, page+1)}
	for _, f := range feedbacks {
		author := f.AuthorUsername
		if author == "" {
			author = b.msgs.Get(locales.Anonymous)
		}
		entry := b.msgs.Get(locales.FeedbackEntry, f.Title, f.Rating, f.Text, author, f.CreatedAt.Format("02.01.2006"))
		if showIDs {
			entry += "\n" + b.msgs.Get(locales.FeedbackID, f.ID)
		}
		entries = append(entries, entry)
	}

	var more []telegram.Button
	if total-offset > size {
		more = append(more, telegram.Button{Text: b.msgs.Get(locales.SeeMore), Data: callback.EncodeFeedbackPage(page + 1)})
	}
	return b.sender.SendWithKeyboard(chatID, strings.Join(entries, "\n\n"), telegram.Grid(1, more...))
}

type photoRef struct {
	namespace string
	name      string
}

func checkPhotoCount(n int) error {
	switch {
	case n == 0:
		return apperr.ErrPhotoSetEmpty
	case n > maxGallery:
		return fmt.Errorf("%d photos: %w", n, apperr.ErrTooManyPhotos)
	}
	return nil
}

// sendGallery sends one photo with caption and buttons, or an album followed
// by a button message titled buttonsText. Without the photos the caption is
// sent as text after the broken pictures notice.
func (b *Bot) sendGallery(ctx context.Context, chatID int64, refs []photoRef, caption, buttonsText string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	opened, err := b.openPhotos(ctx, refs)
	if errors.Is(err, apperr.ErrPhotosMissing) {
		b.reply(chatID, locales.PicturesBroken)
		return b.sender.SendWithKeyboard(chatID, caption, keyboard)
	}
	if err != nil {
		return err
	}
	defer func() {
		for _, rc := range opened {
			_ = rc.Close()
		}
	}()

	uploads := make([]telegram.Photo, len(opened))
	for i, rc := range opened {
		uploads[i] = telegram.Photo{Name: refs[i].name, Reader: rc}
	}

	if len(uploads) == 1 {
		return b.sender.SendPhoto(chatID, uploads[0], caption, &keyboard)
	}
	if err := b.sender.SendPhotoGroup(chatID, uploads, caption); err != nil {
		return err
	}
	return b.sender.SendWithKeyboard(chatID, buttonsText, keyboard)
}

// openPhotos checks every photo exists before opening any of them.
func (b *Bot) openPhotos(ctx context.Context, refs []photoRef) ([]io.ReadCloser, error) {
	for _, ref := range refs {
		ok, err := b.photos.Exists(ctx, ref.namespace, ref.name)
		if err != nil {
			return nil, fmt.Errorf("check photo %s/%s: %w", ref.namespace, ref.name, err)
		}
		if !ok {
			b.logger.Warn("Photo missing from store",
				zap.String("namespace", ref.namespace), zap.String("name", ref.name))
			return nil, fmt.Errorf("photo %s/%s: %w", ref.namespace, ref.name, apperr.ErrPhotosMissing)
		}
	}

	opened := make([]io.ReadCloser, 0, len(refs))
	for _, ref := range refs {
		rc, err := b.photos.Open(ctx, ref.namespace, ref.name)
		if err != nil {
			for _, o := range opened {
				_ = o.Close()
			}
			if errors.Is(err, photos.ErrNotFound) {
				return nil, fmt.Errorf("photo %s/%s: %w", ref.namespace, ref.name, apperr.ErrPhotosMissing)
			}
			return nil, fmt.Errorf("open photo %s/%s: %w", ref.namespace, ref.name, err)
		}
		opened = append(opened, rc)
	}
	return opened, nil
}
