package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperr "github.com/xaenox/shop-bot/internal/errors"
	"github.com/xaenox/shop-bot/internal/models"
)

// MemoryStorage keeps everything in process memory. Transactions work on a
// copy of the data that replaces the original on commit.
type MemoryStorage struct {
	mu   sync.RWMutex
	data *memState
}

type memState struct {
	users      map[string]models.User // by user id
	byTelegram map[int64]string
	carts      map[string]memCart // by owner id
	categories map[string]models.Category
	items      map[string]models.Item
	feedbacks  map[string]models.Feedback
}

type memCart struct {
	id      string
	itemIDs []string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: newMemState()}
}

func newMemState() *memState {
	return &memState{
		users:      make(map[string]models.User),
		byTelegram: make(map[int64]string),
		carts:      make(map[string]memCart),
		categories: make(map[string]models.Category),
		items:      make(map[string]models.Item),
		feedbacks:  make(map[string]models.Feedback),
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.byTelegram {
		c.byTelegram[k] = v
	}
	for k, v := range st.carts {
		c.carts[k] = memCart{id: v.id, itemIDs: append([]string(nil), v.itemIDs...)}
	}
	for k, v := range st.categories {
		c.categories[k] = v
	}
	for k, v := range st.items {
		v.Photos = append([]string(nil), v.Photos...)
		c.items[k] = v
	}
	for k, v := range st.feedbacks {
		c.feedbacks[k] = v
	}
	return c
}

func (s *MemoryStorage) reader() *memOps {
	return &memOps{st: s.data}
}

func (s *MemoryStorage) InTx(ctx context.Context, fn func(tx Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.data.clone()
	if err := fn(&memOps{st: draft}); err != nil {
		return err
	}
	s.data = draft
	return nil
}

func (s *MemoryStorage) PromoteAdmins(ctx context.Context, telegramIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tid := range telegramIDs {
		id, ok := s.data.byTelegram[tid]
		if !ok {
			continue
		}
		user := s.data.users[id]
		user.IsAdmin = true
		s.data.users[id] = user
	}
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetUser(ctx, telegramID)
}

func (s *MemoryStorage) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetCart(ctx, userID)
}

func (s *MemoryStorage) ListCategories(ctx context.Context) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListCategories(ctx)
}

func (s *MemoryStorage) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetCategoryByName(ctx, name)
}

func (s *MemoryStorage) ListItems(ctx context.Context) ([]*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListItems(ctx)
}

func (s *MemoryStorage) GetItemByName(ctx context.Context, name string) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetItemByName(ctx, name)
}

func (s *MemoryStorage) CountFeedbacks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().CountFeedbacks(ctx)
}

func (s *MemoryStorage) ListFeedbacks(ctx context.Context, offset, limit int) ([]*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListFeedbacks(ctx, offset, limit)
}

func (s *MemoryStorage) GetFeedback(ctx context.Context, id string) (*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetFeedback(ctx, id)
}

// memOps implements Writer over one memState. The caller holds the lock.
type memOps struct {
	st *memState
}

func (o *memOps) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	id, ok := o.st.byTelegram[telegramID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", telegramID, apperr.ErrNotFound)
	}
	user := o.st.users[id]
	return &user, nil
}

func (o *memOps) CreateUser(ctx context.Context, user *models.User, cart *models.Cart) error {
	if _, exists := o.st.byTelegram[user.TelegramID]; exists {
		return fmt.Errorf("user %d: %w", user.TelegramID, apperr.ErrAlreadyExists)
	}
	o.st.users[user.ID] = *user
	o.st.byTelegram[user.TelegramID] = user.ID
	o.st.carts[user.ID] = memCart{id: cart.ID}
	return nil
}

func (o *memOps) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	mc, ok := o.st.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart of user %s: %w", userID, apperr.ErrNotFound)
	}
	cart := &models.Cart{ID: mc.id, OwnerID: userID}
	for _, itemID := range mc.itemIDs {
		if item, ok := o.st.items[itemID]; ok {
			cart.Items = append(cart.Items, copyItem(item))
		}
	}
	return cart, nil
}

func (o *memOps) cartByID(cartID string) (string, memCart, bool) {
	for owner, mc := range o.st.carts {
		if mc.id == cartID {
			return owner, mc, true
		}
	}
	return "", memCart{}, false
}

func (o *memOps) AddToCart(ctx context.Context, cartID, itemID string) error {
	owner, mc, ok := o.cartByID(cartID)
	if !ok {
		return fmt.Errorf("cart %s: %w", cartID, apperr.ErrNotFound)
	}
	if _, ok := o.st.items[itemID]; !ok {
		return fmt.Errorf("item %s: %w", itemID, apperr.ErrNotFound)
	}
	mc.itemIDs = append(mc.itemIDs, itemID)
	o.st.carts[owner] = mc
	return nil
}

func (o *memOps) RemoveFromCart(ctx context.Context, cartID, itemID string) (bool, error) {
	owner, mc, ok := o.cartByID(cartID)
	if !ok {
		return false, fmt.Errorf("cart %s: %w", cartID, apperr.ErrNotFound)
	}
	for i := len(mc.itemIDs) - 1; i >= 0; i-- {
		if mc.itemIDs[i] == itemID {
			mc.itemIDs = append(mc.itemIDs[:i], mc.itemIDs[i+1:]...)
			o.st.carts[owner] = mc
			return true, nil
		}
	}
	return false, nil
}

func (o *memOps) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories := make([]*models.Category, 0, len(o.st.categories))
	for _, c := range o.st.categories {
		category := c
		category.Items = o.itemsOf(c.ID)
		categories = append(categories, &category)
	}
	sort.Slice(categories, func(i, j int) bool {
		return models.NameKey(categories[i].Name) < models.NameKey(categories[j].Name)
	})
	return categories, nil
}

func (o *memOps) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	key := models.NameKey(name)
	for _, c := range o.st.categories {
		if models.NameKey(c.Name) == key {
			category := c
			category.Items = o.itemsOf(c.ID)
			return &category, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", name, apperr.ErrNotFound)
}

func (o *memOps) CreateCategory(ctx context.Context, category *models.Category) error {
	if _, err := o.GetCategoryByName(ctx, category.Name); err == nil {
		return fmt.Errorf("categories %q: %w", category.Name, apperr.ErrAlreadyExists)
	}
	c := *category
	c.Items = nil
	o.st.categories[c.ID] = c
	return nil
}

func (o *memOps) DeleteCategory(ctx context.Context, id string) error {
	if _, ok := o.st.categories[id]; !ok {
		return fmt.Errorf("categories %s: %w", id, apperr.ErrNotFound)
	}
	delete(o.st.categories, id)
	for itemID, item := range o.st.items {
		if item.CategoryID == id {
			o.dropItem(itemID)
		}
	}
	return nil
}

func (o *memOps) itemsOf(categoryID string) []models.Item {
	var items []models.Item
	for _, item := range o.sortedItems() {
		if item.CategoryID == categoryID {
			items = append(items, *item)
		}
	}
	return items
}

func (o *memOps) sortedItems() []*models.Item {
	items := make([]*models.Item, 0, len(o.st.items))
	for _, item := range o.st.items {
		it := copyItem(item)
		items = append(items, &it)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return models.NameKey(items[i].Name) < models.NameKey(items[j].Name)
	})
	return items
}

func (o *memOps) ListItems(ctx context.Context) ([]*models.Item, error) {
	return o.sortedItems(), nil
}

func (o *memOps) GetItemByName(ctx context.Context, name string) (*models.Item, error) {
	key := models.NameKey(name)
	for _, item := range o.st.items {
		if models.NameKey(item.Name) == key {
			it := copyItem(item)
			return &it, nil
		}
	}
	return nil, fmt.Errorf("item %q: %w", name, apperr.ErrNotFound)
}

func (o *memOps) CreateItem(ctx context.Context, item *models.Item) error {
	if _, ok := o.st.categories[item.CategoryID]; !ok {
		return fmt.Errorf("category %s: %w", item.CategoryID, apperr.ErrNotFound)
	}
	if _, err := o.GetItemByName(ctx, item.Name); err == nil {
		return fmt.Errorf("items %q: %w", item.Name, apperr.ErrAlreadyExists)
	}
	o.st.items[item.ID] = copyItem(*item)
	return nil
}

func (o *memOps) DeleteItem(ctx context.Context, id string) error {
	if _, ok := o.st.items[id]; !ok {
		return fmt.Errorf("items %s: %w", id, apperr.ErrNotFound)
	}
	o.dropItem(id)
	return nil
}

// dropItem deletes the item and every cart entry pointing at it.
func (o *memOps) dropItem(id string) {
	delete(o.st.items, id)
	for owner, mc := range o.st.carts {
		kept := mc.itemIDs[:0]
		for _, itemID := range mc.itemIDs {
			if itemID != id {
				kept = append(kept, itemID)
			}
		}
		mc.itemIDs = kept
		o.st.carts[owner] = mc
	}
}

func (o *memOps) CountFeedbacks(ctx context.Context) (int, error) {
	return len(o.st.feedbacks), nil
}

func (o *memOps) ListFeedbacks(ctx context.Context, offset, limit int) ([]*models.Feedback, error) {
	all := make([]*models.Feedback, 0, len(o.st.feedbacks))
	for _, f := range o.st.feedbacks {
		all = append(all, o.withAuthor(f))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if offset < 0 || offset >= len(all) || limit <= 0 {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (o *memOps) GetFeedback(ctx context.Context, id string) (*models.Feedback, error) {
	f, ok := o.st.feedbacks[id]
	if !ok {
		return nil, fmt.Errorf("feedback %s: %w", id, apperr.ErrNotFound)
	}
	return o.withAuthor(f), nil
}

func (o *memOps) withAuthor(f models.Feedback) *models.Feedback {
	if user, ok := o.st.users[f.AuthorID]; ok {
		f.AuthorUsername = user.Username
	}
	return &f
}

func (o *memOps) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	if _, ok := o.st.users[feedback.AuthorID]; !ok {
		return fmt.Errorf("user %s: %w", feedback.AuthorID, apperr.ErrNotFound)
	}
	o.st.feedbacks[feedback.ID] = *feedback
	return nil
}

func (o *memOps) DeleteFeedback(ctx context.Context, id string) error {
	if _, ok := o.st.feedbacks[id]; !ok {
		return fmt.Errorf("feedbacks %s: %w", id, apperr.ErrNotFound)
	}
	delete(o.st.feedbacks, id)
	return nil
}

func copyItem(item models.Item) models.Item {
	item.Photos = append([]string(nil), item.Photos...)
	return item
}
