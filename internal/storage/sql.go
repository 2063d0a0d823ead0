package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperr "github.com/xaenox/shop-bot/internal/errors"
	"github.com/xaenox/shop-bot/internal/models"
)

//go:embed schema/*.sql
var schemas embed.FS

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStorage is a Storage backed by database/sql. The same queries serve
// postgres, mysql and sqlite.
type SQLStorage struct {
	sqlOps
	db *sql.DB
}

// sqlOps runs queries against either the pool or an open transaction.
type sqlOps struct {
	q querier
	d dialect
}

// NewSQLStorage opens dsn with the driver of d and applies the schema.
func NewSQLStorage(ctx context.Context, d dialect, dsn string) (*SQLStorage, error) {
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if d.singleConn {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	s := &SQLStorage{sqlOps: sqlOps{q: db, d: d}, db: db}
	if err := s.initializeSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return s, nil
}

// OpenSQLite opens a sqlite database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStorage, error) {
	return NewSQLStorage(ctx, dialects["sqlite"], sqliteDSN(path))
}

func (s *SQLStorage) initializeSchema(ctx context.Context) error {
	schema, err := schemas.ReadFile(s.d.schemaFile)
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error executing schema statement: %w", err)
		}
	}
	return nil
}

// InTx runs fn inside a database transaction.
func (s *SQLStorage) InTx(ctx context.Context, fn func(tx Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqlOps{q: tx, d: s.d}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (s *SQLStorage) PromoteAdmins(ctx context.Context, telegramIDs []int64) error {
	if len(telegramIDs) == 0 {
		return nil
	}
	args := make([]any, 0, len(telegramIDs)+1)
	args = append(args, true)
	for _, id := range telegramIDs {
		args = append(args, id)
	}
	query := "UPDATE users SET is_admin = ? WHERE telegram_id IN (" + placeholders(len(telegramIDs)) + ")"
	if _, err := s.exec(ctx, query, args...); err != nil {
		return fmt.Errorf("error promoting admins: %w", err)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func (o *sqlOps) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return o.q.ExecContext(ctx, o.d.rebind(query), args...)
}

func (o *sqlOps) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return o.q.QueryContext(ctx, o.d.rebind(query), args...)
}

func (o *sqlOps) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return o.q.QueryRowContext(ctx, o.d.rebind(query), args...)
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, apperr.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Users

func (o *sqlOps) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	user := &models.User{}
	var createdAt int64
	err := o.queryRow(ctx,
		`SELECT id, telegram_id, username, age, is_admin, created_at FROM users WHERE telegram_id = ?`,
		telegramID,
	).Scan(&user.ID, &user.TelegramID, &user.Username, &user.Age, &user.IsAdmin, &createdAt)
	if err != nil {
		return nil, notFound(err, "user %d", telegramID)
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

func (o *sqlOps) CreateUser(ctx context.Context, user *models.User, cart *models.Cart) error {
	_, err := o.exec(ctx,
		`INSERT INTO users (id, telegram_id, username, age, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.TelegramID, user.Username, user.Age, user.IsAdmin, user.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	if _, err := o.exec(ctx, `INSERT INTO carts (id, owner_id) VALUES (?, ?)`, cart.ID, user.ID); err != nil {
		return fmt.Errorf("error creating cart: %w", err)
	}
	return nil
}

// Carts

func (o *sqlOps) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart := &models.Cart{OwnerID: userID}
	err := o.queryRow(ctx, `SELECT id FROM carts WHERE owner_id = ?`, userID).Scan(&cart.ID)
	if err != nil {
		return nil, notFound(err, "cart of user %s", userID)
	}

	items, err := o.queryItems(ctx,
		`SELECT `+itemColumns+` FROM cart_items ci JOIN items i ON i.id = ci.item_id
		WHERE ci.cart_id = ? ORDER BY ci.added_at, ci.id`, cart.ID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		cart.Items = append(cart.Items, *item)
	}
	return cart, nil
}

func (o *sqlOps) AddToCart(ctx context.Context, cartID, itemID string) error {
	_, err := o.exec(ctx, `INSERT INTO cart_items (id, cart_id, item_id, added_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), cartID, itemID, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("error adding item to cart: %w", err)
	}
	return nil
}

func (o *sqlOps) RemoveFromCart(ctx context.Context, cartID, itemID string) (bool, error) {
	var entryID string
	err := o.queryRow(ctx,
		`SELECT id FROM cart_items WHERE cart_id = ? AND item_id = ? ORDER BY added_at DESC, id DESC LIMIT 1`,
		cartID, itemID).Scan(&entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error finding cart entry: %w", err)
	}
	if _, err := o.exec(ctx, `DELETE FROM cart_items WHERE id = ?`, entryID); err != nil {
		return false, fmt.Errorf("error removing cart entry: %w", err)
	}
	return true, nil
}

// Categories

func (o *sqlOps) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := o.query(ctx, `SELECT id, name, description FROM categories ORDER BY name_key`)
	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", err)
	}
	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	items, err := o.queryItems(ctx, `SELECT `+itemColumns+` FROM items i ORDER BY i.created_at, i.name_key`)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[string]*models.Category, len(categories))
	for _, c := range categories {
		byCategory[c.ID] = c
	}
	for _, item := range items {
		if c, ok := byCategory[item.CategoryID]; ok {
			c.Items = append(c.Items, *item)
		}
	}
	return categories, nil
}

func (o *sqlOps) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	c := &models.Category{}
	err := o.queryRow(ctx, `SELECT id, name, description FROM categories WHERE name_key = ?`,
		models.NameKey(name)).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		return nil, notFound(err, "category %q", name)
	}

	items, err := o.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items i WHERE i.category_id = ? ORDER BY i.created_at, i.name_key`, c.ID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		c.Items = append(c.Items, *item)
	}
	return c, nil
}

func (o *sqlOps) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := o.ensureFreeName(ctx, "categories", category.Name); err != nil {
		return err
	}
	_, err := o.exec(ctx, `INSERT INTO categories (id, name, name_key, description) VALUES (?, ?, ?, ?)`,
		category.ID, category.Name, models.NameKey(category.Name), category.Description)
	if err != nil {
		return fmt.Errorf("error creating category: %w", err)
	}
	return nil
}

func (o *sqlOps) DeleteCategory(ctx context.Context, id string) error {
	return o.deleteByID(ctx, "categories", id)
}

// Items

const itemColumns = `i.id, i.category_id, i.name, i.description, i.price, i.units_in_stock, i.created_at`

func (o *sqlOps) queryItems(ctx context.Context, query string, args ...any) ([]*models.Item, error) {
	rows, err := o.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying items: %w", err)
	}
	var items []*models.Item
	for rows.Next() {
		item := &models.Item{}
		var createdAt int64
		if err := rows.Scan(&item.ID, &item.CategoryID, &item.Name, &item.Description,
			&item.Price, &item.UnitsInStock, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning item: %w", err)
		}
		item.CreatedAt = fromMillis(createdAt)
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	// rows must be closed before the next query on a transaction
	for _, item := range items {
		if item.Photos, err = o.itemPhotos(ctx, item.ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (o *sqlOps) itemPhotos(ctx context.Context, itemID string) ([]string, error) {
	rows, err := o.query(ctx, `SELECT file_name FROM item_photos WHERE item_id = ? ORDER BY position`, itemID)
	if err != nil {
		return nil, fmt.Errorf("error querying item photos: %w", err)
	}
	defer rows.Close()

	var photos []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("error scanning item photo: %w", err)
		}
		photos = append(photos, name)
	}
	return photos, rows.Err()
}

func (o *sqlOps) ListItems(ctx context.Context) ([]*models.Item, error) {
	return o.queryItems(ctx, `SELECT `+itemColumns+` FROM items i ORDER BY i.created_at, i.name_key`)
}

func (o *sqlOps) GetItemByName(ctx context.Context, name string) (*models.Item, error) {
	items, err := o.queryItems(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.name_key = ?`, models.NameKey(name))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("item %q: %w", name, apperr.ErrNotFound)
	}
	return items[0], nil
}

func (o *sqlOps) CreateItem(ctx context.Context, item *models.Item) error {
	if err := o.ensureFreeName(ctx, "items", item.Name); err != nil {
		return err
	}
	_, err := o.exec(ctx,
		`INSERT INTO items (id, category_id, name, name_key, description, price, units_in_stock, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.CategoryID, item.Name, models.NameKey(item.Name), item.Description,
		item.Price, item.UnitsInStock, item.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("error creating item: %w", err)
	}
	for i, photo := range item.Photos {
		if _, err := o.exec(ctx, `INSERT INTO item_photos (item_id, position, file_name) VALUES (?, ?, ?)`,
			item.ID, i, photo); err != nil {
			return fmt.Errorf("error saving item photo: %w", err)
		}
	}
	return nil
}

func (o *sqlOps) DeleteItem(ctx context.Context, id string) error {
	return o.deleteByID(ctx, "items", id)
}

// Feedbacks

const feedbackColumns = `f.id, f.author_id, u.username, f.title, f.body, f.rating, f.created_at`

func (o *sqlOps) CountFeedbacks(ctx context.Context) (int, error) {
	var n int
	if err := o.queryRow(ctx, `SELECT COUNT(*) FROM feedbacks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting feedbacks: %w", err)
	}
	return n, nil
}

func (o *sqlOps) ListFeedbacks(ctx context.Context, offset, limit int) ([]*models.Feedback, error) {
	if offset < 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := o.query(ctx,
		`SELECT `+feedbackColumns+` FROM feedbacks f JOIN users u ON u.id = f.author_id
		ORDER BY f.created_at DESC, f.id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying feedbacks: %w", err)
	}
	defer rows.Close()

	var feedbacks []*models.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		feedbacks = append(feedbacks, f)
	}
	return feedbacks, rows.Err()
}

func (o *sqlOps) GetFeedback(ctx context.Context, id string) (*models.Feedback, error) {
	row := o.queryRow(ctx,
		`SELECT `+feedbackColumns+` FROM feedbacks f JOIN users u ON u.id = f.author_id WHERE f.id = ?`, id)
	f, err := scanFeedback(row)
	if err != nil {
		return nil, notFound(err, "feedback %s", id)
	}
	return f, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeedback(s scanner) (*models.Feedback, error) {
	f := &models.Feedback{}
	var createdAt int64
	if err := s.Scan(&f.ID, &f.AuthorID, &f.AuthorUsername, &f.Title, &f.Text, &f.Rating, &createdAt); err != nil {
		return nil, fmt.Errorf("error scanning feedback: %w", err)
	}
	f.CreatedAt = fromMillis(createdAt)
	return f, nil
}

func (o *sqlOps) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	_, err := o.exec(ctx,
		`INSERT INTO feedbacks (id, author_id, title, body, rating, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		feedback.ID, feedback.AuthorID, feedback.Title, feedback.Text, feedback.Rating, feedback.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("error creating feedback: %w", err)
	}
	return nil
}

func (o *sqlOps) DeleteFeedback(ctx context.Context, id string) error {
	return o.deleteByID(ctx, "feedbacks", id)
}

func (o *sqlOps) ensureFreeName(ctx context.Context, table, name string) error {
	var n int
	if err := o.queryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE name_key = ?`, models.NameKey(name)).Scan(&n); err != nil {
		return fmt.Errorf("error checking %s name: %w", table, err)
	}
	if n > 0 {
		return fmt.Errorf("%s %q: %w", table, name, apperr.ErrAlreadyExists)
	}
	return nil
}

func (o *sqlOps) deleteByID(ctx context.Context, table, id string) error {
	res, err := o.exec(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error deleting from %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, apperr.ErrNotFound)
	}
	return nil
}
