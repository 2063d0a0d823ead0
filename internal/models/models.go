package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Limits enforced by the intake flows.
const (
	MaxNameLength        = 35
	MaxDescriptionLength = 1000
	MaxFeedbackLength    = 1250
	MaxPhotosPerItem     = 9
	MaxItemsPerCategory  = 9
	MinRating            = 1
	MaxRating            = 10
)

// User represents a registered chat user
type User struct {
	ID         string    `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	Age        int       `json:"age"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
}

// Category represents a shopping category with its items
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Items       []Item `json:"items,omitempty"`
}

// Item represents a shopping item belonging to one category
type Item struct {
	ID           string    `json:"id"`
	CategoryID   string    `json:"category_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	UnitsInStock int       `json:"units_in_stock"`
	Photos       []string  `json:"photos"`
	CreatedAt    time.Time `json:"created_at"`
}

// Feedback represents a rated review left by a user
type Feedback struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username,omitempty"`
	Title          string    `json:"title"`
	Text           string    `json:"text"`
	Rating         int       `json:"rating"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUser creates a user together with its empty cart.
func NewUser(telegramID int64, username string, age int, isAdmin bool) (*User, *Cart) {
	user := &User{
		ID:         uuid.New().String(),
		TelegramID: telegramID,
		Username:   username,
		Age:        age,
		IsAdmin:    isAdmin,
		CreatedAt:  time.Now().UTC(),
	}
	cart := &Cart{
		ID:      uuid.New().String(),
		OwnerID: user.ID,
	}
	return user, cart
}

// NewCategory creates a category without items.
func NewCategory(name, description string) *Category {
	return &Category{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
	}
}

// NewItem creates an item linked to category.
func NewItem(category *Category, name, description string, price float64, unitsInStock int, photos []string) *Item {
	return &Item{
		ID:           uuid.New().String(),
		CategoryID:   category.ID,
		Name:         name,
		Description:  description,
		Price:        price,
		UnitsInStock: unitsInStock,
		Photos:       photos,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewFeedback creates a feedback authored by author.
func NewFeedback(author *User, title, text string, rating int) *Feedback {
	return &Feedback{
		ID:             uuid.New().String(),
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Title:          title,
		Text:           text,
		Rating:         rating,
		CreatedAt:      time.Now().UTC(),
	}
}

// ValidRating reports whether r lies within 1..10.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// NameKey is the case-insensitive lookup key of a catalog name.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
