// Package callback encodes business intents into inline-button callback data and back.
//
// Tokens are namespaced by action ("categories/get/<name>", "feedbacks/get/<page>").
// Subject names are lower-cased, so two names that differ only by case share a token;
// the catalog keeps names unique case-insensitively to avoid that.
package callback

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperr "github.com/xaenox/shop-bot/internal/errors"
)

// MaxTokenBytes is Telegram's callback_data size limit.
const MaxTokenBytes = 64

// Action identifies what a button does.
type Action int

const (
	CategoryGet Action = iota
	ItemGet
	CategoryDelete
	ItemDelete
	AddToCart
	RemoveFromCart
	FeedbackPage
)

var prefixes = map[Action]string{
	CategoryGet:    "categories/get/",
	ItemGet:        "items/get/",
	CategoryDelete: "categories/delete/",
	ItemDelete:     "items/delete/",
	AddToCart:      "items/addToCart/",
	RemoveFromCart: "items/removeFromCart/",
	FeedbackPage:   "feedbacks/get/",
}

var names = map[Action]string{
	CategoryGet:    "category_get",
	ItemGet:        "item_get",
	CategoryDelete: "category_delete",
	ItemDelete:     "item_delete",
	AddToCart:      "add_to_cart",
	RemoveFromCart: "remove_from_cart",
	FeedbackPage:   "feedback_page",
}

// Order is the matching precedence used when decoding. First match wins.
var Order = []Action{CategoryGet, ItemGet, CategoryDelete, ItemDelete, AddToCart, RemoveFromCart, FeedbackPage}

var feedbackPagePattern = regexp.MustCompile(`(?i)^feedbacks/get/(\d+)$`)

func (a Action) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Intent is a decoded token.
type Intent struct {
	Action  Action
	Subject string // lower-cased catalog name, empty for FeedbackPage
	Page    int
}

// Encode builds the token for a subject action.
func Encode(a Action, name string) string {
	return prefixes[a] + strings.ToLower(name)
}

func EncodeCategoryGet(name string) string { return Encode(CategoryGet, name) }
func EncodeCategoryDelete(name string) string { return Encode(CategoryDelete, name) }
func EncodeItemGet(name string) string { return Encode(ItemGet, name) }
func EncodeItemDelete(name string) string { return Encode(ItemDelete, name) }
func EncodeAddToCart(name string) string { return Encode(AddToCart, name) }
func EncodeRemoveFromCart(name string) string { return Encode(RemoveFromCart, name) }

// EncodeFeedbackPage builds the token for feedback page n. Negative pages are clamped to 0.
func EncodeFeedbackPage(page int) string {
	if page < 0 {
		page = 0
	}
	return prefixes[FeedbackPage] + strconv.Itoa(page)
}

// Matches reports whether token structurally matches the pattern of action a.
// Namespaces compare case-insensitively.
func Matches(token string, a Action) bool {
	if a == FeedbackPage {
		return feedbackPagePattern.MatchString(token)
	}
	prefix, ok := prefixes[a]
	if !ok || len(token) <= len(prefix) {
		return false
	}
	return strings.EqualFold(token[:len(prefix)], prefix)
}

// Decode classifies token using Order.
func Decode(token string) (Intent, error) {
	for _, a := range Order {
		if !Matches(token, a) {
			continue
		}
		if a == FeedbackPage {
			page, err := DecodeFeedbackPage(token)
			if err != nil {
				return Intent{}, err
			}
			return Intent{Action: a, Page: page}, nil
		}
		return Intent{Action: a, Subject: strings.ToLower(token[len(prefixes[a]):])}, nil
	}
	return Intent{}, fmt.Errorf("decode %q: %w", token, apperr.ErrMalformedToken)
}

// DecodeFeedbackPage extracts the page number from a feedback page token.
func DecodeFeedbackPage(token string) (int, error) {
	m := feedbackPagePattern.FindStringSubmatch(token)
	if m == nil {
		return 0, fmt.Errorf("feedback page %q: %w", token, apperr.ErrMalformedToken)
	}
	page, err := strconv.Atoi(m[1])
	if err != nil || page < 0 {
		return 0, fmt.Errorf("feedback page %q: %w", token, apperr.ErrMalformedToken)
	}
	return page, nil
}

// Fits reports whether every token built for name with the given actions stays within MaxTokenBytes.
func Fits(name string, actions ...Action) bool {
	for _, a := range actions {
		if len(Encode(a, name)) > MaxTokenBytes {
			return false
		}
	}
	return true
}
