package conversation

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
)

type stepKind int

const (
	kindText stepKind = iota
	kindNumber
	kindPhotos
)

func (k stepKind) String() string {
	switch k {
	case kindText:
		return "text"
	case kindNumber:
		return "number"
	case kindPhotos:
		return "photos"
	}
	return "unknown"
}

// Value is a parsed answer handed to checks.
type Value struct {
	Text   string
	Number float64
}

// Check validates an answer. Return an errors.InvalidInputError to ask again,
// an errors.AbortError to end the flow with a message.
type Check func(ctx context.Context, v Value, a *Answers) error

// NumberParser turns user text into a number.
type NumberParser func(text string) (float64, error)

// Step is one question of a Flow.
type Step struct {
	Key    string
	Prompt string

	kind      stepKind
	parse     NumberParser
	checks    []Check
	maxPhotos int
}

// AskText asks for a text answer.
func AskText(key, prompt string, checks ...Check) Step {
	return Step{Key: key, Prompt: prompt, kind: kindText, checks: checks}
}

// AskNumber asks until the answer parses with parse.
func AskNumber(key, prompt string, parse NumberParser, checks ...Check) Step {
	return Step{Key: key, Prompt: prompt, kind: kindNumber, parse: parse, checks: checks}
}

// AskPhotos collects up to max photos. The step ends when max photos arrived
// or the wait times out with at least one photo.
func AskPhotos(key, prompt string, max int) Step {
	if max < 1 {
		max = 1
	}
	return Step{Key: key, Prompt: prompt, kind: kindPhotos, maxPhotos: max}
}

var errNotNumber = errors.New("not a number")

// ParseInt accepts optionally signed decimal integers.
func ParseInt(text string) (float64, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, errNotNumber
	}
	return float64(n), nil
}

// ParseFloat accepts decimals with a dot or a comma separator.
func ParseFloat(text string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotNumber
	}
	return f, nil
}

// Answers holds what a flow collected so far.
type Answers struct {
	texts   map[string]string
	numbers map[string]float64
	photos  map[string][]string
}

func newAnswers() *Answers {
	return &Answers{
		texts:   make(map[string]string),
		numbers: make(map[string]float64),
		photos:  make(map[string][]string),
	}
}

func (a *Answers) Text(key string) string {
	return a.texts[key]
}

func (a *Answers) Float(key string) float64 {
	return a.numbers[key]
}

func (a *Answers) Int(key string) int {
	return int(a.numbers[key])
}

// Photos returns the photo references collected for key, in arrival order.
func (a *Answers) Photos(key string) []string {
	return append([]string(nil), a.photos[key]...)
}
