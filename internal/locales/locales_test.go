package locales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestEveryKeyIsTranslated(t *testing.T) {
	for key, tr := range texts {
		assert.NotEmpty(t, tr.en, "en %s", key)
		assert.NotEmpty(t, tr.ru, "ru %s", key)
	}
}

func TestGet(t *testing.T) {
	en := New("en")
	assert.Equal(t, "Wrong photo format", en.Get(WrongPhotoFormat))
	assert.Equal(t, "Category Hats created", en.Get(CategoryCreated, "Hats"))

	ru := New("ru")
	assert.Equal(t, "Неверный формат фотографии", ru.Get(WrongPhotoFormat))
}

func TestNewFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, language.English, New("xx-invalid").Language())
	assert.Equal(t, language.English, New("de").Language())
	assert.Equal(t, language.Russian, New("ru-RU").Language())
}
