// Package locales holds user-facing bot texts in English and Russian.
package locales

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a localized text.
type Key string

const (
	WrongCommand         Key = "wrong_command"
	NoAdminPermission    Key = "no_admin_permission"
	GenericError         Key = "generic_error"
	WrongNumberFormat    Key = "wrong_number_format"
	WrongPhotoFormat     Key = "wrong_photo_format"
	EmptyValue           Key = "empty_value"
	PicturesBroken       Key = "pictures_broken"
	AlreadyRegistered    Key = "already_registered"
	RegistrationIntro    Key = "registration_intro"
	AskAge               Key = "ask_age"
	AgeRange             Key = "age_range"
	Registered           Key = "registered"
	NotRegistered        Key = "not_registered"
	YouAreAdmin          Key = "you_are_admin"
	AvailableCommands    Key = "available_commands"
	AdminCommands        Key = "admin_commands"
	NoCategories         Key = "no_categories"
	CategoriesHeader     Key = "categories_header"
	CategoryEntry        Key = "category_entry"
	AskCategoryName      Key = "ask_category_name"
	AskCategoryDesc      Key = "ask_category_description"
	CategoryCreated      Key = "category_created"
	CategoryExists       Key = "category_exists"
	NameLength           Key = "name_length"
	DescriptionLength    Key = "description_length"
	NoSuchCategory       Key = "no_such_category"
	CategoryFull         Key = "category_full"
	AskItemCategory      Key = "ask_item_category"
	AskItemName          Key = "ask_item_name"
	ItemExists           Key = "item_exists"
	AskItemDesc          Key = "ask_item_description"
	AskUnits             Key = "ask_units"
	AskPrice             Key = "ask_price"
	NegativeValue        Key = "negative_value"
	AskPhotos            Key = "ask_photos"
	ItemCreated          Key = "item_created"
	NoItems              Key = "no_items"
	NoItemsInCategory    Key = "no_items_in_category"
	CategoryItemsHeader  Key = "category_items_header"
	ItemShort            Key = "item_short"
	ItemLong             Key = "item_long"
	ChooseItem           Key = "choose_item"
	AddToCartButton      Key = "add_to_cart_button"
	AddedToCart          Key = "added_to_cart"
	RemovedFromCart      Key = "removed_from_cart"
	NotInCart            Key = "not_in_cart"
	CartEmpty            Key = "cart_empty"
	CartHeader           Key = "cart_header"
	CartLine             Key = "cart_line"
	CartTotal            Key = "cart_total"
	RemoveButton         Key = "remove_button"
	Info                 Key = "info"
	RoleAdmin            Key = "role_admin"
	RoleCustomer         Key = "role_customer"
	Anonymous            Key = "anonymous"
	NoFeedbacks          Key = "no_feedbacks"
	NoMoreFeedbacks      Key = "no_more_feedbacks"
	FeedbacksHeader      Key = "feedbacks_header"
	FeedbackEntry        Key = "feedback_entry"
	FeedbackID           Key = "feedback_id"
	SeeMore              Key = "see_more"
	AskFeedbackTitle     Key = "ask_feedback_title"
	AskRating            Key = "ask_rating"
	RatingRange          Key = "rating_range"
	AskFeedbackText      Key = "ask_feedback_text"
	TextTooLong          Key = "text_too_long"
	FeedbackRejected     Key = "feedback_rejected"
	FeedbackSaved        Key = "feedback_saved"
	ChooseCategoryDelete Key = "choose_category_delete"
	ChooseItemDelete     Key = "choose_item_delete"
	CategoryDeleted      Key = "category_deleted"
	ItemDeleted          Key = "item_deleted"
	AskFeedbackID        Key = "ask_feedback_id"
	NoSuchFeedback       Key = "no_such_feedback"
	FeedbackDeleted      Key = "feedback_deleted"

	CmdStart          Key = "cmd_start"
	CmdCategories     Key = "cmd_categories"
	CmdItems          Key = "cmd_items"
	CmdCart           Key = "cmd_cart"
	CmdInfo           Key = "cmd_info"
	CmdFeedbacks      Key = "cmd_feedbacks"
	CmdAddFeedback    Key = "cmd_add_feedback"
	CmdAddCategory    Key = "cmd_add_category"
	CmdAddItem        Key = "cmd_add_item"
	CmdDeleteCategory Key = "cmd_delete_category"
	CmdDeleteItem     Key = "cmd_delete_item"
	CmdDeleteFeedback Key = "cmd_delete_feedback"
)

type translation struct {
	en string
	ru string
}

var texts = map[Key]translation{
	WrongCommand:         {"Wrong command format.", "Неверный формат команды."},
	NoAdminPermission:    {"You have no admin permissions for this command", "У вас нет прав администратора для этой команды"},
	GenericError:         {"Sorry, something went wrong, try again later", "Что-то пошло не так, попробуйте позже"},
	WrongNumberFormat:    {"Wrong number format", "Неверный формат числа"},
	WrongPhotoFormat:     {"Wrong photo format", "Неверный формат фотографии"},
	EmptyValue:           {"Value must not be empty", "Значение не может быть пустым"},
	PicturesBroken:       {"Something went wrong with pictures.", "Что-то не так с фотографиями."},
	AlreadyRegistered:    {"Welcome back to our bot!\nYou are already registered", "С возвращением!\nВы уже зарегистрированы"},
	RegistrationIntro:    {"Welcome to our bot!\nLet's answer some registration questions.", "Добро пожаловать!\nОтветьте на несколько вопросов для регистрации."},
	AskAge:               {"1. What's your age?", "1. Сколько вам лет?"},
	AgeRange:             {"Age must be between %d and %d", "Возраст должен быть от %d до %d"},
	Registered:           {"Welcome to our bot!\nThank you for registration!!", "Добро пожаловать!\nСпасибо за регистрацию!!"},
	NotRegistered:        {"Please register first with /start", "Сначала зарегистрируйтесь командой /start"},
	YouAreAdmin:          {"You are admin.", "Вы администратор."},
	AvailableCommands:    {"Available commands:", "Доступные команды:"},
	AdminCommands:        {"Admin commands:", "Команды администратора:"},
	NoCategories:         {"Sorry, right now no categories.", "Сейчас нет ни одной категории."},
	CategoriesHeader:     {"This is our categories:", "Наши категории:"},
	CategoryEntry:        {"%s:\n%s", "%s:\n%s"},
	AskCategoryName:      {"Enter category name", "Введите название категории"},
	AskCategoryDesc:      {"Enter category description", "Введите описание категории"},
	CategoryCreated:      {"Category %s created", "Категория %s создана"},
	CategoryExists:       {"Category with this name already exists, enter another name", "Категория с таким названием уже есть, введите другое"},
	NameLength:           {"Name is too long, use at most %d characters", "Название слишком длинное, не больше %d символов"},
	DescriptionLength:    {"Description is too long, use at most %d characters", "Описание слишком длинное, не больше %d символов"},
	NoSuchCategory:       {"No such category with this name.", "Категории с таким названием нет."},
	CategoryFull:         {"This category already has %d items.", "В этой категории уже %d товаров."},
	AskItemCategory:      {"Enter category name", "Введите название категории"},
	AskItemName:          {"Enter item name", "Введите название товара"},
	ItemExists:           {"Item with this name already exists, enter another name", "Товар с таким названием уже есть, введите другое"},
	AskItemDesc:          {"Enter item description", "Введите описание товара"},
	AskUnits:             {"Enter units in stock value", "Введите количество на складе"},
	AskPrice:             {"Enter the price value", "Введите цену"},
	NegativeValue:        {"Value must not be negative", "Значение не может быть отрицательным"},
	AskPhotos:            {"Send item photos (up to %d)", "Отправьте фотографии товара (до %d)"},
	ItemCreated:          {"Item %s created", "Товар %s создан"},
	NoItems:              {"Sorry, right now no items.", "Сейчас нет ни одного товара."},
	NoItemsInCategory:    {"Sorry, no items in this category right now", "В этой категории пока нет товаров"},
	CategoryItemsHeader:  {"Our %s:", "Наши %s:"},
	ItemShort:            {"%d. %s - %.2f rubles", "%d. %s - %.2f руб."},
	ItemLong:             {"%s - %.2f rubles\n\n%s\n\n\nIn stock: %d", "%s - %.2f руб.\n\n%s\n\n\nВ наличии: %d"},
	ChooseItem:           {"Choose an item", "Выберите товар"},
	AddToCartButton:      {"Add to cart", "В корзину"},
	AddedToCart:          {"%s added to your cart", "%s добавлен в корзину"},
	RemovedFromCart:      {"%s removed from your cart", "%s удален из корзины"},
	NotInCart:            {"%s is not in your cart", "%s нет в вашей корзине"},
	CartEmpty:            {"Your cart is empty", "Ваша корзина пуста"},
	CartHeader:           {"Your cart:", "Ваша корзина:"},
	CartLine:             {"%d. %s x%d - %.2f rubles", "%d. %s x%d - %.2f руб."},
	CartTotal:            {"Total: %.2f rubles", "Итого: %.2f руб."},
	RemoveButton:         {"Remove %s", "Убрать %s"},
	Info:                 {"Name: %s\nAge: %d\nRole: %s", "Имя: %s\nВозраст: %d\nРоль: %s"},
	RoleAdmin:            {"admin", "администратор"},
	RoleCustomer:         {"customer", "покупатель"},
	Anonymous:            {"anonymous", "аноним"},
	NoFeedbacks:          {"No feedbacks yet.", "Отзывов пока нет."},
	NoMoreFeedbacks:      {"No more feedbacks.", "Больше отзывов нет."},
	FeedbacksHeader:      {"Feedbacks (page %d):", "Отзывы (страница %d):"},
	FeedbackEntry:        {"%s (%d/10)\n%s\nby %s on %s", "%s (%d/10)\n%s\n%s, %s"},
	FeedbackID:           {"ID: %s", "ID: %s"},
	SeeMore:              {"See more", "Показать еще"},
	AskFeedbackTitle:     {"Enter feedback title", "Введите заголовок отзыва"},
	AskRating:            {"Rate us from 1 to 10", "Оцените нас от 1 до 10"},
	RatingRange:          {"Rating must be between %d and %d", "Оценка должна быть от %d до %d"},
	AskFeedbackText:      {"Enter your feedback", "Напишите отзыв"},
	TextTooLong:          {"Text is too long, use at most %d characters", "Текст слишком длинный, не больше %d символов"},
	FeedbackRejected:     {"Your feedback contains inappropriate content, please rephrase it", "Отзыв содержит недопустимые выражения, перефразируйте его"},
	FeedbackSaved:        {"Thank you for your feedback!", "Спасибо за отзыв!"},
	ChooseCategoryDelete: {"Choose a category to delete", "Выберите категорию для удаления"},
	ChooseItemDelete:     {"Choose an item to delete", "Выберите товар для удаления"},
	CategoryDeleted:      {"Category %s deleted", "Категория %s удалена"},
	ItemDeleted:          {"Item %s deleted", "Товар %s удален"},
	AskFeedbackID:        {"Enter the id of the feedback to delete", "Введите ID отзыва для удаления"},
	NoSuchFeedback:       {"No feedback with this id.", "Отзыва с таким ID нет."},
	FeedbackDeleted:      {"Feedback deleted", "Отзыв удален"},

	CmdStart:          {"register or show commands", "регистрация и список команд"},
	CmdCategories:     {"show categories", "показать категории"},
	CmdItems:          {"show categories and items", "показать категории и товары"},
	CmdCart:           {"show your cart", "показать корзину"},
	CmdInfo:           {"show your profile", "показать профиль"},
	CmdFeedbacks:      {"read feedbacks", "читать отзывы"},
	CmdAddFeedback:    {"leave a feedback", "оставить отзыв"},
	CmdAddCategory:    {"create a category", "создать категорию"},
	CmdAddItem:        {"create an item", "создать товар"},
	CmdDeleteCategory: {"delete a category", "удалить категорию"},
	CmdDeleteItem:     {"delete an item", "удалить товар"},
	CmdDeleteFeedback: {"delete a feedback", "удалить отзыв"},
}

var shopCatalog = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, t := range texts {
		_ = b.SetString(language.English, string(key), t.en)
		_ = b.SetString(language.Russian, string(key), t.ru)
	}
	return b
}

// Messages renders localized texts for one language.
type Messages struct {
	printer *message.Printer
	tag     language.Tag
}

// New returns Messages for lang ("en", "ru"). Unknown languages fall back to English.
func New(lang string) *Messages {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	matcher := language.NewMatcher([]language.Tag{language.English, language.Russian})
	_, index, _ := matcher.Match(tag)
	tag = []language.Tag{language.English, language.Russian}[index]
	return &Messages{
		printer: message.NewPrinter(tag, message.Catalog(shopCatalog)),
		tag:     tag,
	}
}

// Get formats the text for key with args.
func (m *Messages) Get(key Key, args ...interface{}) string {
	return m.printer.Sprintf(string(key), args...)
}

// Language returns the resolved language tag.
func (m *Messages) Language() language.Tag {
	return m.tag
}
