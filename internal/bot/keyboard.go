package bot

import (
	"customs-calc/internal/intake"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reply keyboard labels. Pressing a button sends its label as text.
const (
	menuCar     = "🚗 Легковий автомобіль"
	menuTruck   = "🚛 Вантажний автомобіль"
	menuMoto    = "🏍️ Мотоцикл"
	menuRates   = "💱 Курс валют"
	menuContact = "💬 Зв'язок із розробником"
	menuHistory = "📜 Історія розрахунків"
)

var optionLabels = map[string]string{
	"car":                      menuCar,
	"truck":                    menuTruck,
	"moto":                     menuMoto,
	"car_petrol":               "⛽ Бензин",
	"car_diesel":               "🛢️ Дизель",
	"car_electric_benefits":    "⚡ Електро (з пільгами)",
	"car_electric_no_benefits": "⚡ Електро (без пільг)",
	"car_hybrid_petrol":        "🔌 Гібрид (бензин)",
	"car_hybrid_diesel":        "🔌 Гібрид (дизель)",
	"truck_petrol":             "⛽ Бензин (5%)",
	"truck_diesel":             "🛢️ Дизель (10%)",
	"truck_electric":           "⚡ Електро (акциз 0)",
	"moto_petrol":              "⛽ Бензиновий",
	"moto_electric":            "⚡ Електричний",
	"USD":                      "🇺🇸 USD",
	"EUR":                      "🇪🇺 EUR",
	"UAH":                      "🇺🇦 UAH",
	intake.AnswerToday:         "📅 Сьогодні",
	intake.AnswerTomorrow:      "📅 Завтра",
	intake.AnswerYesterday:     "📅 Вчора",
	intake.AnswerCustom:        "📅 Інша дата",
}

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuCar)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuTruck)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuMoto)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuRates)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuContact)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuHistory)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// optionsKeyboard renders one button per option; callback data is the
// answer code the intake machine expects.
func optionsKeyboard(options []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options)+1)
	for _, opt := range options {
		label, ok := optionLabels[opt]
		if !ok {
			label = opt
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, opt)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", intake.AnswerBack)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
