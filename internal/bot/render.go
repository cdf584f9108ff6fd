package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"customs-calc/internal/intake"
	"customs-calc/internal/models"
	"customs-calc/internal/service"
	"customs-calc/internal/tariff"

	"github.com/shopspring/decimal"
)

const (
	welcomeText = "🇺🇦 <b>Калькулятор митних платежів України</b>\n\n" +
		"Розрахунок включає:\n" +
		"• Ввізне мито\n" +
		"• Акцизний збір\n" +
		"• ПДВ (20%)\n" +
		"• Пенсійний збір (⚡ електромобілі не сплачують!)\n\n" +
		"Виберіть тип транспортного засобу:"

	menuText = "🇺🇦 <b>Калькулятор митних платежів України для авто та мото!</b>\n\n" +
		"Виберіть тип транспортного засобу для розрахунку:"

	pensionText = "📋 <b>Пенсійний збір</b>\n\n" +
		"<b>Розміри:</b>\n" +
		"• До 499 620 грн (165 прожитк. мін.) — <b>3%</b>\n" +
		"• 499 620 - 878 120 грн (165-290 прожитк. мін.) — <b>4%</b>\n" +
		"• Понад 878 120 грн (290 прожитк. мін.) — <b>5%</b>\n\n" +
		"⚡ <b>ВАЖЛИВО:</b> Пенсійний збір <u>НЕ сплачується</u> за транспортні засоби, " +
		"оснащені виключно електродвигунами, та за вантажівки.\n\n" +
		"🔋 Електромобілі звільнені від пенсійного збору."

	noAccessText   = "❌ У вас немає доступу до статистики"
	emptyHistory   = "📜 Історія розрахунків порожня"
	emptyExport    = "Немає даних для експорту"
	exportCaption  = "📊 Експорт усіх розрахунків"
	historyFailed  = "❌ Не вдалося прочитати історію розрахунків"
	statsFailed    = "❌ Не вдалося отримати статистику"
	exportFailed   = "❌ Помилка експорту"
	rateFailedText = "❌ Помилка отримання курсу валют на цю дату. Спробуйте іншу дату."
)

var categoryLabels = map[tariff.Category]string{
	tariff.CategoryCarPetrol:             "Легковий, бензин",
	tariff.CategoryCarDiesel:             "Легковий, дизель",
	tariff.CategoryCarElectricBenefits:   "Електромобіль (пільга)",
	tariff.CategoryCarElectricNoBenefits: "Електромобіль (без пільг)",
	tariff.CategoryCarHybridPetrol:       "Гібрид (бензин)",
	tariff.CategoryCarHybridDiesel:       "Гібрид (дизель)",
	tariff.CategoryTruckPetrol:           "Вантажівка, бензин",
	tariff.CategoryTruckDiesel:           "Вантажівка, дизель",
	tariff.CategoryTruckElectric:         "Вантажівка, електро",
	tariff.CategoryMotoPetrol:            "Мотоцикл, бензин",
	tariff.CategoryMotoElectric:          "Мотоцикл, електро",
}

func categoryLabel(tag string) string {
	if l, ok := categoryLabels[tariff.Category(tag)]; ok {
		return l
	}
	return tag
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func rate(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

func amount(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func percent(r float64) string {
	return decimal.NewFromFloat(r).Mul(decimal.NewFromInt(100)).Round(2).String() + "%"
}

func currencySymbol(c string) string {
	switch tariff.Currency(c) {
	case tariff.CurrencyUSD:
		return "$"
	case tariff.CurrencyEUR:
		return "€"
	default:
		return "грн"
	}
}

func vehicleNoun(g tariff.Group) string {
	switch g {
	case tariff.GroupTruck:
		return "вантажівки"
	case tariff.GroupMotorcycle:
		return "мотоцикла"
	default:
		return "автомобіля"
	}
}

// promptText renders the question for p.
func promptText(p intake.Prompt) string {
	switch p.State {
	case intake.StateChoosingCategory:
		return menuText
	case intake.StateChoosingEngineSubtype:
		switch p.Group {
		case tariff.GroupTruck:
			return "Виберіть тип двигуна:\n\n• <b>Бензин</b> — мито 5%\n• <b>Дизель</b> — мито 10%"
		case tariff.GroupMotorcycle:
			return "Виберіть тип мотоцикла:"
		default:
			return "Виберіть тип двигуна:"
		}
	case intake.StateEnteringCost:
		return fmt.Sprintf("💰 Введіть вартість %s:\n<code>15000</code>", vehicleNoun(p.Group))
	case intake.StateEnteringCostCurrency:
		return fmt.Sprintf("💰 Вартість: %s\n\nВиберіть валюту:", amount(p.Record.Cost.Amount))
	case intake.StateEnteringAdditionalCost:
		return "💵 Введіть додаткові витрати (або 0):\n<code>500</code>"
	case intake.StateEnteringAdditionalCurrency:
		return fmt.Sprintf("💵 Додаткові витрати: %s\n\nВиберіть валюту:", amount(p.Record.Additional.Amount))
	case intake.StateEnteringEngineVolume:
		if p.Group == tariff.GroupMotorcycle {
			return "🔧 Введіть об'єм двигуна см³:\n<code>600</code>"
		}
		return "🔧 Введіть об'єм двигуна см³:\n<code>2000</code>"
	case intake.StateEnteringBatteryCapacity:
		return "🔋 Введіть ємність батареї у кВт·год.:\n<code>75</code>"
	case intake.StateEnteringProductionYear:
		return fmt.Sprintf("📅 Введіть рік випуску %s:\n<code>2020</code>", vehicleNoun(p.Group))
	case intake.StateChoosingValuationDate:
		if p.Record.Category == "" {
			return "📊 Виберіть дату для перегляду курсу:"
		}
		return "📅 Виберіть дату курсу валют:"
	case intake.StateEnteringCustomDate:
		return "📅 Введіть дату у форматі ДД.ММ.РРРР:\n<code>01.01.2025</code>"
	}
	return menuText
}

// errorText explains why an answer or a request was rejected.
func errorText(err error) string {
	var yearErr *intake.YearRangeError
	switch {
	case errors.As(err, &yearErr):
		return fmt.Sprintf("❌ Неправильний рік. Введіть рік від %d до %d", yearErr.Min, yearErr.Max)
	case errors.Is(err, intake.ErrNotAYear):
		return "❌ Введіть рік. Наприклад: <code>2020</code>"
	case errors.Is(err, intake.ErrNotANumber):
		return "❌ Введіть число. Наприклад: <code>15000</code>"
	case errors.Is(err, intake.ErrNegative):
		return "❌ Значення не може бути від'ємним"
	case errors.Is(err, intake.ErrNotPositive):
		return "❌ Значення має бути більшим за нуль"
	case errors.Is(err, intake.ErrTooLarge):
		return "❌ Занадто велике значення"
	case errors.Is(err, intake.ErrBadDate):
		return "❌ Неправильний формат дати. Використовуйте: ДД.ММ.РРРР"
	case errors.Is(err, intake.ErrUnknownOption):
		return "❌ Виберіть варіант із меню"
	case errors.Is(err, service.ErrRateUnavailable):
		return rateFailedText
	case errors.Is(err, tariff.ErrUnsupportedVehicle):
		return "❌ Цей тип транспортного засобу не підтримується"
	case errors.Is(err, tariff.ErrNotFinite):
		return "❌ Занадто велике значення"
	}
	return "❌ Не вдалося виконати розрахунок. Почніть спочатку."
}

func ratesText(r tariff.RateSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "💱 <b>Курс НБУ на %s</b>\n\n", r.Date.Format(intake.DateLayout))
	fmt.Fprintf(&sb, "🇺🇸 1 USD = %s грн\n", rate(r.USD))
	fmt.Fprintf(&sb, "🇪🇺 1 EUR = %s грн\n\n", rate(r.EUR))
	fmt.Fprintf(&sb, "💵 100 USD = %s грн\n", money(r.USD*100))
	fmt.Fprintf(&sb, "💶 100 EUR = %s грн", money(r.EUR*100))
	return sb.String()
}

func resultText(b *tariff.Breakdown, now time.Time) string {
	var sb strings.Builder
	benefits := b.Category == tariff.CategoryCarElectricBenefits

	sb.WriteString("📊 <b>Результат розрахунку</b>\n\n")
	fmt.Fprintf(&sb, "🚗 %s\n", categoryLabel(string(b.Category)))
	fmt.Fprintf(&sb, "💰 Вартість: %s %s = %s грн\n", amount(b.Cost.Amount), b.Cost.Currency, money(b.CostLocal))
	if b.Additional.Amount > 0 {
		fmt.Fprintf(&sb, "➕ Дод. витрати: %s %s = %s грн\n", amount(b.Additional.Amount), b.Additional.Currency, money(b.AdditionalLocal))
	}
	fmt.Fprintf(&sb, "💵 Загальна вартість: %s грн\n\n", money(b.TotalLocal))

	if b.Year != nil {
		fmt.Fprintf(&sb, "📅 Рік випуску: %d (вік: %d р.)\n", *b.Year, now.Year()-*b.Year)
		fmt.Fprintf(&sb, "📊 Коефіцієнт віку: %s\n\n", amount(b.AgeCoefficient))
	}
	if b.EngineCC != nil {
		fmt.Fprintf(&sb, "🔧 Об'єм двигуна: %s см³\n\n", amount(*b.EngineCC))
	}
	if b.BatteryKWh != nil {
		fmt.Fprintf(&sb, "🔋 Місткість батареї: %s кВт·год\n\n", amount(*b.BatteryKWh))
	}

	sb.WriteString("<b>Митні платежі:</b>\n")
	if benefits {
		fmt.Fprintf(&sb, "• Мито (0%% - пільга): %s грн\n", money(b.Duty))
	} else {
		fmt.Fprintf(&sb, "• Мито (%s): %s грн\n", percent(b.DutyRate), money(b.Duty))
	}
	fmt.Fprintf(&sb, "• Акциз: %s EUR = %s грн\n", money(b.ExciseEUR), money(b.ExciseLocal))
	if benefits {
		fmt.Fprintf(&sb, "• ПДВ (0%% - пільга): %s грн\n", money(b.VAT))
	} else {
		fmt.Fprintf(&sb, "• ПДВ (%s): %s грн\n", percent(b.VATRate), money(b.VAT))
	}

	inCost, err := b.TotalCustomsIn(b.Cost.Currency)
	if err != nil {
		inCost = b.TotalCustoms
	}
	fmt.Fprintf(&sb, "\n💵 <b>РАЗОМ митниця: %s грн (%s %s)</b>\n",
		money(b.TotalCustoms), money(inCost), currencySymbol(string(b.Cost.Currency)))

	switch {
	case b.Category.IsElectric():
		sb.WriteString("\n• Пенсійний фонд: 0.00 грн (електромобілі не сплачують ✅)\n")
	case b.Category.IsTruck():
		sb.WriteString("\n• Пенсійний фонд: 0.00 грн (вантажівки не сплачують)\n")
	default:
		fmt.Fprintf(&sb, "\n• Пенсійний фонд (%s): %s грн\n", percent(b.PensionRate), money(b.Pension))
	}

	fmt.Fprintf(&sb, "\n💰 <b>ВСЬОГО з пенсійним: %s грн</b>\n", money(b.TotalPayments))
	fmt.Fprintf(&sb, "\n📅 Курс НБУ на %s:\n", b.Rates.Date.Format(intake.DateLayout))
	fmt.Fprintf(&sb, "USD: %s грн | EUR: %s грн", money(b.Rates.USD), money(b.Rates.EUR))
	return sb.String()
}

func historyText(rows []*models.Calculation) string {
	if len(rows) == 0 {
		return emptyHistory
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 <b>Останні %d розрахунків:</b>\n\n", len(rows))
	for i, c := range rows {
		fmt.Fprintf(&sb, "%d. 🚗 <b>%s</b>\n", i+1, categoryLabel(c.VehicleType))
		if c.Year != nil {
			fmt.Fprintf(&sb, "📅 Рік: %d\n", *c.Year)
		}
		switch {
		case c.EngineVolume != nil:
			fmt.Fprintf(&sb, "🔧 %s см³\n", amount(*c.EngineVolume))
		case c.BatteryKWh != nil:
			fmt.Fprintf(&sb, "🔧 %s кВт·год\n", amount(*c.BatteryKWh))
		}
		fmt.Fprintf(&sb, "💰 Вартість = %s грн\n", money(c.TotalUAH))
		fmt.Fprintf(&sb, "💵 РАЗОМ митниця: %s грн (%s %s)\n",
			money(c.TotalCustoms), money(customsInCurrency(c)), currencySymbol(c.Currency))
		fmt.Fprintf(&sb, "📅 %s\n\n", c.CreatedAt.Local().Format("02.01.2006 15:04"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func customsInCurrency(c *models.Calculation) float64 {
	switch tariff.Currency(c.Currency) {
	case tariff.CurrencyUSD:
		if c.USDRate > 0 {
			return c.TotalCustoms / c.USDRate
		}
	case tariff.CurrencyEUR:
		if c.EURRate > 0 {
			return c.TotalCustoms / c.EURRate
		}
	}
	return c.TotalCustoms
}

func statsText(s *models.CalculationStats) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Статистика робота</b>\n\n")
	fmt.Fprintf(&sb, "👥 Унікальних користувачів: %d\n", s.UniqueUsers)
	fmt.Fprintf(&sb, "🧮 Усього розрахунків: %d\n", s.Total)
	fmt.Fprintf(&sb, "📅 За останні 24 год: %d\n", s.Recent)
	if len(s.ByVehicleType) > 0 {
		sb.WriteString("\n<b>Популярні типи ТЗ:</b>\n")
		for _, v := range s.ByVehicleType {
			fmt.Fprintf(&sb, "• %s: %d\n", categoryLabel(v.VehicleType), v.Count)
		}
	}
	if len(s.ByDay) > 0 {
		sb.WriteString("\n<b>По днях:</b>\n")
		for _, d := range s.ByDay {
			fmt.Fprintf(&sb, "• %s: %d\n", d.Day, d.Count)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func contactText(username string) string {
	return "💬 Зв'язатися з розробником: @" + username
}
