package intake

import (
	"fmt"
	"strings"
	"time"

	"customs-calc/internal/tariff"
)

type Option func(*Machine)

// WithClock injects the clock used for year bounds and relative dates.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithElectricBenefits offers the electric-car-with-benefits subtype.
func WithElectricBenefits(enabled bool) Option {
	return func(m *Machine) {
		m.benefits = enabled
	}
}

// Machine drives one user's dialogue. It is not safe for concurrent use;
// Store serializes access per session.
type Machine struct {
	now      func() time.Time
	benefits bool

	state     State
	group     tariff.Group
	ratesOnly bool
	record    Record
}

func NewMachine(opts ...Option) *Machine {
	m := &Machine{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State {
	return m.state
}

// Record returns a snapshot of the accumulated answers.
func (m *Machine) Record() Record {
	return m.record
}

func (m *Machine) RatesOnly() bool {
	return m.ratesOnly
}

// Reset clears the session and returns to category selection.
func (m *Machine) Reset() Prompt {
	m.state = StateChoosingCategory
	m.group = ""
	m.ratesOnly = false
	m.record = Record{}
	return m.Prompt()
}

// LookupRates starts a dialogue that only asks for a valuation date.
func (m *Machine) LookupRates() Prompt {
	m.Reset()
	m.ratesOnly = true
	m.state = StateChoosingValuationDate
	return m.Prompt()
}

// Rewind keeps the accumulated record and asks for the valuation date again.
// It is used when rates could not be fetched for the chosen date.
func (m *Machine) Rewind() Prompt {
	m.record.ValuationDate = nil
	m.state = StateChoosingValuationDate
	return m.Prompt()
}

// Prompt describes the question for the current state.
func (m *Machine) Prompt() Prompt {
	p := Prompt{State: m.state, Group: m.group, Record: m.record}
	switch m.state {
	case StateChoosingCategory:
		p.Kind = KindChoice
		p.Options = []string{string(tariff.GroupCar), string(tariff.GroupTruck), string(tariff.GroupMotorcycle)}
	case StateChoosingEngineSubtype:
		p.Kind = KindChoice
		for _, c := range m.subtypes() {
			p.Options = append(p.Options, string(c))
		}
	case StateEnteringCostCurrency, StateEnteringAdditionalCurrency:
		p.Kind = KindChoice
		for _, c := range tariff.Currencies {
			p.Options = append(p.Options, string(c))
		}
	case StateEnteringCost, StateEnteringAdditionalCost, StateEnteringEngineVolume, StateEnteringBatteryCapacity:
		p.Kind = KindNumber
	case StateEnteringProductionYear:
		p.Kind = KindYear
	case StateChoosingValuationDate:
		p.Kind = KindChoice
		p.Options = []string{AnswerToday, AnswerTomorrow, AnswerYesterday, AnswerCustom}
	case StateEnteringCustomDate:
		p.Kind = KindDate
	default:
		p.Kind = KindNone
	}
	return p
}

func (m *Machine) subtypes() []tariff.Category {
	var out []tariff.Category
	for _, c := range tariff.Categories {
		if c.Group() != m.group {
			continue
		}
		if c == tariff.CategoryCarElectricBenefits && !m.benefits {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Handle validates one answer. A rejected answer leaves state and record
// untouched and returns the same prompt with Err set.
func (m *Machine) Handle(answer string) Step {
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, AnswerBack) {
		return Step{Prompt: m.Reset(), Cancelled: true}
	}

	if err := m.apply(answer); err != nil {
		p := m.Prompt()
		p.Err = err
		return Step{Prompt: p}
	}

	if m.state != StateCompleted {
		return Step{Prompt: m.Prompt()}
	}

	if m.ratesOnly {
		return Step{Prompt: m.Prompt(), Request: &Request{RatesOnly: true, ValuationDate: *m.record.ValuationDate}}
	}
	req, err := m.record.Request()
	if err != nil {
		p := m.Reset()
		p.Err = err
		return Step{Prompt: p, Cancelled: true}
	}
	return Step{Prompt: m.Prompt(), Request: req}
}

// Done resets the machine once a completed request has been served.
// Until then the machine stays in StateCompleted so the caller may Rewind.
func (m *Machine) Done() Prompt {
	return m.Reset()
}

func (m *Machine) apply(answer string) error {
	switch m.state {
	case StateChoosingCategory:
		return m.chooseCategory(answer)
	case StateChoosingEngineSubtype:
		return m.chooseSubtype(answer)
	case StateEnteringCost:
		v, err := parseNonNegative(answer)
		if err != nil {
			return err
		}
		m.record.Cost = &tariff.Money{Amount: v}
		m.state = StateEnteringCostCurrency
	case StateEnteringCostCurrency:
		c, ok := tariff.ParseCurrency(answer)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownOption, answer)
		}
		m.record.Cost = &tariff.Money{Amount: m.record.Cost.Amount, Currency: c}
		m.state = StateEnteringAdditionalCost
	case StateEnteringAdditionalCost:
		v, err := parseNonNegative(answer)
		if err != nil {
			return err
		}
		if v == 0 {
			m.record.Additional = &tariff.Money{Amount: 0, Currency: tariff.CurrencyUSD}
			m.state = m.afterCosts()
			return nil
		}
		m.record.Additional = &tariff.Money{Amount: v}
		m.state = StateEnteringAdditionalCurrency
	case StateEnteringAdditionalCurrency:
		c, ok := tariff.ParseCurrency(answer)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownOption, answer)
		}
		m.record.Additional = &tariff.Money{Amount: m.record.Additional.Amount, Currency: c}
		m.state = m.afterCosts()
	case StateEnteringEngineVolume:
		v, err := parsePositive(answer)
		if err != nil {
			return err
		}
		m.record.EngineCC = &v
		if m.record.Category.NeedsYear() {
			m.state = StateEnteringProductionYear
		} else {
			m.state = StateChoosingValuationDate
		}
	case StateEnteringBatteryCapacity:
		v, err := parsePositive(answer)
		if err != nil {
			return err
		}
		m.record.BatteryKWh = &v
		m.state = StateChoosingValuationDate
	case StateEnteringProductionYear:
		year, err := ParseYear(answer, m.now().Year())
		if err != nil {
			return err
		}
		m.record.Year = &year
		m.state = StateChoosingValuationDate
	case StateChoosingValuationDate:
		return m.chooseDate(answer)
	case StateEnteringCustomDate:
		d, err := ParseDate(answer, m.now().Location())
		if err != nil {
			return err
		}
		m.record.ValuationDate = &d
		m.state = StateCompleted
	default:
		return ErrCompleted
	}
	return nil
}

func (m *Machine) chooseCategory(answer string) error {
	code := strings.ToLower(answer)
	switch tariff.Group(code) {
	case tariff.GroupCar, tariff.GroupTruck, tariff.GroupMotorcycle:
		m.record = Record{}
		m.group = tariff.Group(code)
		m.state = StateChoosingEngineSubtype
		return nil
	}
	if c, ok := tariff.ParseCategory(code); ok {
		prev := m.group
		m.group = c.Group()
		if err := m.chooseSubtype(code); err != nil {
			m.group = prev
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownOption, answer)
}

func (m *Machine) chooseSubtype(answer string) error {
	code := strings.ToLower(answer)
	for _, c := range m.subtypes() {
		if string(c) != code {
			continue
		}
		m.record = Record{Category: c}
		if c == tariff.CategoryCarElectricBenefits {
			m.record.Cost = &tariff.Money{Amount: 0, Currency: tariff.CurrencyEUR}
			m.record.Additional = &tariff.Money{Amount: 0, Currency: tariff.CurrencyEUR}
			m.state = StateEnteringBatteryCapacity
			return nil
		}
		m.state = StateEnteringCost
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownOption, answer)
}

func (m *Machine) afterCosts() State {
	if m.record.Category.IsElectric() {
		return StateEnteringBatteryCapacity
	}
	return StateEnteringEngineVolume
}

func (m *Machine) chooseDate(answer string) error {
	if strings.EqualFold(answer, AnswerCustom) {
		m.state = StateEnteringCustomDate
		return nil
	}
	// A typed date is accepted without going through the custom step.
	d, err := ResolveDate(answer, m.now())
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownOption, answer)
	}
	m.record.ValuationDate = &d
	m.state = StateCompleted
	return nil
}
