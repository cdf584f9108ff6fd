// Package tariff implements the Ukrainian customs tariff for imported vehicles.
// Every function here is pure: the only ambient input is the current year,
// taken from the clock the Engine was built with.
package tariff

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	StandardDutyRate    = 0.10
	PetrolTruckDutyRate = 0.05
	VATRate             = 0.20

	ElectricCarExcisePerKWh      = 1.0
	ElectricMotorcycleExciseFlat = 22.0
	PensionLowerBound            = 499620.0
	PensionUpperBound            = 878120.0
	maxAgeCoefficient            = 15.0
	minAgeCoefficient            = 1.0
)

var (
	ErrUnsupportedVehicle = errors.New("unsupported vehicle")
	ErrNotFinite          = errors.New("calculation result is not finite")
)

// Levy is the category-specific part of a calculation: duty in UAH and
// excise in EUR before conversion.
type Levy struct {
	Duty           float64
	DutyRate       float64
	ExciseEUR      float64
	AgeCoefficient float64
}

type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine reading the current year from now.
// A nil now falls back to time.Now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

func (e *Engine) currentYear() int {
	return e.now().Year()
}

// AgeCoefficient scales passenger car excise by age, clamped to [1, 15].
// Age counts full years after the year following production.
func (e *Engine) AgeCoefficient(productionYear int) float64 {
	age := e.currentYear() - (productionYear + 1)
	switch {
	case age < 1:
		return minAgeCoefficient
	case age >= 15:
		return maxAgeCoefficient
	default:
		return float64(age)
	}
}

func (e *Engine) PetrolCar(costLocal, engineCC float64, year int) Levy {
	rate := 50.0
	if engineCC > 3000 {
		rate = 100.0
	}
	return e.passengerCar(costLocal, engineCC, year, rate)
}

func (e *Engine) DieselCar(costLocal, engineCC float64, year int) Levy {
	rate := 75.0
	if engineCC > 3500 {
		rate = 150.0
	}
	return e.passengerCar(costLocal, engineCC, year, rate)
}

// rate is EUR per 1000 cm3.
func (e *Engine) passengerCar(costLocal, engineCC float64, year int, rate float64) Levy {
	coef := e.AgeCoefficient(year)
	return Levy{
		Duty:           costLocal * StandardDutyRate,
		DutyRate:       StandardDutyRate,
		ExciseEUR:      (engineCC / 1000) * rate * coef,
		AgeCoefficient: coef,
	}
}

// Hybrids are taxed exactly like their combustion counterpart.
func (e *Engine) HybridPetrolCar(costLocal, engineCC float64, year int) Levy {
	return e.PetrolCar(costLocal, engineCC, year)
}

func (e *Engine) HybridDieselCar(costLocal, engineCC float64, year int) Levy {
	return e.DieselCar(costLocal, engineCC, year)
}

// ElectricCar pays no duty. VAT relief for the benefits variant is applied
// during composition.
func (e *Engine) ElectricCar(batteryKWh float64) Levy {
	return Levy{ExciseEUR: batteryKWh * ElectricCarExcisePerKWh}
}

func (e *Engine) PetrolTruck(costLocal, engineCC float64, year int) Levy {
	return e.truck(costLocal, engineCC, year, PetrolTruckDutyRate)
}

func (e *Engine) DieselTruck(costLocal, engineCC float64, year int) Levy {
	return e.truck(costLocal, engineCC, year, StandardDutyRate)
}

// truck excise is EUR per cm3, stepped by plain age (no +1 offset).
func (e *Engine) truck(costLocal, engineCC float64, year int, dutyRate float64) Levy {
	age := e.currentYear() - year
	rate := 1.0
	switch {
	case age < 5:
		rate = 0.02
	case age < 8:
		rate = 0.8
	}
	return Levy{
		Duty:           costLocal * dutyRate,
		DutyRate:       dutyRate,
		ExciseEUR:      engineCC * rate,
		AgeCoefficient: rate,
	}
}

func (e *Engine) ElectricTruck(costLocal float64) Levy {
	return Levy{Duty: costLocal * StandardDutyRate, DutyRate: StandardDutyRate}
}

func (e *Engine) Motorcycle(costLocal, engineCC float64) Levy {
	// the 50/250/500 cm3 bands share one rate
	rate := 0.447
	switch {
	case engineCC <= 500:
		rate = 0.062
	case engineCC <= 800:
		rate = 0.443
	}
	return Levy{
		Duty:      costLocal * StandardDutyRate,
		DutyRate:  StandardDutyRate,
		ExciseEUR: engineCC * rate,
	}
}

func (e *Engine) ElectricMotorcycle(costLocal float64) Levy {
	return Levy{
		Duty:      costLocal * StandardDutyRate,
		DutyRate:  StandardDutyRate,
		ExciseEUR: ElectricMotorcycleExciseFlat,
	}
}

// PensionRate returns the flat pension fund rate for the whole cost.
func PensionRate(costLocal float64) float64 {
	switch {
	case costLocal < PensionLowerBound:
		return 0.03
	case costLocal < PensionUpperBound:
		return 0.04
	default:
		return 0.05
	}
}

// PensionFund is not marginal: the band rate applies to the entire cost.
func PensionFund(costLocal float64, isElectric bool) float64 {
	if isElectric {
		return 0
	}
	return costLocal * PensionRate(costLocal)
}

// Assess dispatches to the formula for v.
func (e *Engine) Assess(v Vehicle, costLocal float64) (Levy, error) {
	switch v := v.(type) {
	case PetrolCar:
		return e.PetrolCar(costLocal, v.EngineCC, v.Year), nil
	case DieselCar:
		return e.DieselCar(costLocal, v.EngineCC, v.Year), nil
	case HybridPetrolCar:
		return e.HybridPetrolCar(costLocal, v.EngineCC, v.Year), nil
	case HybridDieselCar:
		return e.HybridDieselCar(costLocal, v.EngineCC, v.Year), nil
	case ElectricCar:
		return e.ElectricCar(v.BatteryKWh), nil
	case PetrolTruck:
		return e.PetrolTruck(costLocal, v.EngineCC, v.Year), nil
	case DieselTruck:
		return e.DieselTruck(costLocal, v.EngineCC, v.Year), nil
	case ElectricTruck:
		return e.ElectricTruck(costLocal), nil
	case PetrolMotorcycle:
		return e.Motorcycle(costLocal, v.EngineCC), nil
	case ElectricMotorcycle:
		return e.ElectricMotorcycle(costLocal), nil
	default:
		return Levy{}, fmt.Errorf("%w: %T", ErrUnsupportedVehicle, v)
	}
}

// Input is a complete calculation request.
type Input struct {
	Vehicle    Vehicle
	Cost       Money
	Additional Money
}

// Breakdown is the itemized result of one calculation. It is never mutated
// after Compute returns.
type Breakdown struct {
	Category        Category
	Cost            Money
	Additional      Money
	CostLocal       float64
	AdditionalLocal float64
	TotalLocal      float64

	Duty           float64
	DutyRate       float64
	ExciseEUR      float64
	ExciseLocal    float64
	VAT            float64
	VATRate        float64
	Pension        float64
	PensionRate    float64
	AgeCoefficient float64
	TotalCustoms   float64
	TotalPayments  float64

	Year       *int
	EngineCC   *float64
	BatteryKWh *float64

	Rates RateSet
}

// TotalCustomsIn converts the customs total back into c.
func (b *Breakdown) TotalCustomsIn(c Currency) (float64, error) {
	return b.Rates.FromLocal(b.TotalCustoms, c)
}

// Compute applies the full tariff to in using rates for every conversion.
func (e *Engine) Compute(in Input, rates RateSet) (*Breakdown, error) {
	if in.Vehicle == nil {
		return nil, fmt.Errorf("%w: nil vehicle", ErrUnsupportedVehicle)
	}
	costLocal, err := rates.ToLocal(in.Cost)
	if err != nil {
		return nil, fmt.Errorf("failed to convert cost: %w", err)
	}
	additionalLocal, err := rates.ToLocal(in.Additional)
	if err != nil {
		return nil, fmt.Errorf("failed to convert additional cost: %w", err)
	}
	totalLocal := costLocal + additionalLocal

	levy, err := e.Assess(in.Vehicle, totalLocal)
	if err != nil {
		return nil, err
	}

	category := in.Vehicle.Category()
	b := &Breakdown{
		Category:        category,
		Cost:            in.Cost,
		Additional:      in.Additional,
		CostLocal:       costLocal,
		AdditionalLocal: additionalLocal,
		TotalLocal:      totalLocal,
		Duty:            levy.Duty,
		DutyRate:        levy.DutyRate,
		ExciseEUR:       levy.ExciseEUR,
		ExciseLocal:     levy.ExciseEUR * rates.EUR,
		AgeCoefficient:  levy.AgeCoefficient,
		Rates:           rates,
	}

	if category != CategoryCarElectricBenefits {
		b.VATRate = VATRate
		b.VAT = (totalLocal + b.Duty + b.ExciseLocal) * VATRate
	}

	if !category.IsTruck() && !category.IsElectric() {
		b.PensionRate = PensionRate(totalLocal)
		b.Pension = PensionFund(totalLocal, false)
	}

	b.TotalCustoms = b.Duty + b.ExciseLocal + b.VAT
	b.TotalPayments = b.TotalCustoms + b.Pension

	if err := b.checkFinite(); err != nil {
		return nil, err
	}

	echoAttributes(b, in.Vehicle)
	return b, nil
}

func (b *Breakdown) checkFinite() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"cost", b.CostLocal},
		{"additional cost", b.AdditionalLocal},
		{"total", b.TotalLocal},
		{"duty", b.Duty},
		{"excise", b.ExciseLocal},
		{"vat", b.VAT},
		{"pension", b.Pension},
		{"total customs", b.TotalCustoms},
		{"total payments", b.TotalPayments},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s", ErrNotFinite, f.name)
		}
	}
	return nil
}

func echoAttributes(b *Breakdown, v Vehicle) {
	engine := func(cc float64, year int) {
		b.EngineCC = &cc
		b.Year = &year
	}
	battery := func(kwh float64) {
		b.BatteryKWh = &kwh
	}
	switch v := v.(type) {
	case PetrolCar:
		engine(v.EngineCC, v.Year)
	case DieselCar:
		engine(v.EngineCC, v.Year)
	case HybridPetrolCar:
		engine(v.EngineCC, v.Year)
	case HybridDieselCar:
		engine(v.EngineCC, v.Year)
	case PetrolTruck:
		engine(v.EngineCC, v.Year)
	case DieselTruck:
		engine(v.EngineCC, v.Year)
	case PetrolMotorcycle:
		cc := v.EngineCC
		b.EngineCC = &cc
	case ElectricCar:
		battery(v.BatteryKWh)
	case ElectricTruck:
		battery(v.BatteryKWh)
	case ElectricMotorcycle:
		battery(v.BatteryKWh)
	}
}
