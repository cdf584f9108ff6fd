package intake

import (
	"fmt"
	"math"
	"time"

	"customs-calc/internal/tariff"
)

// Record accumulates answers. Fields are replaced, never mutated in place,
// so copies handed out in prompts stay stable.
type Record struct {
	Category      tariff.Category
	Cost          *tariff.Money
	Additional    *tariff.Money
	EngineCC      *float64
	BatteryKWh    *float64
	Year          *int
	ValuationDate *time.Time
}

// Vehicle resolves the record into the typed variant for its category.
func (r Record) Vehicle() (tariff.Vehicle, error) {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s requires %s", ErrIncomplete, r.Category, field)
	}
	engine := func() (float64, int, error) {
		if r.EngineCC == nil {
			return 0, 0, missing("engine volume")
		}
		if r.Year == nil {
			return 0, 0, missing("production year")
		}
		return *r.EngineCC, *r.Year, nil
	}
	battery := func() (float64, error) {
		if r.BatteryKWh == nil {
			return 0, missing("battery capacity")
		}
		return *r.BatteryKWh, nil
	}

	switch r.Category {
	case tariff.CategoryCarPetrol, tariff.CategoryCarDiesel, tariff.CategoryCarHybridPetrol,
		tariff.CategoryCarHybridDiesel, tariff.CategoryTruckPetrol, tariff.CategoryTruckDiesel:
		cc, year, err := engine()
		if err != nil {
			return nil, err
		}
		switch r.Category {
		case tariff.CategoryCarPetrol:
			return tariff.PetrolCar{EngineCC: cc, Year: year}, nil
		case tariff.CategoryCarDiesel:
			return tariff.DieselCar{EngineCC: cc, Year: year}, nil
		case tariff.CategoryCarHybridPetrol:
			return tariff.HybridPetrolCar{EngineCC: cc, Year: year}, nil
		case tariff.CategoryCarHybridDiesel:
			return tariff.HybridDieselCar{EngineCC: cc, Year: year}, nil
		case tariff.CategoryTruckPetrol:
			return tariff.PetrolTruck{EngineCC: cc, Year: year}, nil
		default:
			return tariff.DieselTruck{EngineCC: cc, Year: year}, nil
		}
	case tariff.CategoryCarElectricBenefits, tariff.CategoryCarElectricNoBenefits:
		kwh, err := battery()
		if err != nil {
			return nil, err
		}
		return tariff.ElectricCar{
			BatteryKWh:   kwh,
			WithBenefits: r.Category == tariff.CategoryCarElectricBenefits,
		}, nil
	case tariff.CategoryTruckElectric:
		kwh, err := battery()
		if err != nil {
			return nil, err
		}
		return tariff.ElectricTruck{BatteryKWh: kwh}, nil
	case tariff.CategoryMotoElectric:
		kwh, err := battery()
		if err != nil {
			return nil, err
		}
		return tariff.ElectricMotorcycle{BatteryKWh: kwh}, nil
	case tariff.CategoryMotoPetrol:
		if r.EngineCC == nil {
			return nil, missing("engine volume")
		}
		return tariff.PetrolMotorcycle{EngineCC: *r.EngineCC}, nil
	case "":
		return nil, fmt.Errorf("%w: no category chosen", ErrIncomplete)
	default:
		return nil, fmt.Errorf("%w: %s", tariff.ErrUnsupportedVehicle, r.Category)
	}
}

// Complete reports whether every field the category requires is present.
func (r Record) Complete() bool {
	if r.Cost == nil || r.Additional == nil || r.ValuationDate == nil {
		return false
	}
	_, err := r.Vehicle()
	return err == nil
}

// Request resolves a complete record into a calculation request.
func (r Record) Request() (*Request, error) {
	v, err := r.Vehicle()
	if err != nil {
		return nil, err
	}
	if r.Cost == nil || r.Additional == nil || r.ValuationDate == nil {
		return nil, fmt.Errorf("%w: cost, additional cost and valuation date are required", ErrIncomplete)
	}
	return &Request{
		Vehicle:       v,
		Cost:          *r.Cost,
		Additional:    *r.Additional,
		ValuationDate: *r.ValuationDate,
	}, nil
}

// Validate applies the per-answer rules to a record assembled elsewhere,
// such as a direct API request.
func (r Record) Validate(now time.Time) error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	for _, m := range []*tariff.Money{r.Cost, r.Additional} {
		if m == nil {
			continue
		}
		if !finite(m.Amount) {
			return ErrNotANumber
		}
		if m.Amount < 0 {
			return ErrNegative
		}
		if m.Amount > MaxAmount {
			return ErrTooLarge
		}
		if _, ok := tariff.ParseCurrency(string(m.Currency)); !ok && m.Amount != 0 {
			return fmt.Errorf("%w: currency %q", ErrUnknownOption, m.Currency)
		}
	}
	for _, v := range []*float64{r.EngineCC, r.BatteryKWh} {
		if v == nil {
			continue
		}
		if !finite(*v) {
			return ErrNotANumber
		}
		if *v <= 0 {
			return ErrNotPositive
		}
		if *v > MaxAmount {
			return ErrTooLarge
		}
	}
	if r.Year != nil {
		if upper := now.Year() + 1; *r.Year < 1900 || *r.Year > upper {
			return &YearRangeError{Min: 1900, Max: upper}
		}
	}
	return nil
}
