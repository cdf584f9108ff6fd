package tariff

// Category is the persisted vehicle tag.
type Category string

const (
	CategoryCarPetrol             Category = "car_petrol"
	CategoryCarDiesel             Category = "car_diesel"
	CategoryCarElectricBenefits   Category = "car_electric_benefits"
	CategoryCarElectricNoBenefits Category = "car_electric_no_benefits"
	CategoryCarHybridPetrol       Category = "car_hybrid_petrol"
	CategoryCarHybridDiesel       Category = "car_hybrid_diesel"
	CategoryTruckPetrol           Category = "truck_petrol"
	CategoryTruckDiesel           Category = "truck_diesel"
	CategoryTruckElectric         Category = "truck_electric"
	CategoryMotoPetrol            Category = "moto_petrol"
	CategoryMotoElectric          Category = "moto_electric"
)

// Categories lists every supported category in menu order.
var Categories = []Category{
	CategoryCarPetrol,
	CategoryCarDiesel,
	CategoryCarElectricBenefits,
	CategoryCarElectricNoBenefits,
	CategoryCarHybridPetrol,
	CategoryCarHybridDiesel,
	CategoryTruckPetrol,
	CategoryTruckDiesel,
	CategoryTruckElectric,
	CategoryMotoPetrol,
	CategoryMotoElectric,
}

// Group is the top-level menu a category belongs to.
type Group string

const (
	GroupCar        Group = "car"
	GroupTruck      Group = "truck"
	GroupMotorcycle Group = "moto"
)

// ParseCategory returns the category for a persisted tag.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

func (c Category) Group() Group {
	switch c {
	case CategoryTruckPetrol, CategoryTruckDiesel, CategoryTruckElectric:
		return GroupTruck
	case CategoryMotoPetrol, CategoryMotoElectric:
		return GroupMotorcycle
	default:
		return GroupCar
	}
}

// IsElectric reports whether the category has no combustion engine.
func (c Category) IsElectric() bool {
	switch c {
	case CategoryCarElectricBenefits, CategoryCarElectricNoBenefits, CategoryTruckElectric, CategoryMotoElectric:
		return true
	default:
		return false
	}
}

func (c Category) IsTruck() bool {
	return c.Group() == GroupTruck
}

func (c Category) IsMotorcycle() bool {
	return c.Group() == GroupMotorcycle
}

// NeedsYear reports whether the tariff depends on the production year.
func (c Category) NeedsYear() bool {
	return !c.IsElectric() && !c.IsMotorcycle()
}

// Vehicle is a fully resolved vehicle. Each implementation carries exactly
// the attributes its tariff formula reads.
type Vehicle interface {
	Category() Category
}

type PetrolCar struct {
	EngineCC float64
	Year     int
}

type DieselCar struct {
	EngineCC float64
	Year     int
}

type HybridPetrolCar struct {
	EngineCC float64
	Year     int
}

type HybridDieselCar struct {
	EngineCC float64
	Year     int
}

type ElectricCar struct {
	BatteryKWh   float64
	WithBenefits bool
}

type PetrolTruck struct {
	EngineCC float64
	Year     int
}

type DieselTruck struct {
	EngineCC float64
	Year     int
}

// ElectricTruck keeps the battery size for the record; the tariff ignores it.
type ElectricTruck struct {
	BatteryKWh float64
}

type PetrolMotorcycle struct {
	EngineCC float64
}

// ElectricMotorcycle pays a flat excise regardless of battery size.
type ElectricMotorcycle struct {
	BatteryKWh float64
}

func (PetrolCar) Category() Category          { return CategoryCarPetrol }
func (DieselCar) Category() Category          { return CategoryCarDiesel }
func (HybridPetrolCar) Category() Category    { return CategoryCarHybridPetrol }
func (HybridDieselCar) Category() Category    { return CategoryCarHybridDiesel }
func (PetrolTruck) Category() Category        { return CategoryTruckPetrol }
func (DieselTruck) Category() Category        { return CategoryTruckDiesel }
func (ElectricTruck) Category() Category      { return CategoryTruckElectric }
func (PetrolMotorcycle) Category() Category   { return CategoryMotoPetrol }
func (ElectricMotorcycle) Category() Category { return CategoryMotoElectric }

func (v ElectricCar) Category() Category {
	if v.WithBenefits {
		return CategoryCarElectricBenefits
	}
	return CategoryCarElectricNoBenefits
}
