package models

// RideCounterName is the counter row that hands out ride ids.
const RideCounterName = "rides"

type Counter struct {
	Name  string `gorm:"primaryKey"`
	Value uint64
}

func (Counter) TableName() string {
	return "ledger_counters"
}
