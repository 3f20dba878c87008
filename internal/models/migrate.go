package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the ledger tables and seeds the ride counter and the
// custody account. It is safe to run on every start.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Account{}, &Driver{}, &Ride{}, &Escrow{}, &Counter{}, &RideEvent{}); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	if err := db.FirstOrCreate(&Counter{}, Counter{Name: RideCounterName}).Error; err != nil {
		return fmt.Errorf("seed ride counter: %w", err)
	}
	custody := Account{Identity: CustodyIdentity, Name: "escrow custody", Email: CustodyIdentity, Kind: AccountCustody}
	if err := db.Where(Account{Identity: CustodyIdentity}).FirstOrCreate(&custody).Error; err != nil {
		return fmt.Errorf("seed custody account: %w", err)
	}
	return nil
}
