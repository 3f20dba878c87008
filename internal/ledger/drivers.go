package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ride_ledger/internal/models"
)

// DriverProfile is what a caller submits to registerDriver. The caller's
// own identity is always the one registered.
type DriverProfile struct {
	Name          string
	LicensePlate  string
	VehicleType   string
	RatePerKm     uint64
	PayoutAddress string
}

func (p DriverProfile) validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return newError(KindInvalidArgument, "name is required")
	case strings.TrimSpace(p.LicensePlate) == "":
		return newError(KindInvalidArgument, "license plate is required")
	case strings.TrimSpace(p.VehicleType) == "":
		return newError(KindInvalidArgument, "vehicle type is required")
	case p.PayoutAddress == models.CustodyIdentity:
		return newError(KindInvalidArgument, "payout address cannot be the escrow custody account")
	}
	return nil
}

// RegisterDriver upserts the caller's driver record. Re-registration
// overwrites every field; it is not an error.
func (l *Ledger) RegisterDriver(ctx context.Context, caller string, p DriverProfile) (models.Driver, error) {
	if caller == "" {
		return models.Driver{}, newError(KindUnauthorized, "anonymous caller")
	}
	if err := p.validate(); err != nil {
		return models.Driver{}, err
	}

	driver := models.Driver{
		Identity:      caller,
		IsRegistered:  true,
		Name:          p.Name,
		LicensePlate:  p.LicensePlate,
		VehicleType:   p.VehicleType,
		RatePerKm:     p.RatePerKm,
		PayoutAddress: p.PayoutAddress,
	}
	if driver.PayoutAddress == "" {
		driver.PayoutAddress = caller
	}
	err := l.transact(ctx, func(tx *gorm.DB, ev *events) error {
		// Concurrent first registrations land on the same row instead of
		// failing on the primary key.
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_registered", "name", "license_plate", "vehicle_type",
				"rate_per_km", "payout_address", "updated_at",
			}),
		}).Create(&driver).Error
		if err != nil {
			return fmt.Errorf("save driver %s: %w", caller, err)
		}
		if err := tx.First(&driver, "identity = ?", caller).Error; err != nil {
			return fmt.Errorf("reload driver %s: %w", caller, err)
		}
		return ev.emit(models.RideEvent{Kind: models.EventDriverRegistered, Identity: caller, Name: driver.Name})
	})
	if err != nil {
		return models.Driver{}, err
	}

	l.log.WithFields(logrus.Fields{"identity": caller, "name": driver.Name}).Info("driver registered")
	return driver, nil
}

// Driver returns the record for identity, or the zero record with
// IsRegistered=false when there is none.
func (l *Ledger) Driver(ctx context.Context, identity string) (models.Driver, error) {
	var driver models.Driver
	err := l.db.WithContext(ctx).First(&driver, "identity = ?", identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Driver{}, nil
	}
	if err != nil {
		return models.Driver{}, fmt.Errorf("load driver %s: %w", identity, err)
	}
	return driver, nil
}
