package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ride_ledger/internal/models"
)

// Reader is the read surface shared by the authenticated and the
// anonymous channels. Every method is a pure function of committed state.
type Reader interface {
	RideCounter(ctx context.Context) (uint64, error)
	Ride(ctx context.Context, id uint64) (models.Ride, error)
	Rides(ctx context.Context) ([]models.Ride, error)
	Driver(ctx context.Context, identity string) (models.Driver, error)
}

// ReadOnly narrows a Ledger to its Reader methods so the public channel
// cannot reach any mutation.
func ReadOnly(l *Ledger) Reader {
	return readOnly{l: l}
}

type readOnly struct{ l *Ledger }

func (r readOnly) RideCounter(ctx context.Context) (uint64, error) { return r.l.RideCounter(ctx) }
func (r readOnly) Ride(ctx context.Context, id uint64) (models.Ride, error) {
	return r.l.Ride(ctx, id)
}
func (r readOnly) Rides(ctx context.Context) ([]models.Ride, error) { return r.l.Rides(ctx) }
func (r readOnly) Driver(ctx context.Context, identity string) (models.Driver, error) {
	return r.l.Driver(ctx, identity)
}

func (l *Ledger) RideCounter(ctx context.Context) (uint64, error) {
	return rideCounter(l.db.WithContext(ctx))
}

func rideCounter(db *gorm.DB) (uint64, error) {
	var counter models.Counter
	if err := db.First(&counter, "name = ?", models.RideCounterName).Error; err != nil {
		return 0, fmt.Errorf("read ride counter: %w", err)
	}
	return counter.Value, nil
}

func (l *Ledger) Ride(ctx context.Context, id uint64) (models.Ride, error) {
	return loadRide(l.db.WithContext(ctx), id)
}

// Rides enumerates ids 1..counter from one snapshot.
func (l *Ledger) Rides(ctx context.Context) ([]models.Ride, error) {
	var rides []models.Ride
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter, err := rideCounter(tx)
		if err != nil {
			return err
		}
		rides = make([]models.Ride, 0, counter)
		if counter == 0 {
			return nil
		}
		if err := tx.Where("id BETWEEN ? AND ?", 1, counter).Order("id").Find(&rides).Error; err != nil {
			return fmt.Errorf("list rides: %w", err)
		}
		if uint64(len(rides)) != counter {
			return fmt.Errorf("ride table has %d rows for counter %d", len(rides), counter)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rides, nil
}

// EscrowBalance is the amount currently held for ride id; zero before
// funding and after release.
func (l *Ledger) EscrowBalance(ctx context.Context, id uint64) (uint64, error) {
	db := l.db.WithContext(ctx)
	if _, err := loadRide(db, id); err != nil {
		return 0, err
	}
	var escrow models.Escrow
	res := db.Where("ride_id = ?", id).Limit(1).Find(&escrow)
	if res.Error != nil {
		return 0, fmt.Errorf("load escrow for ride %d: %w", id, res.Error)
	}
	return escrow.Amount, nil
}
