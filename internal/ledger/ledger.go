// Package ledger owns the ride lifecycle, the escrow balances and the
// driver registry. Every mutation is one database transaction: the
// precondition checks and the writes either all commit or all roll back.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ride_ledger/internal/models"
)

// Options are the policy switches left open by the ride protocol.
type Options struct {
	// RequireRegisteredDriver rejects acceptRide from identities that
	// never called registerDriver.
	RequireRegisteredDriver bool
	// MaxConcurrentRidesPerDriver caps ACCEPTED+FUNDED+COMPLETED rides
	// held by one driver. Zero means no cap.
	MaxConcurrentRidesPerDriver int
	// AllowFundedCancel lets the rider cancel a FUNDED ride and get the
	// escrow back.
	AllowFundedCancel bool
}

func DefaultOptions() Options {
	return Options{RequireRegisteredDriver: true, AllowFundedCancel: true}
}

// Notifier receives committed state-change records.
type Notifier interface {
	Publish(ctx context.Context, ev models.RideEvent) error
}

type Ledger struct {
	db       *gorm.DB
	opts     Options
	notifier Notifier
	log      *logrus.Entry
}

// New returns a Ledger over db. The schema must already be migrated
// (see models.Migrate). notifier may be nil.
func New(db *gorm.DB, opts Options, notifier Notifier) *Ledger {
	return &Ledger{
		db:       db,
		opts:     opts,
		notifier: notifier,
		log:      logrus.WithField("component", "ledger"),
	}
}

// events collects the records written by one transaction so they can be
// published once it commits.
type events struct {
	tx      *gorm.DB
	pending []models.RideEvent
}

func (e *events) emit(ev models.RideEvent) error {
	if err := e.tx.Create(&ev).Error; err != nil {
		return fmt.Errorf("record %s: %w", ev.Kind, err)
	}
	e.pending = append(e.pending, ev)
	return nil
}

func (l *Ledger) transact(ctx context.Context, fn func(tx *gorm.DB, ev *events) error) error {
	var ev events
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev = events{tx: tx}
		return fn(tx, &ev)
	})
	if err != nil {
		return err
	}
	l.publish(ctx, ev.pending)
	return nil
}

func (l *Ledger) publish(ctx context.Context, pending []models.RideEvent) {
	if l.notifier == nil {
		return
	}
	for _, ev := range pending {
		if err := l.notifier.Publish(ctx, ev); err != nil {
			l.log.WithError(err).WithFields(logrus.Fields{
				"event":   ev.Kind,
				"seq":     ev.Seq,
				"ride_id": ev.RideID,
			}).Warn("event publish failed; record is still in ride_events")
		}
	}
}

// loadRide reads a ride inside tx. Ids outside 1..counter are NotFound.
func loadRide(tx *gorm.DB, id uint64) (models.Ride, error) {
	var ride models.Ride
	if id == 0 {
		return ride, newError(KindNotFound, "ride %d does not exist", id)
	}
	if err := tx.First(&ride, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ride, newError(KindNotFound, "ride %d does not exist", id)
		}
		return ride, fmt.Errorf("load ride %d: %w", id, err)
	}
	return ride, nil
}

// moveStatus is the compare-and-swap at the heart of every transition:
// the row only changes if it is still in from. Zero rows affected means
// another transaction got there first.
func moveStatus(tx *gorm.DB, id uint64, from, to models.RideStatus, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&models.Ride{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update ride %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return newError(KindInvalidState, "ride %d is no longer %s", id, from)
	}
	return nil
}

// MaxAmount is the largest price, value or balance the ledger accepts.
// Balances are stored in signed 64-bit columns.
const MaxAmount = math.MaxInt64

func checkAmount(what string, amount uint64) error {
	if amount > MaxAmount {
		return newError(KindInvalidArgument, "%s %d exceeds %d", what, amount, uint64(MaxAmount))
	}
	return nil
}

// credit reports false when the account does not exist or the credit
// would push its balance past MaxAmount.
func credit(tx *gorm.DB, identity string, amount uint64) (bool, error) {
	if amount > MaxAmount {
		return false, nil
	}
	res := tx.Model(&models.Account{}).
		Where("identity = ? AND balance <= ?", identity, uint64(MaxAmount)-amount).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("credit %s: %w", identity, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func debit(tx *gorm.DB, identity string, amount uint64) (bool, error) {
	if amount > MaxAmount {
		return false, nil
	}
	res := tx.Model(&models.Account{}).
		Where("identity = ? AND balance >= ?", identity, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("debit %s: %w", identity, res.Error)
	}
	return res.RowsAffected == 1, nil
}
