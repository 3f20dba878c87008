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

var activeStatuses = []models.RideStatus{models.StatusAccepted, models.StatusFunded, models.StatusCompleted}

// RequestRide creates a ride in REQUESTED with the caller as rider and
// the next id from the ride counter.
func (l *Ledger) RequestRide(ctx context.Context, caller, pickup, dest string, price uint64) (models.Ride, error) {
	switch {
	case caller == "":
		return models.Ride{}, newError(KindUnauthorized, "anonymous caller")
	case strings.TrimSpace(pickup) == "":
		return models.Ride{}, newError(KindInvalidArgument, "pickup is required")
	case strings.TrimSpace(dest) == "":
		return models.Ride{}, newError(KindInvalidArgument, "destination is required")
	case price == 0:
		return models.Ride{}, newError(KindInvalidArgument, "price must be positive")
	}
	if err := checkAmount("price", price); err != nil {
		return models.Ride{}, err
	}

	var ride models.Ride
	err := l.transact(ctx, func(tx *gorm.DB, ev *events) error {
		id, err := nextRideID(tx)
		if err != nil {
			return err
		}
		ride = models.Ride{
			ID:          id,
			Rider:       caller,
			Pickup:      pickup,
			Destination: dest,
			Price:       price,
			Status:      models.StatusRequested,
		}
		if err := tx.Create(&ride).Error; err != nil {
			return fmt.Errorf("create ride %d: %w", id, err)
		}
		return ev.emit(models.RideEvent{Kind: models.EventRideRequested, RideID: id, Identity: caller, Amount: price})
	})
	if err != nil {
		return models.Ride{}, err
	}

	l.log.WithFields(logrus.Fields{"ride_id": ride.ID, "rider": caller, "price": price}).Info("ride requested")
	return ride, nil
}

// nextRideID bumps the counter row inside tx. The row lock taken by the
// update serializes concurrent requests, and a rollback gives the id back.
func nextRideID(tx *gorm.DB) (uint64, error) {
	res := tx.Model(&models.Counter{}).
		Where("name = ?", models.RideCounterName).
		Update("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("bump ride counter: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, errors.New("ride counter row missing; run migrations")
	}
	var counter models.Counter
	if err := tx.First(&counter, "name = ?", models.RideCounterName).Error; err != nil {
		return 0, fmt.Errorf("read ride counter: %w", err)
	}
	return counter.Value, nil
}

// AcceptRide assigns the caller as driver of a REQUESTED ride.
func (l *Ledger) AcceptRide(ctx context.Context, caller string, id uint64) (models.Ride, error) {
	return l.transition(ctx, caller, id, ActionAccept, func(tx *gorm.DB, ride *models.Ride, ev *events) error {
		if ride.Status != models.StatusRequested {
			return newError(KindInvalidState, "ride %d is %s, not REQUESTED", ride.ID, ride.Status)
		}
		if caller == ride.Rider {
			return newError(KindUnauthorized, "rider cannot accept their own ride")
		}
		if l.opts.RequireRegisteredDriver {
			var n int64
			if err := tx.Model(&models.Driver{}).Where("identity = ? AND is_registered = ?", caller, true).Count(&n).Error; err != nil {
				return fmt.Errorf("check driver %s: %w", caller, err)
			}
			if n == 0 {
				return newError(KindUnauthorized, "%s is not a registered driver", caller)
			}
		}
		if max := l.opts.MaxConcurrentRidesPerDriver; max > 0 {
			// Lock the driver row so concurrent accepts by one driver on
			// different rides count active rides one at a time.
			var locked []models.Driver
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("identity = ?", caller).Limit(1).Find(&locked).Error; err != nil {
				return fmt.Errorf("lock driver %s: %w", caller, err)
			}
			var n int64
			if err := tx.Model(&models.Ride{}).Where("driver = ? AND status IN ?", caller, activeStatuses).Count(&n).Error; err != nil {
				return fmt.Errorf("count active rides for %s: %w", caller, err)
			}
			if n >= int64(max) {
				return newError(KindLimitExceeded, "driver already holds %d active rides", n)
			}
		}

		if err := moveStatus(tx, ride.ID, models.StatusRequested, models.StatusAccepted, map[string]any{"driver": caller}); err != nil {
			return err
		}
		ride.Status = models.StatusAccepted
		ride.Driver = caller
		return ev.emit(models.RideEvent{Kind: models.EventRideAccepted, RideID: ride.ID, Identity: caller})
	})
}

// FundRide moves exactly price from the rider's balance into escrow.
func (l *Ledger) FundRide(ctx context.Context, caller string, id, value uint64) (models.Ride, error) {
	if err := checkAmount("value", value); err != nil {
		return models.Ride{}, err
	}
	return l.transition(ctx, caller, id, ActionFund, func(tx *gorm.DB, ride *models.Ride, ev *events) error {
		if ride.Status != models.StatusAccepted {
			return newError(KindInvalidState, "ride %d is %s, not ACCEPTED", ride.ID, ride.Status)
		}
		if caller != ride.Rider {
			return newError(KindUnauthorized, "only the rider can fund ride %d", ride.ID)
		}
		switch {
		case value < ride.Price:
			return newError(KindInsufficientValue, "attached %d, price is %d", value, ride.Price)
		case value > ride.Price:
			return newError(KindOverFunded, "attached %d, price is %d", value, ride.Price)
		}

		if err := moveStatus(tx, ride.ID, models.StatusAccepted, models.StatusFunded, nil); err != nil {
			return err
		}
		ok, err := debit(tx, caller, value)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindInsufficientBalance, "balance of %s is below %d", caller, value)
		}
		ok, err = credit(tx, models.CustodyIdentity, value)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindTransferFailed, "custody account cannot hold another %d", value)
		}
		if err := tx.Create(&models.Escrow{RideID: ride.ID, Amount: value}).Error; err != nil {
			return fmt.Errorf("open escrow for ride %d: %w", ride.ID, err)
		}
		ride.Status = models.StatusFunded
		return ev.emit(models.RideEvent{Kind: models.EventRideFunded, RideID: ride.ID, Identity: caller, Amount: value})
	})
}

// CompleteRide is the driver's attestation that the trip happened. The
// escrow is not released yet.
func (l *Ledger) CompleteRide(ctx context.Context, caller string, id uint64) (models.Ride, error) {
	return l.transition(ctx, caller, id, ActionComplete, func(tx *gorm.DB, ride *models.Ride, ev *events) error {
		if ride.Status != models.StatusFunded {
			return newError(KindInvalidState, "ride %d is %s, not FUNDED", ride.ID, ride.Status)
		}
		if caller != ride.Driver {
			return newError(KindUnauthorized, "only the driver can complete ride %d", ride.ID)
		}
		if err := moveStatus(tx, ride.ID, models.StatusFunded, models.StatusCompleted, nil); err != nil {
			return err
		}
		ride.Status = models.StatusCompleted
		return ev.emit(models.RideEvent{Kind: models.EventRideCompleted, RideID: ride.ID, Identity: caller})
	})
}

// ConfirmArrival releases the escrow to the driver's payout address and
// finalizes the ride. If the payout account cannot receive the transfer
// nothing is written: the ride stays COMPLETED with its escrow intact.
func (l *Ledger) ConfirmArrival(ctx context.Context, caller string, id uint64) (models.Ride, error) {
	return l.transition(ctx, caller, id, ActionConfirm, func(tx *gorm.DB, ride *models.Ride, ev *events) error {
		if ride.Status != models.StatusCompleted {
			return newError(KindInvalidState, "ride %d is %s, not COMPLETED", ride.ID, ride.Status)
		}
		if caller != ride.Rider {
			return newError(KindUnauthorized, "only the rider can confirm arrival for ride %d", ride.ID)
		}

		payee := ride.Driver
		var driver models.Driver
		err := tx.First(&driver, "identity = ?", ride.Driver).Error
		switch {
		case err == nil:
			payee = driver.Payee()
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("load driver %s: %w", ride.Driver, err)
		}
		if payee == models.CustodyIdentity {
			return newError(KindTransferFailed, "payout account %s is the escrow custody account", payee)
		}

		if err := moveStatus(tx, ride.ID, models.StatusCompleted, models.StatusFinalized, nil); err != nil {
			return err
		}
		amount, err := releaseEscrow(tx, ride.ID)
		if err != nil {
			return err
		}
		ok, err := credit(tx, payee, amount)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindTransferFailed, "payout account %s cannot receive funds", payee)
		}
		ride.Status = models.StatusFinalized
		return ev.emit(models.RideEvent{Kind: models.EventRideFinalized, RideID: ride.ID, Identity: payee, Amount: amount})
	})
}

// CancelRide is the rider's cancellation. A FUNDED ride is refunded in
// the same transaction when AllowFundedCancel is set.
func (l *Ledger) CancelRide(ctx context.Context, caller string, id uint64) (models.Ride, error) {
	return l.transition(ctx, caller, id, ActionCancel, func(tx *gorm.DB, ride *models.Ride, ev *events) error {
		from := ride.Status
		switch from {
		case models.StatusRequested, models.StatusAccepted:
		case models.StatusFunded:
			if !l.opts.AllowFundedCancel {
				return newError(KindInvalidState, "ride %d is FUNDED and funded cancellation is disabled", ride.ID)
			}
		default:
			return newError(KindInvalidState, "ride %d is %s and cannot be cancelled", ride.ID, from)
		}
		if caller != ride.Rider {
			return newError(KindUnauthorized, "only the rider can cancel ride %d", ride.ID)
		}

		if err := moveStatus(tx, ride.ID, from, models.StatusCancelled, map[string]any{"cancelled_by": models.CancelledByRider}); err != nil {
			return err
		}
		var refund uint64
		if from == models.StatusFunded {
			amount, err := releaseEscrow(tx, ride.ID)
			if err != nil {
				return err
			}
			ok, err := credit(tx, ride.Rider, amount)
			if err != nil {
				return err
			}
			if !ok {
				return newError(KindTransferFailed, "refund account %s cannot receive funds", ride.Rider)
			}
			refund = amount
		}
		ride.Status = models.StatusCancelled
		ride.CancelledBy = models.CancelledByRider
		return ev.emit(models.RideEvent{Kind: models.EventRideCancelled, RideID: ride.ID, Identity: caller, Amount: refund})
	})
}

// WithdrawAcceptance lets the assigned driver back out of an ACCEPTED
// ride. Rides never go back to REQUESTED, so this cancels the ride.
func (l *Ledger) WithdrawAcceptance(ctx context.Context, caller string, id uint64) (models.Ride, error) {
	return l.transition(ctx, caller, id, ActionWithdraw, func(tx *gorm.DB, ride *models.Ride, ev *events) error {
		if ride.Status != models.StatusAccepted {
			return newError(KindInvalidState, "ride %d is %s, not ACCEPTED", ride.ID, ride.Status)
		}
		if caller != ride.Driver {
			return newError(KindUnauthorized, "only the assigned driver can withdraw from ride %d", ride.ID)
		}
		if err := moveStatus(tx, ride.ID, models.StatusAccepted, models.StatusCancelled, map[string]any{"cancelled_by": models.CancelledByDriver}); err != nil {
			return err
		}
		ride.Status = models.StatusCancelled
		ride.CancelledBy = models.CancelledByDriver
		return ev.emit(models.RideEvent{Kind: models.EventRideCancelled, RideID: ride.ID, Identity: caller})
	})
}

// transition loads the ride, rejects anything against a terminal ride,
// and runs apply in the same transaction. Each apply checks the status
// before the caller, so a wrong-state request is InvalidState whoever
// sends it.
func (l *Ledger) transition(ctx context.Context, caller string, id uint64, action Action, apply func(tx *gorm.DB, ride *models.Ride, ev *events) error) (models.Ride, error) {
	entry := l.log.WithFields(logrus.Fields{"ride_id": id, "identity": caller, "action": action.String()})
	if caller == "" {
		return models.Ride{}, newError(KindUnauthorized, "anonymous caller")
	}

	var ride models.Ride
	err := l.transact(ctx, func(tx *gorm.DB, ev *events) error {
		var err error
		ride, err = loadRide(tx, id)
		if err != nil {
			return err
		}
		if ride.Status.Terminal() {
			return newError(KindInvalidState, "ride %d is %s", ride.ID, ride.Status)
		}
		return apply(tx, &ride, ev)
	})
	if err != nil {
		if kind := KindOf(err); kind != "" {
			entry.WithField("kind", kind).Info(err.Error())
		} else {
			entry.WithError(err).Error("ride transition failed")
		}
		return models.Ride{}, err
	}

	entry.WithField("status", ride.Status.String()).Info("ride transition applied")
	return ride, nil
}

// releaseEscrow zeroes the ride's escrow and takes the same amount out
// of custody, keeping custody equal to the sum of escrows.
func releaseEscrow(tx *gorm.DB, rideID uint64) (uint64, error) {
	var escrow models.Escrow
	if err := tx.First(&escrow, "ride_id = ?", rideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("ride %d has no escrow", rideID)
		}
		return 0, fmt.Errorf("load escrow for ride %d: %w", rideID, err)
	}
	if escrow.Amount == 0 {
		return 0, fmt.Errorf("escrow for ride %d is already empty", rideID)
	}
	res := tx.Model(&models.Escrow{}).
		Where("ride_id = ? AND amount = ?", rideID, escrow.Amount).
		Update("amount", 0)
	if res.Error != nil {
		return 0, fmt.Errorf("release escrow for ride %d: %w", rideID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, newError(KindInvalidState, "escrow for ride %d changed concurrently", rideID)
	}
	ok, err := debit(tx, models.CustodyIdentity, escrow.Amount)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("custody balance is below escrow for ride %d", rideID)
	}
	return escrow.Amount, nil
}
