package ledger_test

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"ride_ledger/internal/ledger"
	"ride_ledger/internal/models"
	"ride_ledger/internal/testutil"
)

type fixture struct {
	t   *testing.T
	ctx context.Context
	l   *ledger.Ledger
	db  *gorm.DB
	rec *testutil.Recorder
}

func newFixture(t *testing.T, opts ledger.Options) *fixture {
	t.Helper()
	rec := &testutil.Recorder{}
	db := testutil.OpenDB(t)
	return &fixture{
		t:   t,
		ctx: context.Background(),
		l:   ledger.New(db, opts, rec),
		db:  db,
		rec: rec,
	}
}

func (f *fixture) account(name string, balance uint64) string {
	f.t.Helper()
	acc, err := f.l.OpenAccount(f.ctx, name, name+"@example.com", "hash")
	if err != nil {
		f.t.Fatalf("OpenAccount(%s): %v", name, err)
	}
	if balance > 0 {
		if _, err := f.l.Deposit(f.ctx, acc.Identity, balance); err != nil {
			f.t.Fatalf("Deposit(%s): %v", name, err)
		}
	}
	return acc.Identity
}

func (f *fixture) driver(name string) string {
	f.t.Helper()
	id := f.account(name, 0)
	_, err := f.l.RegisterDriver(f.ctx, id, ledger.DriverProfile{
		Name:         name,
		LicensePlate: "B 1234 XY",
		VehicleType:  "sedan",
		RatePerKm:    50,
	})
	if err != nil {
		f.t.Fatalf("RegisterDriver(%s): %v", name, err)
	}
	return id
}

// ride creates a ride and drives it forward to status along the happy
// path (CANCELLED goes through a rider cancel from REQUESTED).
func (f *fixture) ride(rider, driver string, price uint64, status models.RideStatus) uint64 {
	f.t.Helper()
	r, err := f.l.RequestRide(f.ctx, rider, "A", "B", price)
	if err != nil {
		f.t.Fatalf("RequestRide: %v", err)
	}
	id := r.ID
	steps := []struct {
		reached models.RideStatus
		run     func() error
	}{
		{models.StatusAccepted, func() error { _, err := f.l.AcceptRide(f.ctx, driver, id); return err }},
		{models.StatusFunded, func() error { _, err := f.l.FundRide(f.ctx, rider, id, price); return err }},
		{models.StatusCompleted, func() error { _, err := f.l.CompleteRide(f.ctx, driver, id); return err }},
		{models.StatusFinalized, func() error { _, err := f.l.ConfirmArrival(f.ctx, rider, id); return err }},
	}
	if status == models.StatusCancelled {
		if _, err := f.l.CancelRide(f.ctx, rider, id); err != nil {
			f.t.Fatalf("CancelRide(%d): %v", id, err)
		}
		return id
	}
	for _, step := range steps {
		if status < step.reached {
			break
		}
		if err := step.run(); err != nil {
			f.t.Fatalf("advance ride %d to %s: %v", id, step.reached, err)
		}
	}
	return id
}

func (f *fixture) status(id uint64) models.RideStatus {
	f.t.Helper()
	r, err := f.l.Ride(f.ctx, id)
	if err != nil {
		f.t.Fatalf("Ride(%d): %v", id, err)
	}
	return r.Status
}

func (f *fixture) balance(identity string) uint64 {
	f.t.Helper()
	b, err := f.l.Balance(f.ctx, identity)
	if err != nil {
		f.t.Fatalf("Balance(%s): %v", identity, err)
	}
	return b
}

func (f *fixture) escrow(id uint64) uint64 {
	f.t.Helper()
	e, err := f.l.EscrowBalance(f.ctx, id)
	if err != nil {
		f.t.Fatalf("EscrowBalance(%d): %v", id, err)
	}
	return e
}

func (f *fixture) requireConsistent() {
	f.t.Helper()
	audit, err := f.l.Audit(f.ctx)
	if err != nil {
		f.t.Fatalf("Audit: %v", err)
	}
	if !audit.Consistent() {
		f.t.Fatalf("custody %d != escrow total %d", audit.Custody, audit.EscrowTotal)
	}
}

func requireKind(t *testing.T, err error, want ledger.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := ledger.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %v", want, err)
	}
}
