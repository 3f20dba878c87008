package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"ride_ledger/internal/ledger"
	"ride_ledger/internal/models"
)

var _ ledger.Notifier = (*Fanout)(nil)

// Fanout delivers every event to all sinks. One failing sink does not
// keep the event from the others.
type Fanout struct {
	sinks map[string]ledger.Notifier
	order []string
}

func NewFanout() *Fanout {
	return &Fanout{sinks: make(map[string]ledger.Notifier)}
}

// Add registers a sink under name, used only in logs.
func (f *Fanout) Add(name string, sink ledger.Notifier) {
	if _, ok := f.sinks[name]; !ok {
		f.order = append(f.order, name)
	}
	f.sinks[name] = sink
}

func (f *Fanout) Publish(ctx context.Context, ev models.RideEvent) error {
	var errs []error
	for _, name := range f.order {
		if err := f.sinks[name].Publish(ctx, ev); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"sink":  name,
				"event": ev.Kind,
				"seq":   ev.Seq,
			}).Warn("sink rejected event")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
