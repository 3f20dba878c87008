package ledger

import (
	"context"
	"strings"

	"ride_ledger/internal/models"
)

// Action is the closed set of transitions a caller can request against
// an existing ride.
type Action uint8

const (
	ActionAccept Action = iota + 1
	ActionFund
	ActionComplete
	ActionConfirm
	ActionCancel
	ActionWithdraw
)

func (a Action) String() string {
	switch a {
	case ActionAccept:
		return "acceptRide"
	case ActionFund:
		return "fundRide"
	case ActionComplete:
		return "completeRide"
	case ActionConfirm:
		return "confirmArrival"
	case ActionCancel:
		return "cancelRide"
	case ActionWithdraw:
		return "withdrawAcceptance"
	}
	return "unknown"
}

// ParseAction accepts both the contract method names (acceptRide,
// confirmArrival, ...) and the short forms (accept, confirm, ...).
func ParseAction(name string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "acceptride", "accept":
		return ActionAccept, nil
	case "fundride", "fund":
		return ActionFund, nil
	case "completeride", "complete":
		return ActionComplete, nil
	case "confirmarrival", "confirm", "finalize":
		return ActionConfirm, nil
	case "cancelride", "cancel":
		return ActionCancel, nil
	case "withdrawacceptance", "withdraw":
		return ActionWithdraw, nil
	}
	return 0, newError(KindInvalidArgument, "unknown action %q", name)
}

// Command is one transition request. Value is the attached amount and
// only matters for ActionFund.
type Command struct {
	Action Action
	RideID uint64
	Value  uint64
}

// Apply dispatches cmd to the matching transition.
func (l *Ledger) Apply(ctx context.Context, caller string, cmd Command) (models.Ride, error) {
	if cmd.Action != ActionFund && cmd.Value != 0 {
		return models.Ride{}, newError(KindInvalidArgument, "%s does not take a value", cmd.Action)
	}
	switch cmd.Action {
	case ActionAccept:
		return l.AcceptRide(ctx, caller, cmd.RideID)
	case ActionFund:
		return l.FundRide(ctx, caller, cmd.RideID, cmd.Value)
	case ActionComplete:
		return l.CompleteRide(ctx, caller, cmd.RideID)
	case ActionConfirm:
		return l.ConfirmArrival(ctx, caller, cmd.RideID)
	case ActionCancel:
		return l.CancelRide(ctx, caller, cmd.RideID)
	case ActionWithdraw:
		return l.WithdrawAcceptance(ctx, caller, cmd.RideID)
	}
	return models.Ride{}, newError(KindInvalidArgument, "unknown action %d", cmd.Action)
}
