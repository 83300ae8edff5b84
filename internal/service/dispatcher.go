package service

import (
	"context"
	"fmt"
	"log/slog"

	"cryptotopup/internal/model"
)

// FinalizedTopup is the state handed from one follow-up to the next after a
// payment's financial commit. Earlier steps fill fields that later ones read.
type FinalizedTopup struct {
	Payment     *model.CryptoPayment
	Transaction *model.Transaction

	User          *model.User
	BalanceBefore int64
	BalanceAfter  int64
	Credited      bool
	FirstTopup    bool
	Referral      *ReferralReward
}

// Followup is one best-effort side effect of a finalized top-up.
type Followup struct {
	Name string
	Run  func(ctx context.Context, topup *FinalizedTopup) error
}

// FollowupOutcome reports how a follow-up ended. Err is nil on success.
type FollowupOutcome struct {
	Name string
	Err  error
}

// Dispatcher runs follow-ups in order. Each one is isolated: a failure or a
// panic is logged and audited, and the remaining follow-ups still run.
type Dispatcher struct {
	followups []Followup
	events    EventLogger
}

// NewDispatcher creates a dispatcher for the given follow-ups.
func NewDispatcher(events EventLogger, followups ...Followup) *Dispatcher {
	return &Dispatcher{followups: followups, events: events}
}

// Dispatch never fails; outcomes are returned for observability only.
func (d *Dispatcher) Dispatch(ctx context.Context, topup *FinalizedTopup) []FollowupOutcome {
	if d == nil {
		return nil
	}
	outcomes := make([]FollowupOutcome, 0, len(d.followups))
	for _, f := range d.followups {
		err := d.run(ctx, f, topup)
		if err != nil {
			slog.ErrorContext(ctx, "top-up follow-up failed",
				"followup", f.Name,
				"order_id", topup.Payment.OrderID,
				"user_id", topup.Payment.UserID,
				"error", err)
			if d.events != nil {
				event := paymentEvent(topup.Payment, model.PaymentEventFollowupFailed, fmt.Errorf("%s: %w", f.Name, err))
				d.events.Record(ctx, event)
			}
		}
		outcomes = append(outcomes, FollowupOutcome{Name: f.Name, Err: err})
	}
	return outcomes
}

func (d *Dispatcher) run(ctx context.Context, f Followup, topup *FinalizedTopup) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f.Run(ctx, topup)
}
