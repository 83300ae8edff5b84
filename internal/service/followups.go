package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"cryptotopup/internal/events"
	"cryptotopup/internal/notify"
	"cryptotopup/internal/repository"
)

// Follow-up names in execution order.
const (
	FollowupCreditBalance     = "credit_balance"
	FollowupFirstTopup        = "first_topup"
	FollowupReferralBonus     = "referral_bonus"
	FollowupAdminNotification = "admin_notification"
	FollowupUserNotification  = "user_notification"
	FollowupAutoPurchase      = "auto_purchase"
	FollowupPublishEvent      = "publish_event"
)

// FollowupDeps are the collaborators used by the default follow-ups.
type FollowupDeps struct {
	Users        repository.UserRepository
	UserService  UserService
	Referrals    ReferralService
	Notifier     notify.Notifier
	AutoPurchase AutoPurchaseTrigger
	Publisher    events.Publisher
	DisplayName  string
	Currency     string
}

// DefaultFollowups returns the standard follow-up chain for a finalized top-up.
func DefaultFollowups(deps FollowupDeps) []Followup {
	f := &followups{deps: deps}
	return []Followup{
		{Name: FollowupCreditBalance, Run: f.creditBalance},
		{Name: FollowupFirstTopup, Run: f.markFirstTopup},
		{Name: FollowupReferralBonus, Run: f.referralBonus},
		{Name: FollowupAdminNotification, Run: f.notifyAdmins},
		{Name: FollowupUserNotification, Run: f.notifyUser},
		{Name: FollowupAutoPurchase, Run: f.autoPurchase},
		{Name: FollowupPublishEvent, Run: f.publishEvent},
	}
}

type followups struct {
	deps FollowupDeps
}

func (f *followups) user(ctx context.Context, topup *FinalizedTopup) error {
	if topup.User != nil {
		return nil
	}
	user, err := f.deps.Users.FindByID(ctx, topup.Payment.UserID)
	if err != nil {
		return err
	}
	topup.User = user
	topup.BalanceBefore = user.BalanceMinor
	topup.BalanceAfter = user.BalanceMinor
	return nil
}

func (f *followups) creditBalance(ctx context.Context, topup *FinalizedTopup) error {
	if err := f.user(ctx, topup); err != nil {
		return err
	}
	amount := topup.Payment.AmountMinor
	if err := f.deps.Users.AddBalance(ctx, topup.User.ID, amount); err != nil {
		return err
	}
	topup.Credited = true
	topup.BalanceAfter = topup.BalanceBefore + amount
	topup.User.BalanceMinor = topup.BalanceAfter
	if f.deps.UserService != nil {
		f.deps.UserService.InvalidateUser(ctx, topup.User.ID)
	}
	return nil
}

func (f *followups) markFirstTopup(ctx context.Context, topup *FinalizedTopup) error {
	if err := f.user(ctx, topup); err != nil {
		return err
	}
	if topup.User.HasMadeFirstTopup {
		return nil
	}
	marked, err := f.deps.Users.MarkFirstTopup(ctx, topup.User.ID)
	if err != nil {
		return err
	}
	topup.FirstTopup = marked
	topup.User.HasMadeFirstTopup = true
	return nil
}

func (f *followups) referralBonus(ctx context.Context, topup *FinalizedTopup) error {
	if f.deps.Referrals == nil {
		return nil
	}
	if err := f.user(ctx, topup); err != nil {
		return err
	}
	reward, err := f.deps.Referrals.ProcessTopup(ctx, topup.User, topup.Payment.AmountMinor)
	if err != nil {
		return err
	}
	topup.Referral = reward
	if reward != nil && f.deps.UserService != nil {
		f.deps.UserService.InvalidateUser(ctx, reward.Referrer.ID)
	}
	return nil
}

func (f *followups) notifyAdmins(ctx context.Context, topup *FinalizedTopup) error {
	if f.deps.Notifier == nil {
		return nil
	}
	if err := f.user(ctx, topup); err != nil {
		return err
	}
	return f.deps.Notifier.NotifyAdmins(ctx, f.adminMessage(topup))
}

func (f *followups) notifyUser(ctx context.Context, topup *FinalizedTopup) error {
	if f.deps.Notifier == nil {
		return nil
	}
	if err := f.user(ctx, topup); err != nil {
		return err
	}
	return f.deps.Notifier.NotifyUser(ctx, topup.User.TelegramID, f.userMessage(topup))
}

func (f *followups) autoPurchase(ctx context.Context, topup *FinalizedTopup) error {
	if f.deps.AutoPurchase == nil {
		return nil
	}
	_, err := f.deps.AutoPurchase.Trigger(ctx, topup.Payment.UserID, topup.Payment.ID)
	return err
}

func (f *followups) publishEvent(ctx context.Context, topup *FinalizedTopup) error {
	if f.deps.Publisher == nil {
		return nil
	}
	data := map[string]interface{}{
		"payment_id":   topup.Payment.ID,
		"order_id":     topup.Payment.OrderID,
		"user_id":      topup.Payment.UserID,
		"amount_minor": topup.Payment.AmountMinor,
		"currency":     topup.Payment.Currency,
		"credited":     topup.Credited,
		"first_topup":  topup.FirstTopup,
	}
	if topup.Transaction != nil {
		data["transaction_id"] = topup.Transaction.ID
	}
	return f.deps.Publisher.Publish(ctx, events.TypeTopupFinalized, data)
}

func (f *followups) adminMessage(topup *FinalizedTopup) string {
	kind := "🔄 Top-up"
	if topup.FirstTopup {
		kind = "🆕 First top-up"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s via %s</b>\n\n", kind, html.EscapeString(f.deps.DisplayName))
	fmt.Fprintf(&b, "👤 User: %s (id %d)\n", userLabel(topup), topup.User.ID)
	fmt.Fprintf(&b, "💰 Amount: %s\n", f.money(topup.Payment.AmountMinor))
	fmt.Fprintf(&b, "💳 Balance: %s → %s\n", f.money(topup.BalanceBefore), f.money(topup.BalanceAfter))
	if !topup.Credited {
		b.WriteString("⚠️ Balance was not credited\n")
	}
	if topup.Transaction != nil {
		fmt.Fprintf(&b, "🆔 Transaction: %d\n", topup.Transaction.ID)
	}
	fmt.Fprintf(&b, "🧾 Order: <code>%s</code>\n", html.EscapeString(topup.Payment.OrderID))
	if topup.Referral != nil {
		fmt.Fprintf(&b, "🤝 Referrer: %s (+%s)\n",
			referrerLabel(topup.Referral), f.money(topup.Referral.AmountMinor))
	} else if topup.User.ReferredByID != nil {
		fmt.Fprintf(&b, "🤝 Referrer: id %d\n", *topup.User.ReferredByID)
	}
	return b.String()
}

func (f *followups) userMessage(topup *FinalizedTopup) string {
	var b strings.Builder
	b.WriteString("✅ <b>Top-up successful!</b>\n\n")
	fmt.Fprintf(&b, "💰 Amount: %s\n", f.money(topup.Payment.AmountMinor))
	fmt.Fprintf(&b, "💳 Method: %s\n", html.EscapeString(f.deps.DisplayName))
	if topup.Transaction != nil {
		fmt.Fprintf(&b, "🆔 Transaction: %d", topup.Transaction.ID)
	}
	return b.String()
}

func (f *followups) money(minor int64) string {
	return formatMoney(minor, f.deps.Currency)
}

func formatMoney(minor int64, currency string) string {
	amount := decimal.NewFromInt(minor).Shift(-2).StringFixed(2)
	if currency == "" {
		return amount
	}
	return amount + " " + html.EscapeString(currency)
}

func userLabel(topup *FinalizedTopup) string {
	if topup.User.Username != "" {
		return "@" + html.EscapeString(topup.User.Username)
	}
	return fmt.Sprintf("tg:%d", topup.User.TelegramID)
}

func referrerLabel(reward *ReferralReward) string {
	if reward.Referrer.Username != "" {
		return "@" + html.EscapeString(reward.Referrer.Username)
	}
	return fmt.Sprintf("id %d", reward.Referrer.ID)
}
