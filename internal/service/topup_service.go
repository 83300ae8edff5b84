package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"gorm.io/datatypes"

	apperrors "cryptotopup/internal/errors"
	"cryptotopup/internal/gateway"
	"cryptotopup/internal/model"
	"cryptotopup/internal/repository"
)

const (
	defaultDescription   = "Balance top-up"
	defaultLockTTL       = 30 * time.Second
	defaultLockWait      = 5 * time.Second
	lockRetryInterval    = 50 * time.Millisecond
	finalizeLockKeyStart = "lock:finalize:"
)

// InvoiceGateway is the part of the gateway client the engine depends on.
type InvoiceGateway interface {
	IsConfigured() bool
	CreateInvoice(ctx context.Context, req gateway.InvoiceRequest) (*gateway.Invoice, error)
	GetInvoiceStatus(ctx context.Context, invoiceID, externalID string) (*gateway.Invoice, error)
}

// Locker hands out advisory locks. acquired is false only while another
// holder owns the key.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool)
}

// TopupConfig holds the business settings of the top-up flow.
type TopupConfig struct {
	MinAmountMinor int64
	MaxAmountMinor int64
	Currency       string
	DisplayName    string
	WebhookBaseURL string
	WebhookPath    string
	SuccessURL     string
	FailURL        string
	// PaidStatuses are gateway statuses that confirm a payment. Compared
	// case-insensitively after trimming.
	PaidStatuses []string
	LockTTL      time.Duration
	LockWait     time.Duration
}

// TopupResult is returned to the user after an invoice was created.
type TopupResult struct {
	PaymentID  uint   `json:"payment_id"`
	OrderID    string `json:"order_id"`
	InvoiceID  string `json:"invoice_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	PaymentURL string `json:"payment_url"`
	Status     string `json:"status"`
}

// CallbackResult reports what a gateway callback did.
type CallbackResult struct {
	Payment     *model.CryptoPayment
	Finalized   bool
	AlreadyPaid bool
}

// StatusResult is the outcome of a status poll. Remote is nil when the
// gateway was not asked or did not answer.
type StatusResult struct {
	Payment   *model.CryptoPayment
	Remote    *gateway.Invoice
	Finalized bool
}

// FinalizeResult reports the financial commit of a payment. Followups never
// affect success.
type FinalizeResult struct {
	Payment          *model.CryptoPayment
	Transaction      *model.Transaction
	AlreadyFinalized bool
	Followups        []FollowupOutcome
}

// SyncReport summarizes a batch poll of open payments.
type SyncReport struct {
	Checked   int
	Finalized int
	Failed    int
}

// TopupService drives a top-up from invoice creation to the balance credit.
type TopupService interface {
	CreateTopup(ctx context.Context, userID uint, amountMinor int64, description string) (*TopupResult, error)
	GetPayment(ctx context.Context, paymentID uint) (*model.CryptoPayment, error)
	HandleCallback(ctx context.Context, payload map[string]interface{}) (*CallbackResult, error)
	CheckStatus(ctx context.Context, paymentID uint) (*StatusResult, error)
	Finalize(ctx context.Context, payment *model.CryptoPayment, payload map[string]interface{}) (*FinalizeResult, error)
	SyncOpen(ctx context.Context, since time.Time, limit int) (*SyncReport, error)
}

type topupService struct {
	repos      repository.Repositories
	tx         repository.TxManager
	gateway    InvoiceGateway
	dispatcher *Dispatcher
	events     EventLogger
	locker     Locker
	cfg        TopupConfig
	paid       map[string]struct{}
}

// NewTopupService wires the engine. locker may be nil, which disables the
// advisory lock.
func NewTopupService(
	repos repository.Repositories,
	tx repository.TxManager,
	gw InvoiceGateway,
	dispatcher *Dispatcher,
	events EventLogger,
	locker Locker,
	cfg TopupConfig,
) TopupService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = defaultLockWait
	}
	paid := make(map[string]struct{}, len(cfg.PaidStatuses))
	for _, status := range cfg.PaidStatuses {
		if status = gateway.NormalizeStatus(status); status != "" {
			paid[status] = struct{}{}
		}
	}
	return &topupService{
		repos:      repos,
		tx:         tx,
		gateway:    gw,
		dispatcher: dispatcher,
		events:     events,
		locker:     locker,
		cfg:        cfg,
		paid:       paid,
	}
}

func (s *topupService) isPaidStatus(status string) bool {
	_, ok := s.paid[gateway.NormalizeStatus(status)]
	return ok
}

func (s *topupService) record(ctx context.Context, event model.PaymentEvent) {
	if s.events != nil {
		s.events.Record(ctx, event)
	}
}

func newOrderID(userID uint) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("shk_%d_%s", userID, suffix)
}

func (s *topupService) callbackURL() string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.WebhookBaseURL), "/")
	if base == "" {
		return ""
	}
	path := s.cfg.WebhookPath
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// CreateTopup validates the amount, creates a gateway invoice and stores the
// payment. Nothing is stored when the gateway call fails.
func (s *topupService) CreateTopup(ctx context.Context, userID uint, amountMinor int64, description string) (*TopupResult, error) {
	if amountMinor <= 0 {
		return nil, &apperrors.ValidationError{Field: "amount_minor", Reason: "must be positive", Err: apperrors.ErrInvalidAmount}
	}
	if amountMinor < s.cfg.MinAmountMinor || amountMinor > s.cfg.MaxAmountMinor {
		return nil, &apperrors.ValidationError{
			Field:  "amount_minor",
			Reason: fmt.Sprintf("must be between %d and %d", s.cfg.MinAmountMinor, s.cfg.MaxAmountMinor),
			Err:    apperrors.ErrAmountOutOfRange,
		}
	}
	if s.gateway == nil || !s.gateway.IsConfigured() {
		return nil, apperrors.ErrNotConfigured
	}
	if _, err := s.repos.Users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = defaultDescription
	}
	orderID := newOrderID(userID)

	invoice, err := s.gateway.CreateInvoice(ctx, gateway.InvoiceRequest{
		AmountMinor: amountMinor,
		OrderID:     orderID,
		Description: description,
		CallbackURL: s.callbackURL(),
		SuccessURL:  s.cfg.SuccessURL,
		FailURL:     s.cfg.FailURL,
	})
	if err == nil && invoice.PaymentURL == "" {
		err = &gateway.GatewayError{Op: "create_invoice", Err: errors.New("response has no payment url")}
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to create shkeeper invoice", "order_id", orderID, "user_id", userID, "error", err)
		s.record(ctx, model.PaymentEvent{OrderID: orderID, Event: model.PaymentEventCreateFailed, ErrorMessage: err.Error()})
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	payment := &model.CryptoPayment{
		UserID:        userID,
		OrderID:       orderID,
		InvoiceID:     optional(invoice.InvoiceID),
		ExternalID:    optional(invoice.ExternalID),
		AmountMinor:   amountMinor,
		Currency:      s.cfg.Currency,
		AmountCrypto:  optional(invoice.AmountCrypto),
		Crypto:        optional(invoice.Crypto),
		DisplayAmount: optional(invoice.DisplayAmount),
		PaymentURL:    optional(invoice.PaymentURL),
		SuccessURL:    optional(s.cfg.SuccessURL),
		FailURL:       optional(s.cfg.FailURL),
		Description:   optional(description),
		Metadata:      datatypes.JSONMap{"create_response": invoice.Raw},
		ExpiresAt:     invoice.ExpiresAt,
	}
	if err := s.repos.Payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("store payment: %w", err)
	}

	if invoice.Status != "" && invoice.Status != payment.Status {
		status := invoice.Status
		updated, err := s.repos.Payments.Update(ctx, payment, repository.PaymentPatch{Status: &status})
		if err != nil {
			return nil, fmt.Errorf("store payment status: %w", err)
		}
		payment = updated
	}

	slog.InfoContext(ctx, "shkeeper payment created", "order_id", orderID, "user_id", userID, "amount_minor", amountMinor)
	s.record(ctx, paymentEvent(payment, model.PaymentEventCreated, nil))

	return &TopupResult{
		PaymentID:  payment.ID,
		OrderID:    payment.OrderID,
		InvoiceID:  value(payment.InvoiceID),
		ExternalID: value(payment.ExternalID),
		PaymentURL: value(payment.PaymentURL),
		Status:     payment.Status,
	}, nil
}

func (s *topupService) GetPayment(ctx context.Context, paymentID uint) (*model.CryptoPayment, error) {
	return s.repos.Payments.FindByID(ctx, paymentID)
}

// HandleCallback applies a gateway callback. A payload that matches no
// payment yields ErrPaymentNotFound.
func (s *topupService) HandleCallback(ctx context.Context, payload map[string]interface{}) (*CallbackResult, error) {
	invoice := gateway.ParseInvoice(payload)
	orderID := strings.TrimSpace(cast.ToString(payload["order_id"]))

	payment, err := s.lookup(ctx, invoice.ExternalID, orderID, invoice.InvoiceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPaymentNotFound) {
			slog.WarnContext(ctx, "shkeeper callback for unknown payment",
				"external_id", invoice.ExternalID, "order_id", orderID, "invoice_id", invoice.InvoiceID)
		}
		return nil, err
	}

	patch := s.mergePatch(payment, invoice)
	patch.Metadata = withMetadata(payment.Metadata, "last_callback", payload)
	patch.CallbackPayload = datatypes.JSONMap(payload)

	updated, err := s.repos.Payments.Update(ctx, payment, patch)
	if err != nil {
		return nil, fmt.Errorf("store callback: %w", err)
	}
	s.record(ctx, paymentEvent(updated, model.PaymentEventCallback, nil))

	if updated.IsPaid {
		slog.InfoContext(ctx, "shkeeper callback for already paid payment", "order_id", updated.OrderID)
		return &CallbackResult{Payment: updated, AlreadyPaid: true}, nil
	}
	if !s.isPaidStatus(invoice.Status) {
		return &CallbackResult{Payment: updated}, nil
	}

	result, err := s.Finalize(ctx, updated, payload)
	if err != nil {
		return nil, err
	}
	return &CallbackResult{
		Payment:     result.Payment,
		Finalized:   !result.AlreadyFinalized,
		AlreadyPaid: result.AlreadyFinalized,
	}, nil
}

// lookup resolves a payment by external id, then order id, then invoice id.
// Empty keys are skipped.
func (s *topupService) lookup(ctx context.Context, externalID, orderID, invoiceID string) (*model.CryptoPayment, error) {
	attempts := []struct {
		key  string
		find func(context.Context, string) (*model.CryptoPayment, error)
	}{
		{externalID, s.repos.Payments.FindByExternalID},
		{externalID, s.repos.Payments.FindByOrderID},
		{orderID, s.repos.Payments.FindByOrderID},
		{invoiceID, s.repos.Payments.FindByInvoiceID},
	}
	for _, a := range attempts {
		if a.key == "" {
			continue
		}
		payment, err := a.find(ctx, a.key)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, apperrors.ErrPaymentNotFound) {
			return nil, err
		}
	}
	return nil, apperrors.ErrPaymentNotFound
}

// mergePatch builds the sparse update for gateway reported fields. A paid
// payment keeps its status; only the metadata trail changes.
func (s *topupService) mergePatch(payment *model.CryptoPayment, invoice *gateway.Invoice) repository.PaymentPatch {
	var patch repository.PaymentPatch
	if payment.IsPaid {
		return patch
	}
	if invoice.Status != "" {
		patch.Status = &invoice.Status
	}
	if invoice.InvoiceID != "" && value(payment.InvoiceID) == "" {
		patch.InvoiceID = &invoice.InvoiceID
	}
	if invoice.ExternalID != "" {
		patch.ExternalID = &invoice.ExternalID
	}
	if invoice.AmountCrypto != "" {
		patch.AmountCrypto = &invoice.AmountCrypto
	}
	if invoice.Crypto != "" {
		patch.Crypto = &invoice.Crypto
	}
	if invoice.DisplayAmount != "" {
		patch.DisplayAmount = &invoice.DisplayAmount
	}
	return patch
}

// CheckStatus polls the gateway for a payment. Gateway failures are logged
// and the stored payment is returned unchanged.
func (s *topupService) CheckStatus(ctx context.Context, paymentID uint) (*StatusResult, error) {
	payment, err := s.repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil || !s.gateway.IsConfigured() {
		return &StatusResult{Payment: payment}, nil
	}

	externalID := value(payment.ExternalID)
	if externalID == "" {
		externalID = payment.OrderID
	}
	remote, err := s.gateway.GetInvoiceStatus(ctx, value(payment.InvoiceID), externalID)
	if err != nil {
		slog.WarnContext(ctx, "shkeeper status poll failed", "order_id", payment.OrderID, "error", err)
		s.record(ctx, paymentEvent(payment, model.PaymentEventPollFailed, err))
		return &StatusResult{Payment: payment}, nil
	}

	patch := s.mergePatch(payment, remote)
	patch.Metadata = withMetadata(payment.Metadata, "last_status_response", remote.Raw)
	updated, err := s.repos.Payments.Update(ctx, payment, patch)
	if err != nil {
		return nil, fmt.Errorf("store status: %w", err)
	}
	s.record(ctx, paymentEvent(updated, model.PaymentEventPoll, nil))

	result := &StatusResult{Payment: updated, Remote: remote}
	if updated.IsPaid || !s.isPaidStatus(remote.Status) {
		return result, nil
	}

	finalized, err := s.Finalize(ctx, updated, remote.Raw)
	if err != nil {
		return nil, err
	}
	result.Payment = finalized.Payment
	result.Finalized = !finalized.AlreadyFinalized
	return result, nil
}

// Finalize commits a confirmed payment exactly once: the ledger transaction
// and the payment link are written in one database transaction guarded by a
// compare-and-set on transaction_id. Follow-ups run after the commit.
func (s *topupService) Finalize(ctx context.Context, payment *model.CryptoPayment, payload map[string]interface{}) (*FinalizeResult, error) {
	if payment.IsFinalized() {
		return &FinalizeResult{Payment: payment, AlreadyFinalized: true}, nil
	}

	release := s.acquireFinalizeLock(ctx, payment.OrderID)
	defer release()

	externalRef := gateway.ParseInvoice(payload).InvoiceID
	if externalRef == "" {
		externalRef = payment.OrderID
	}

	var (
		ledger  *model.Transaction
		already bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		locked, err := repos.Payments.FindByIDForUpdate(ctx, payment.ID)
		if err != nil {
			return err
		}
		if locked.IsFinalized() {
			already = true
			return nil
		}

		now := time.Now().UTC()
		ledger = &model.Transaction{
			UserID:        locked.UserID,
			Type:          model.TransactionTypeDeposit,
			AmountMinor:   locked.AmountMinor,
			Description:   fmt.Sprintf("Top-up via %s (%s)", s.cfg.DisplayName, locked.OrderID),
			PaymentMethod: model.PaymentMethodShkeeper,
			ExternalID:    externalRef,
			IsCompleted:   true,
			CompletedAt:   &now,
		}
		if err := repos.Transactions.Create(ctx, ledger); err != nil {
			return fmt.Errorf("create ledger transaction: %w", err)
		}

		var stored datatypes.JSONMap
		if payload != nil {
			stored = datatypes.JSONMap(payload)
		}
		return repos.Payments.LinkTransaction(ctx, locked.ID, ledger.ID, now, stored)
	})
	if errors.Is(err, apperrors.ErrAlreadyFinalized) {
		already, ledger, err = true, nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to finalize shkeeper payment", "order_id", payment.OrderID, "error", err)
		return nil, fmt.Errorf("finalize payment: %w", err)
	}

	current, err := s.repos.Payments.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if already {
		slog.InfoContext(ctx, "shkeeper payment already finalized", "order_id", payment.OrderID)
		return &FinalizeResult{Payment: current, AlreadyFinalized: true}, nil
	}

	slog.InfoContext(ctx, "shkeeper payment finalized",
		"order_id", current.OrderID, "user_id", current.UserID, "transaction_id", ledger.ID)
	s.record(ctx, paymentEvent(current, model.PaymentEventFinalized, nil))

	outcomes := s.dispatcher.Dispatch(context.WithoutCancel(ctx), &FinalizedTopup{Payment: current, Transaction: ledger})
	return &FinalizeResult{Payment: current, Transaction: ledger, Followups: outcomes}, nil
}

// acquireFinalizeLock waits for the per-order advisory lock. When the wait
// runs out the caller proceeds anyway; the database compare-and-set still
// prevents a second commit.
func (s *topupService) acquireFinalizeLock(ctx context.Context, orderID string) func() {
	if s.locker == nil {
		return func() {}
	}
	key := finalizeLockKeyStart + orderID
	deadline := time.Now().Add(s.cfg.LockWait)
	for {
		release, acquired := s.locker.Lock(ctx, key, s.cfg.LockTTL)
		if acquired {
			return release
		}
		if time.Now().After(deadline) {
			slog.WarnContext(ctx, "finalize lock wait timed out", "order_id", orderID)
			return func() {}
		}
		select {
		case <-ctx.Done():
			return func() {}
		case <-time.After(lockRetryInterval):
		}
	}
}

// SyncOpen polls every open payment created since the given time.
func (s *topupService) SyncOpen(ctx context.Context, since time.Time, limit int) (*SyncReport, error) {
	payments, err := s.repos.Payments.ListOpen(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	for _, payment := range payments {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		result, err := s.CheckStatus(ctx, payment.ID)
		if err != nil {
			report.Failed++
			slog.ErrorContext(ctx, "sync: status check failed", "order_id", payment.OrderID, "error", err)
			continue
		}
		if result.Remote == nil {
			report.Failed++
		}
		if result.Finalized {
			report.Finalized++
		}
	}
	return report, nil
}

func withMetadata(existing datatypes.JSONMap, key string, v interface{}) datatypes.JSONMap {
	merged := make(datatypes.JSONMap, len(existing)+1)
	for k, val := range existing {
		merged[k] = val
	}
	merged[key] = v
	return merged
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
