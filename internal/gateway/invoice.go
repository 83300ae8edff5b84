package gateway

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Invoice is a gateway invoice or callback body reduced to the fields the
// reconciliation flow reads. Empty strings mean "not reported".
type Invoice struct {
	InvoiceID     string
	ExternalID    string
	PaymentURL    string
	Status        string
	AmountCrypto  string
	Crypto        string
	DisplayAmount string
	ExpiresAt     *time.Time
	Raw           map[string]interface{}
}

// ParseInvoice normalizes a decoded gateway object. The gateway is not
// consistent about key names so each field accepts several aliases.
func ParseInvoice(raw map[string]interface{}) *Invoice {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return &Invoice{
		InvoiceID:     firstString(raw, "id", "invoice_id"),
		ExternalID:    firstString(raw, "external_id", "order_id"),
		PaymentURL:    firstString(raw, "url", "payment_url", "link", "checkout_url"),
		Status:        NormalizeStatus(firstString(raw, "status", "payment_status")),
		AmountCrypto:  firstString(raw, "amount_crypto", "crypto_amount"),
		Crypto:        firstString(raw, "cryptocurrency", "crypto"),
		DisplayAmount: firstString(raw, "display_amount", "amount"),
		ExpiresAt:     ParseTime(firstString(raw, "expires_at", "expire_at", "expires")),
		Raw:           raw,
	}
}

// NormalizeStatus trims and lower-cases a gateway status.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if _, nested := v.(map[string]interface{}); nested {
			continue
		}
		if s := strings.TrimSpace(cast.ToString(v)); s != "" {
			return s
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 timestamp. A trailing "Z" means UTC and values
// without an offset are taken as UTC. Unparseable input yields nil.
func ParseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if strings.HasSuffix(value, "z") {
		value = strings.TrimSuffix(value, "z") + "Z"
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
