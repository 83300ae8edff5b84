// Package report renders payment exports.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"cryptotopup/internal/model"
)

const sheetName = "Payments"

var header = []interface{}{
	"ID", "Order ID", "Invoice ID", "User ID", "Amount", "Currency",
	"Crypto amount", "Crypto", "Status", "Paid", "Transaction ID", "Created at", "Paid at",
}

// WritePayments writes payments as an xlsx workbook to w.
func WritePayments(w io.Writer, payments []model.CryptoPayment) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, p := range payments {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			p.ID,
			p.OrderID,
			deref(p.InvoiceID),
			p.UserID,
			decimal.NewFromInt(p.AmountMinor).Shift(-2).InexactFloat64(),
			p.Currency,
			deref(p.AmountCrypto),
			deref(p.Crypto),
			p.Status,
			p.IsPaid,
			transactionID(p.TransactionID),
			p.CreatedAt.UTC().Format(time.RFC3339),
			formatTime(p.PaidAt),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func transactionID(id *uint) interface{} {
	if id == nil {
		return ""
	}
	return *id
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
