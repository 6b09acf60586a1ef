package invoices

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ton-paylink/models"
	"github.com/yourusername/ton-paylink/store"
)

func seededDashboard(t *testing.T, invoices ...models.Invoice) (*Dashboard, models.ConnectedWallet, *store.MemoryKV) {
	kv := store.NewMemoryKV()
	s := store.NewInvoiceStore(kv, "invoices_", true, testLogger())
	w := testWallet(t)
	for _, inv := range invoices {
		require.NoError(t, s.Append(context.Background(), w.Address, inv))
	}
	return NewDashboard(s, testLinks(), true, testLogger()), w, kv
}

func invoice(id string, ts int64, usd, ton string) models.Invoice {
	inv := models.Invoice{
		ID:          id,
		AmountFiat:  decimal.RequireFromString(usd),
		Description: "Website update, phase " + id,
		Status:      models.InvoiceStatusPending,
		Timestamp:   ts,
	}
	if ton != "" {
		inv.AmountToken = decimal.RequireFromString(ton)
	}
	return inv
}

func TestDashboardListAndDelete(t *testing.T) {
	d, w, kv := seededDashboard(t, invoice("inv_1", 100, "10", "1.5"), invoice("inv_2", 200, "20", "3"))
	ctx := context.Background()

	list, err := d.List(ctx, w)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "inv_2", list[0].ID)

	notes := &Notifications{}
	require.NoError(t, d.Delete(ctx, w, "inv_2", notes))
	assert.Equal(t, LevelSuccess, notes.Items()[0].Level)

	notes = &Notifications{}
	err = d.Delete(ctx, w, "inv_2", notes)
	assert.ErrorIs(t, err, models.ErrInvoiceNotFound)
	assert.Equal(t, LevelError, notes.Items()[0].Level)

	require.NoError(t, d.Delete(ctx, w, "inv_1", nil))
	list, err = d.List(ctx, w)
	require.NoError(t, err)
	assert.Empty(t, list)

	key := "invoices_" + w.Address
	_, found, _ := kv.Get(ctx, key)
	assert.False(t, found)
}

func TestDashboardRequiresWallet(t *testing.T) {
	d, _, _ := seededDashboard(t)
	_, err := d.List(context.Background(), models.ConnectedWallet{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestPaymentDetails(t *testing.T) {
	d, w, _ := seededDashboard(t,
		invoice("inv_1", 100, "150", "21.428571429"),
		invoice("inv_old", 50, "70", ""),
	)
	ctx := context.Background()

	details, err := d.PaymentDetails(ctx, w, "inv_1")
	require.NoError(t, err)
	assert.Equal(t, "ton://transfer/"+w.Address+"?amount=21428571429&text=inv_1", details.PaymentLink)
	assert.False(t, details.Estimated)
	assert.True(t, bytes.HasPrefix(details.QRCode, []byte("\x89PNG")))

	// records without a token amount fall back to the configured rate
	details, err = d.PaymentDetails(ctx, w, "inv_old")
	require.NoError(t, err)
	assert.True(t, details.Estimated)
	assert.Equal(t, "10", details.AmountToken.String())
	assert.Contains(t, details.PaymentLink, "amount=10000000000&")

	_, err = d.PaymentDetails(ctx, w, "inv_missing")
	assert.ErrorIs(t, err, models.ErrInvoiceNotFound)
}

func TestExportCSV(t *testing.T) {
	d, w, _ := seededDashboard(t,
		invoice("inv_1", 1_700_000_000_000, "150", "21.428571429"),
		invoice("inv_2", 1_700_000_100_000, "20.5", ""),
	)
	var out bytes.Buffer
	notes := &Notifications{}

	require.NoError(t, d.ExportCSV(context.Background(), w, &out, notes))

	records, err := csv.NewReader(strings.NewReader(out.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"ID", "Date", "Time", "Description", "Amount_USD", "Amount_TON", "Status"}, records[0])
	assert.Equal(t, []string{"inv_2", "2023-11-14", "22:15:00", "Website update, phase inv_2", "20.50", "", "Pending"}, records[1])
	assert.Equal(t, []string{"inv_1", "2023-11-14", "22:13:20", "Website update, phase inv_1", "150.00", "21.428571429", "Pending"}, records[2])
	assert.Equal(t, LevelSuccess, notes.Items()[0].Level)
}

func TestExportCSVEmpty(t *testing.T) {
	d, w, _ := seededDashboard(t)
	var out bytes.Buffer
	notes := &Notifications{}

	err := d.ExportCSV(context.Background(), w, &out, notes)
	assert.ErrorIs(t, err, models.ErrNothingToExport)
	assert.Zero(t, out.Len())
	assert.Equal(t, []Notification{{Level: LevelError, Message: "No invoices to export."}}, notes.Items())
}

func TestExportPDF(t *testing.T) {
	d, w, _ := seededDashboard(t, invoice("inv_1", 1_700_000_000_000, "150", "21.428571429"))
	var out bytes.Buffer

	require.NoError(t, d.ExportPDF(context.Background(), w, "inv_1", &out))
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF-")))

	out.Reset()
	err := d.ExportPDF(context.Background(), w, "inv_9", &out)
	assert.ErrorIs(t, err, models.ErrInvoiceNotFound)
	assert.Zero(t, out.Len())
}
