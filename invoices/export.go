package invoices

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/yourusername/ton-paylink/models"
)

var csvHeader = []string{"ID", "Date", "Time", "Description", "Amount_USD", "Amount_TON", "Status"}

// ExportCSV writes the wallet's invoices as CSV. Nothing is written for an
// empty list; the call fails with models.ErrNothingToExport instead.
func (d *Dashboard) ExportCSV(ctx context.Context, w models.ConnectedWallet, out io.Writer, n Notifier) error {
	invoices, err := d.List(ctx, w)
	if err != nil {
		notify(n, LevelError, "Failed to load invoices.")
		return err
	}
	if len(invoices) == 0 {
		notify(n, LevelError, "No invoices to export.")
		return models.ErrNothingToExport
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, inv := range invoices {
		if err := cw.Write(csvRow(inv)); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}

	if _, err := buf.WriteTo(out); err != nil {
		return err
	}
	notify(n, LevelSuccess, fmt.Sprintf("Exported %d invoices.", len(invoices)))
	return nil
}

func csvRow(inv models.Invoice) []string {
	created := time.UnixMilli(inv.Timestamp).UTC()
	tokenAmount := ""
	if inv.AmountToken.IsPositive() {
		tokenAmount = inv.AmountToken.StringFixed(9)
	}
	return []string{
		inv.ID,
		created.Format("2006-01-02"),
		created.Format("15:04:05"),
		inv.Description,
		inv.AmountFiat.StringFixed(2),
		tokenAmount,
		string(inv.Status),
	}
}

// ExportPDF renders a one page invoice with its payment QR code and link.
func (d *Dashboard) ExportPDF(ctx context.Context, w models.ConnectedWallet, invoiceID string, out io.Writer) error {
	w, err := d.canonical(w)
	if err != nil {
		return err
	}
	details, err := d.PaymentDetails(ctx, w, invoiceID)
	if err != nil {
		return err
	}
	inv := details.Invoice
	created := time.UnixMilli(inv.Timestamp).UTC()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+inv.ID, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "TON PayLink Invoice", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	amountTON := details.AmountToken.StringFixed(4) + " TON"
	if details.Estimated {
		amountTON += " (estimated)"
	}
	rows := [][2]string{
		{"Invoice ID", inv.ID},
		{"Date", created.Format("2006-01-02 15:04:05") + " UTC"},
		{"Description", tr(inv.Description)},
		{"Amount", inv.AmountFiat.StringFixed(2) + " USD"},
		{"Amount in TON", amountTON},
		{"Status", string(inv.Status)},
		{"Pay to", w.Address},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	qrOpts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("payment-qr", qrOpts, bytes.NewReader(details.QRCode))
	top := pdf.GetY() + 8
	pdf.ImageOptions("payment-qr", 65, top, 80, 80, false, qrOpts, 0, details.PaymentLink)
	pdf.SetY(top + 86)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Scan with your TON wallet or open the link below.", "", 1, "C", false, 0, "")
	pdf.SetFont("Courier", "", 9)
	pdf.MultiCell(0, 5, details.PaymentLink, "", "C", false)

	if err := pdf.Output(out); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}
