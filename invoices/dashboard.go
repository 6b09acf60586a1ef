package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"github.com/yourusername/ton-paylink/models"
	"github.com/yourusername/ton-paylink/utils"
)

// qrSize is the edge length of generated QR codes in pixels.
const qrSize = 256

// Dashboard serves the invoice list and detail views of one wallet.
type Dashboard struct {
	store   InvoiceStore
	links   LinkBuilder
	testnet bool
	log     *logrus.Entry
}

func NewDashboard(store InvoiceStore, links LinkBuilder, testnet bool, log *logrus.Entry) *Dashboard {
	return &Dashboard{
		store:   store,
		links:   links,
		testnet: testnet,
		log:     log.WithField("component", "invoice_dashboard"),
	}
}

// canonical returns w with its address in the form the workflow links to.
func (d *Dashboard) canonical(w models.ConnectedWallet) (models.ConnectedWallet, error) {
	if !w.Connected() {
		return w, fmt.Errorf("%w: no wallet connected", models.ErrInvalidInput)
	}
	addr, err := utils.CanonicalAddress(w.Address, d.testnet)
	if err != nil {
		return w, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	return models.ConnectedWallet{Address: addr}, nil
}

type PaymentDetails struct {
	Invoice     models.Invoice  `json:"invoice"`
	AmountToken decimal.Decimal `json:"amount_ton"`
	Estimated   bool            `json:"estimated"` // fallback rate was used
	PaymentLink string          `json:"payment_link"`
	QRCode      []byte          `json:"qr_png"`
}

func (d *Dashboard) List(ctx context.Context, w models.ConnectedWallet) ([]models.Invoice, error) {
	w, err := d.canonical(w)
	if err != nil {
		return nil, err
	}
	return d.store.Load(ctx, w.Address)
}

func (d *Dashboard) Get(ctx context.Context, w models.ConnectedWallet, invoiceID string) (*models.Invoice, error) {
	w, err := d.canonical(w)
	if err != nil {
		return nil, err
	}
	return d.store.Get(ctx, w.Address, invoiceID)
}

func (d *Dashboard) Delete(ctx context.Context, w models.ConnectedWallet, invoiceID string, n Notifier) error {
	w, err := d.canonical(w)
	if err != nil {
		return err
	}
	if err := d.store.Remove(ctx, w.Address, invoiceID); err != nil {
		if errors.Is(err, models.ErrInvoiceNotFound) {
			notify(n, LevelError, "Invoice not found.")
		} else {
			d.log.WithError(err).WithField("invoice", invoiceID).Error("failed to delete invoice")
			notify(n, LevelError, "Failed to delete invoice.")
		}
		return err
	}
	notify(n, LevelSuccess, "Invoice deleted.")
	return nil
}

// PaymentDetails rebuilds the payment link of an invoice and renders it as a QR code.
func (d *Dashboard) PaymentDetails(ctx context.Context, w models.ConnectedWallet, invoiceID string) (*PaymentDetails, error) {
	w, err := d.canonical(w)
	if err != nil {
		return nil, err
	}
	inv, err := d.store.Get(ctx, w.Address, invoiceID)
	if err != nil {
		return nil, err
	}
	return d.paymentDetails(w, *inv)
}

func (d *Dashboard) paymentDetails(w models.ConnectedWallet, inv models.Invoice) (*PaymentDetails, error) {
	amount, estimated, err := d.links.TokenAmount(inv)
	if err != nil {
		return nil, err
	}
	link, err := d.links.InvoiceLink(w.Address, inv)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(link, qrcode.High, qrSize)
	if err != nil {
		return nil, fmt.Errorf("could not generate a QR code: %w", err)
	}

	return &PaymentDetails{
		Invoice:     inv,
		AmountToken: amount,
		Estimated:   estimated,
		PaymentLink: link,
		QRCode:      png,
	}, nil
}
