package invoices

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yourusername/ton-paylink/models"
	"github.com/yourusername/ton-paylink/utils"
)

// LinkBuilder derives the payment link of an invoice. The workflow and every
// view go through it, so one invoice always yields the same link.
type LinkBuilder struct {
	Scheme             string
	ReferenceMaxLength int
	// FallbackRate (fiat per TON) estimates a token amount for records that
	// were stored without one.
	FallbackRate decimal.Decimal
}

// TokenAmount returns the stored token amount, or an estimate when the record
// has none. estimated reports which one it was.
func (l LinkBuilder) TokenAmount(inv models.Invoice) (amount decimal.Decimal, estimated bool, err error) {
	if inv.AmountToken.IsPositive() {
		return inv.AmountToken, false, nil
	}
	if !l.FallbackRate.IsPositive() || !inv.AmountFiat.IsPositive() {
		return decimal.Zero, false, fmt.Errorf("%w: invoice %s has no token amount", models.ErrInvalidAmount, inv.ID)
	}
	return inv.AmountFiat.DivRound(l.FallbackRate, utils.NanoDecimals), true, nil
}

// InvoiceLink builds the deep link paying inv to recipient.
func (l LinkBuilder) InvoiceLink(recipient string, inv models.Invoice) (string, error) {
	amount, _, err := l.TokenAmount(inv)
	if err != nil {
		return "", err
	}
	return utils.BuildPaymentLink(l.Scheme, recipient, amount, utils.TruncateReference(inv.ID, l.ReferenceMaxLength))
}
