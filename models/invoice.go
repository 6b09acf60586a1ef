package models

import (
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "Pending"
	InvoiceStatusPaid    InvoiceStatus = "Paid"
)

// Invoice is the record kept in a wallet's invoice list. The json keys match the
// layout the web client has always written, so older blobs keep loading.
type Invoice struct {
	ID              string          `json:"id"`
	AmountFiat      decimal.Decimal `json:"amount"`
	AmountToken     decimal.Decimal `json:"tonAmount"`
	Description     string          `json:"description"`
	Status          InvoiceStatus   `json:"status"`
	Timestamp       int64           `json:"timestamp"` // epoch milliseconds
	TransactionHash string          `json:"txHash,omitempty"`
}
