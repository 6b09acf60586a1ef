package models

import "errors"

var (
	// ErrInvalidInput covers user-correctable form errors. Nothing has happened yet.
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrInvalidAmount is returned when an amount cannot be expressed in nanotons.
	ErrInvalidAmount = errors.New("invalid amount")

	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrMemoTooLarge means the invoice memo does not fit in the transaction comment.
	ErrMemoTooLarge = errors.New("memo too large")

	ErrTransactionRejected = errors.New("transaction rejected in wallet")
	ErrTransactionFailed   = errors.New("transaction failed")

	// ErrStorageWriteFailed is reported after the wallet already sent the
	// transaction. The on-chain action is not reversible from here.
	ErrStorageWriteFailed = errors.New("storage write failed")

	// ErrStorageReadCorrupt marks malformed persisted data. It is logged and the
	// list is treated as empty, never returned to callers.
	ErrStorageReadCorrupt = errors.New("stored invoice data is corrupt")

	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrNothingToExport    = errors.New("no invoices to export")
	ErrCreationInProgress = errors.New("invoice creation already in progress")
)
