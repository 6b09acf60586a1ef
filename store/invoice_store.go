package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/ton-paylink/models"
	"github.com/yourusername/ton-paylink/utils"
)

// InvoiceStore keeps one JSON array of invoices per wallet address.
//
// Every mutation is load, modify, rewrite of the whole list. Two writers
// working on the same wallet at the same time can lose an update; the last
// write wins.
type InvoiceStore struct {
	kv      KV
	prefix  string
	testnet bool
	log     *logrus.Entry
}

func NewInvoiceStore(kv KV, prefix string, testnet bool, log *logrus.Entry) *InvoiceStore {
	return &InvoiceStore{
		kv:      kv,
		prefix:  prefix,
		testnet: testnet,
		log:     log.WithField("component", "invoice_store"),
	}
}

// Key returns the storage key for a wallet. The address is canonicalised first
// so every encoding of the same account maps to the same key.
func (s *InvoiceStore) Key(walletAddress string) (string, error) {
	canonical, err := utils.CanonicalAddress(walletAddress, s.testnet)
	if err != nil {
		return "", err
	}
	return s.prefix + canonical, nil
}

// Load returns the wallet's invoices, newest first. Missing or unreadable data
// yields an empty list.
func (s *InvoiceStore) Load(ctx context.Context, walletAddress string) ([]models.Invoice, error) {
	key, err := s.Key(walletAddress)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, key)
}

func (s *InvoiceStore) load(ctx context.Context, key string) ([]models.Invoice, error) {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return []models.Invoice{}, nil
	}

	var invoices []models.Invoice
	if err := json.Unmarshal([]byte(raw), &invoices); err != nil {
		s.log.WithError(fmt.Errorf("%w: %v", models.ErrStorageReadCorrupt, err)).
			WithField("key", key).
			Warn("ignoring unreadable invoice list")
		return []models.Invoice{}, nil
	}
	if invoices == nil {
		return []models.Invoice{}, nil
	}

	slices.SortStableFunc(invoices, func(a, b models.Invoice) int {
		switch {
		case a.Timestamp > b.Timestamp:
			return -1
		case a.Timestamp < b.Timestamp:
			return 1
		}
		return 0
	})
	return invoices, nil
}

// Get returns a single invoice of the wallet.
func (s *InvoiceStore) Get(ctx context.Context, walletAddress, invoiceID string) (*models.Invoice, error) {
	invoices, err := s.Load(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		if invoices[i].ID == invoiceID {
			return &invoices[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrInvoiceNotFound, invoiceID)
}

// Append prepends invoice to the wallet's list and rewrites it.
func (s *InvoiceStore) Append(ctx context.Context, walletAddress string, invoice models.Invoice) error {
	key, err := s.Key(walletAddress)
	if err != nil {
		return err
	}
	existing, err := s.load(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrStorageWriteFailed, err)
	}

	invoices := append([]models.Invoice{invoice}, existing...)
	return s.write(ctx, key, invoices)
}

// Remove drops one invoice. When the list ends up empty the key is deleted
// rather than left holding an empty array.
func (s *InvoiceStore) Remove(ctx context.Context, walletAddress, invoiceID string) error {
	key, err := s.Key(walletAddress)
	if err != nil {
		return err
	}
	existing, err := s.load(ctx, key)
	if err != nil {
		return err
	}

	remaining := slices.DeleteFunc(slices.Clone(existing), func(inv models.Invoice) bool {
		return inv.ID == invoiceID
	})
	if len(remaining) == len(existing) {
		return fmt.Errorf("%w: %s", models.ErrInvoiceNotFound, invoiceID)
	}

	if len(remaining) == 0 {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("%w: %w", models.ErrStorageWriteFailed, err)
		}
		return nil
	}
	return s.write(ctx, key, remaining)
}

func (s *InvoiceStore) write(ctx context.Context, key string, invoices []models.Invoice) error {
	data, err := json.Marshal(invoices)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrStorageWriteFailed, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("%w: %w", models.ErrStorageWriteFailed, err)
	}
	return nil
}
