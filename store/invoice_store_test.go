package store

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/yourusername/ton-paylink/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const walletAddress = "EQBx6tZZWa2Tbv6BvgcvegoOQxkRrVaBVwBOoW85nbP37_Go"

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	// every new connection to :memory: would see an empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.StorageEntry{}))
	return db
}

func newInvoice(id string, ts int64) models.Invoice {
	return models.Invoice{
		ID:          id,
		AmountFiat:  decimal.NewFromInt(150),
		AmountToken: decimal.RequireFromString("21.428571429"),
		Description: "Logo design",
		Status:      models.InvoiceStatusPending,
		Timestamp:   ts,
	}
}

func backends(t *testing.T) map[string]KV {
	return map[string]KV{
		"memory": NewMemoryKV(),
		"gorm":   NewGormKV(setupTestDB(t)),
	}
}

func TestInvoiceStoreNewestFirst(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewInvoiceStore(kv, "invoices_", true, testLogger())

			require.NoError(t, s.Append(ctx, walletAddress, newInvoice("inv_1", 100)))
			require.NoError(t, s.Append(ctx, walletAddress, newInvoice("inv_2", 200)))

			invoices, err := s.Load(ctx, walletAddress)
			require.NoError(t, err)
			require.Len(t, invoices, 2)
			assert.Equal(t, "inv_2", invoices[0].ID)
			assert.Equal(t, "inv_1", invoices[1].ID)
			assert.True(t, decimal.RequireFromString("21.428571429").Equal(invoices[0].AmountToken))
		})
	}
}

func TestInvoiceStoreSortsOnLoad(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewInvoiceStore(kv, "invoices_", true, testLogger())
	key, err := s.Key(walletAddress)
	require.NoError(t, err)

	// written oldest first, the way a foreign client might have left it
	data, _ := json.Marshal([]models.Invoice{newInvoice("inv_1", 100), newInvoice("inv_3", 300), newInvoice("inv_2", 200)})
	require.NoError(t, kv.Set(ctx, key, string(data)))

	invoices, err := s.Load(ctx, walletAddress)
	require.NoError(t, err)
	ids := []string{invoices[0].ID, invoices[1].ID, invoices[2].ID}
	assert.Equal(t, []string{"inv_3", "inv_2", "inv_1"}, ids)
}

func TestInvoiceStoreRemove(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewInvoiceStore(kv, "invoices_", true, testLogger())
			key, err := s.Key(walletAddress)
			require.NoError(t, err)

			require.NoError(t, s.Append(ctx, walletAddress, newInvoice("inv_1", 100)))
			require.NoError(t, s.Append(ctx, walletAddress, newInvoice("inv_2", 200)))

			require.NoError(t, s.Remove(ctx, walletAddress, "inv_2"))
			invoices, err := s.Load(ctx, walletAddress)
			require.NoError(t, err)
			require.Len(t, invoices, 1)
			assert.Equal(t, "inv_1", invoices[0].ID)

			err = s.Remove(ctx, walletAddress, "inv_2")
			assert.ErrorIs(t, err, models.ErrInvoiceNotFound)

			require.NoError(t, s.Remove(ctx, walletAddress, "inv_1"))
			_, found, err := kv.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, found, "an emptied list must remove the key")

			invoices, err = s.Load(ctx, walletAddress)
			require.NoError(t, err)
			assert.Empty(t, invoices)
		})
	}
}

func TestInvoiceStoreCorruptData(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "Not JSON", value: "{oops"},
		{name: "Object instead of array", value: `{"id":"inv_1"}`},
		{name: "String", value: `"invoices"`},
		{name: "Wrong element types", value: `[{"id":1,"timestamp":"yesterday"}]`},
		{name: "Null", value: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := NewMemoryKV()
			s := NewInvoiceStore(kv, "invoices_", true, testLogger())
			key, err := s.Key(walletAddress)
			require.NoError(t, err)
			require.NoError(t, kv.Set(ctx, key, tt.value))

			invoices, err := s.Load(ctx, walletAddress)
			assert.NoError(t, err)
			assert.NotNil(t, invoices)
			assert.Empty(t, invoices)
		})
	}
}

func TestInvoiceStoreMissingKey(t *testing.T) {
	s := NewInvoiceStore(NewMemoryKV(), "invoices_", true, testLogger())
	invoices, err := s.Load(context.Background(), walletAddress)
	assert.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestInvoiceStoreAddressEncodings(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore(NewMemoryKV(), "invoices_", true, testLogger())

	other := address.MustParseAddr(walletAddress)
	other.SetBounce(false)
	other.SetTestnetOnly(true)

	require.NoError(t, s.Append(ctx, walletAddress, newInvoice("inv_1", 100)))

	invoices, err := s.Load(ctx, other.String())
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "inv_1", invoices[0].ID)

	_, err = s.Load(ctx, "nonsense")
	assert.ErrorIs(t, err, models.ErrInvalidAddress)
}

func TestInvoiceStoreQuota(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	kv.MaxValueBytes = 10
	s := NewInvoiceStore(kv, "invoices_", true, testLogger())

	err := s.Append(ctx, walletAddress, newInvoice("inv_1", 100))
	assert.ErrorIs(t, err, models.ErrStorageWriteFailed)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestInvoiceStoreGet(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore(NewMemoryKV(), "invoices_", true, testLogger())
	require.NoError(t, s.Append(ctx, walletAddress, newInvoice("inv_1", 100)))

	inv, err := s.Get(ctx, walletAddress, "inv_1")
	require.NoError(t, err)
	assert.Equal(t, "Logo design", inv.Description)

	_, err = s.Get(ctx, walletAddress, "inv_9")
	assert.ErrorIs(t, err, models.ErrInvoiceNotFound)
}
