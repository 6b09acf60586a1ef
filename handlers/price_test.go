package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/ton-paylink/models"
)

func TestGetPrice(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		prices         *MockPriceClient
		currency       string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Live Price",
			prices:         priceOf("7"),
			currency:       "USD",
			expectedStatus: http.StatusOK,
			expectedBody:   "1 TON = $7.00 USD",
		},
		{
			name:           "Other Currency",
			prices:         priceOf("6.456"),
			currency:       "EUR",
			expectedStatus: http.StatusOK,
			expectedBody:   "1 TON = 6.46 EUR",
		},
		{
			name: "Unavailable",
			prices: &MockPriceClient{FiatPerTokenFunc: func(ctx context.Context) (decimal.Decimal, error) {
				return decimal.Zero, models.ErrPriceUnavailable
			}},
			currency:       "USD",
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "Live price unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/price", NewPriceHandler(tt.prices, tt.currency, testLogger()).GetPrice)

			w := doRequest(router, http.MethodGet, "/price", nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}
