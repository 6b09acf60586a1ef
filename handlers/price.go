package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/ton-paylink/pricing"
)

type PriceHandler struct {
	prices   pricing.PriceClientInterface
	currency string
	log      *logrus.Entry
}

func NewPriceHandler(prices pricing.PriceClientInterface, currency string, log *logrus.Entry) *PriceHandler {
	return &PriceHandler{prices: prices, currency: currency, log: log}
}

// GetPrice returns the live TON price in the configured fiat currency.
func (h *PriceHandler) GetPrice(c *gin.Context) {
	price, err := h.prices.FiatPerToken(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Warn("live price unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live price unavailable", "code": "PriceUnavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"price":    price,
		"currency": h.currency,
		"display":  displayPrice(price, h.currency),
	})
}

func displayPrice(price decimal.Decimal, currency string) string {
	if currency == "USD" {
		return fmt.Sprintf("1 TON = $%s USD", price.StringFixed(2))
	}
	return fmt.Sprintf("1 TON = %s %s", price.StringFixed(2), currency)
}
