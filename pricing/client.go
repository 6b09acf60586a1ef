package pricing

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/yourusername/ton-paylink/models"
)

// maxBodySize caps how much of a price response is read.
const maxBodySize = 1 << 20

type PriceClientInterface interface {
	FiatPerToken(ctx context.Context) (decimal.Decimal, error)
}

// Client fetches the fiat price of one TON. Every call hits the endpoint,
// nothing is cached and nothing is retried.
type Client struct {
	httpClient *http.Client
	url        string
	field      string
	log        *logrus.Entry
}

// NewClient builds a client for url. field is a gjson path to the numeric price
// in the response, e.g. "price" or "the-open-network.usd".
func NewClient(url, field string, timeout time.Duration, log *logrus.Entry) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		field:      field,
		log:        log.WithField("component", "pricing"),
	}
}

func (c *Client) FiatPerToken(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", models.ErrPriceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("price endpoint unreachable")
		return decimal.Zero, fmt.Errorf("%w: %v", models.ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithField("status", resp.StatusCode).Warn("price endpoint returned an error status")
		return decimal.Zero, fmt.Errorf("%w: endpoint returned status %d", models.ErrPriceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", models.ErrPriceUnavailable, err)
	}

	price, err := parsePrice(body, c.field)
	if err != nil {
		c.log.WithError(err).Warn("price payload rejected")
		return decimal.Zero, err
	}
	return price, nil
}

func parsePrice(body []byte, field string) (decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return decimal.Zero, fmt.Errorf("%w: response is not JSON", models.ErrPriceUnavailable)
	}

	result := gjson.GetBytes(body, field)
	var price decimal.Decimal
	switch result.Type {
	case gjson.Number:
		f := result.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, fmt.Errorf("%w: %q is not finite", models.ErrPriceUnavailable, field)
		}
		// Raw keeps the exact digits the endpoint sent
		p, err := decimal.NewFromString(result.Raw)
		if err != nil {
			p = decimal.NewFromFloat(f)
		}
		price = p
	case gjson.String:
		p, err := decimal.NewFromString(result.Str)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q is not numeric", models.ErrPriceUnavailable, field)
		}
		price = p
	default:
		return decimal.Zero, fmt.Errorf("%w: %q missing from response", models.ErrPriceUnavailable, field)
	}

	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q is not positive", models.ErrPriceUnavailable, field)
	}
	return price, nil
}
