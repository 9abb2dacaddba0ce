// Package rates converts USD display amounts to CAD. Conversion is
// cosmetic: on any failure the caller gets a fixed approximate rate, never
// an error.
package rates

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/betbot/signalbot/pkg/cache"
	"github.com/betbot/signalbot/pkg/logger"
)

// FallbackRate is applied when the rate service is unreachable.
var FallbackRate = decimal.NewFromFloat(1.35)

const rateTTL = 5 * time.Minute

type Converter interface {
	USDToCAD(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
}

type Client struct {
	client *resty.Client
	rates  *cache.InMemoryCache[string, decimal.Decimal]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.HasSuffix(baseURL, "/") {
		baseURL = baseURL[:len(baseURL)-1]
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		rates:  cache.NewInMemoryCache[string, decimal.Decimal](rateTTL),
	}
}

type rateResponse struct {
	Rate float64 `json:"rate"`
}

// USDToCAD multiplies amount by the live USD/CAD rate, cached for a few
// minutes. Unavailable or nonsense rates degrade to FallbackRate.
func (c *Client) USDToCAD(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if rate, ok := c.rates.Get("usd-cad"); ok {
		return amount.Mul(rate), nil
	}

	var out rateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/rates/usd-cad")
	if err != nil || resp.IsError() || out.Rate <= 0 {
		logger.Warnf("[rates] usd-cad lookup failed, using fallback %s: err=%v", FallbackRate, err)
		return amount.Mul(FallbackRate), nil
	}

	rate := decimal.NewFromFloat(out.Rate)
	c.rates.Set("usd-cad", rate, rateTTL)
	return amount.Mul(rate), nil
}
