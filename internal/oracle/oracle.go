// Package oracle talks to the external prediction service. The oracle is
// advisory only: it predicts the next draw's direction from recent
// outcomes, it never determines the draw itself.
package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/betbot/signalbot/internal/ledger"
)

// Predictor produces a HIGH/LOW prediction from recent drawn values,
// most recent first. May fail or time out; callers map failures to a
// default prediction, never into the ledger.
type Predictor interface {
	Predict(ctx context.Context, recent []int) (ledger.Direction, error)
}

// ErrUnavailable covers transport failures, timeouts and non-2xx
// responses from the prediction service.
var ErrUnavailable = errors.New("oracle: prediction service unavailable")

type Client struct {
	client *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.HasSuffix(baseURL, "/") {
		baseURL = baseURL[:len(baseURL)-1]
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{client: c}
}

type predictRequest struct {
	Outcomes []int `json:"outcomes"`
}

type predictResponse struct {
	Direction string `json:"direction"`
}

func (c *Client) Predict(ctx context.Context, recent []int) (ledger.Direction, error) {
	var out predictResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(predictRequest{Outcomes: recent}).
		SetResult(&out).
		Post("/predict")
	if err != nil {
		return "", errors.Wrap(ErrUnavailable, err.Error())
	}
	if resp.IsError() {
		return "", errors.Wrapf(ErrUnavailable, "status %d", resp.StatusCode())
	}
	switch strings.ToUpper(strings.TrimSpace(out.Direction)) {
	case string(ledger.High):
		return ledger.High, nil
	case string(ledger.Low):
		return ledger.Low, nil
	default:
		return "", errors.Wrapf(ErrUnavailable, "bad direction %q", out.Direction)
	}
}

// Fallback is the deterministic default prediction used when the service
// is unavailable: follow the majority of the recent draws, ties and empty
// history lean HIGH.
func Fallback(recent []int) ledger.Direction {
	high := 0
	for _, v := range recent {
		if ledger.Classify(v) == ledger.High {
			high++
		}
	}
	if high*2 >= len(recent) {
		return ledger.High
	}
	return ledger.Low
}
