// Package source fetches historical price series from remote venues: a
// CLOB price-history API for prediction-market instruments and Binance
// klines for crypto reference series.
package source

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/probelab/backcast/internal/domain"
	"github.com/probelab/backcast/pkg/retrier"
)

// DefaultCLOBBaseURL is the public Polymarket CLOB endpoint.
const DefaultCLOBBaseURL = "https://clob.polymarket.com"

// CLOBClient downloads per-instrument price histories from a CLOB
// prices-history API.
type CLOBClient struct {
	baseURL string
	client  *fasthttp.Client
	retry   *retrier.Retrier
	logger  *zap.Logger
}

// NewCLOBClient creates a client against baseURL (DefaultCLOBBaseURL when
// empty).
func NewCLOBClient(baseURL string, logger *zap.Logger) *CLOBClient {
	if baseURL == "" {
		baseURL = DefaultCLOBBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLOBClient{
		baseURL: baseURL,
		client:  &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second},
		retry: retrier.New(
			retrier.WithInitialInterval(500*time.Millisecond),
			retrier.WithMaxRetries(4),
		),
		logger: logger,
	}
}

// FetchHistory downloads the full price series for one instrument.
// fidelityMinutes selects the sampling resolution of the remote series.
func (c *CLOBClient) FetchHistory(ctx context.Context, instrumentID, label string, fidelityMinutes int) (*domain.InstrumentHistory, error) {
	if instrumentID == "" {
		return nil, errors.New("instrument id is required")
	}
	if fidelityMinutes <= 0 {
		fidelityMinutes = 60
	}

	body, err := retrier.DoWithData(c.retry, ctx, func(ctx context.Context) ([]byte, error) {
		return c.get(instrumentID, fidelityMinutes)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch history for %s", instrumentID)
	}

	points := gjson.GetBytes(body, "history")
	if !points.IsArray() {
		return nil, errors.Errorf("unexpected history response for %s", instrumentID)
	}

	h := &domain.InstrumentHistory{ID: instrumentID, Label: label}
	for _, v := range points.Array() {
		ts := v.Get("t").Int()
		price := v.Get("p").Float()
		if ts == 0 {
			continue
		}
		h.Points = append(h.Points, domain.PricePoint{
			Time:  time.Unix(ts, 0).UTC(),
			Price: price,
		})
	}
	if len(h.Points) == 0 {
		return nil, errors.Wrapf(domain.ErrNoData, "instrument %s", instrumentID)
	}

	c.logger.Debug("history fetched",
		zap.String("instrument", instrumentID),
		zap.Int("points", len(h.Points)))
	return h, nil
}

func (c *CLOBClient) get(instrumentID string, fidelityMinutes int) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/prices-history")
	req.Header.SetMethod(fasthttp.MethodGet)
	args := req.URI().QueryArgs()
	args.Set("market", instrumentID)
	args.Set("interval", "max")
	args.Set("fidelity", strconv.Itoa(fidelityMinutes))

	if err := c.client.Do(req, resp); err != nil {
		return nil, errors.Wrap(err, "request prices-history")
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, errors.Errorf("prices-history returned status %d", resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
