package httporacle

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const (
	requestPath    = "request"
	defaultRetries = 3
)

// oracleClient forwards randomness requests to a remote oracle service, which
// delivers fulfillments back to the callback url of the request.
type oracleClient struct {
	url        string
	address    string
	maxRetries uint64
	client     *http.Client
}

type randomnessRequest struct {
	Seed        string `json:"seed"`
	Fee         uint64 `json:"fee"`
	CallbackURL string `json:"callback_url"`
}

type randomnessResponse struct {
	RequestId string `json:"request_id"`
}

func NewOracle(
	oracleURL, address string, maxRetries uint64, timeout time.Duration,
) (ports.RandomnessOracle, error) {
	if _, err := url.ParseRequestURI(oracleURL); err != nil {
		return nil, fmt.Errorf("invalid oracle url: %s", err)
	}
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("invalid oracle address: %w", err)
	}
	if maxRetries == 0 {
		maxRetries = defaultRetries
	}
	return &oracleClient{
		url:        oracleURL,
		address:    addr,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (c *oracleClient) Address() string {
	return c.address
}

func (c *oracleClient) Request(ctx context.Context, req ports.RandomnessRequest) (string, error) {
	if len(req.CallbackURL) <= 0 {
		return "", fmt.Errorf("remote oracle requires a callback url")
	}

	endpoint, err := url.JoinPath(c.url, requestPath)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(randomnessRequest{
		Seed:        hex.EncodeToString(req.Seed),
		Fee:         req.Fee,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		return "", err
	}

	var requestId string
	send := func() error {
		id, err := c.send(ctx, endpoint, body)
		if err != nil {
			return err
		}
		requestId = id
		return nil
	}
	notify := func(err error, next time.Duration) {
		log.WithError(err).Warnf("oracle: request failed, retrying in %s", next)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx,
	)
	if err := backoff.RetryNotify(send, b, notify); err != nil {
		return "", err
	}
	return requestId, nil
}

func (c *oracleClient) Close() {
	c.client.CloseIdleConnections()
}

func (c *oracleClient) send(ctx context.Context, endpoint string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		content, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf(
			"oracle request failed: %s (%s)", resp.Status, strings.TrimSpace(string(content)),
		)
		// client errors won't change on retry
		if resp.StatusCode < http.StatusInternalServerError {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	var response randomnessResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", backoff.Permanent(fmt.Errorf("invalid oracle response: %s", err))
	}
	if len(response.RequestId) <= 0 {
		return "", backoff.Permanent(fmt.Errorf("oracle response is missing request id"))
	}
	return response.RequestId, nil
}
