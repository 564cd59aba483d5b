package brokerage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Client talks to the brokerage backend over HTTP. It authenticates with a
// service credential distinct from the end user's token; both travel on
// every call. Transient failures (network errors, backend 5xx) are retried
// with capped exponential backoff before being reported as ErrUpstream;
// backend 4xx is never retried.
type Client struct {
	baseURL string
	key     string
	secret  string
	httpc   *http.Client
}

func NewClient(baseURL, key, secret string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		secret:  secret,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) CheckReadiness(ctx context.Context, userToken, accountID string) (Readiness, error) {
	var out Readiness
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+accountID+"/closure/readiness", userToken, nil, &out)
	return out, err
}

func (c *Client) Initiate(ctx context.Context, userToken, accountID string, req InitiateRequest) (InitiateResult, error) {
	var out InitiateResult
	err := c.do(ctx, http.MethodPost, "/v1/accounts/"+accountID+"/closure", userToken, req, &out)
	return out, err
}

func (c *Client) LiquidatePositions(ctx context.Context, userToken, accountID string) (LiquidateResult, error) {
	var out LiquidateResult
	err := c.do(ctx, http.MethodPost, "/v1/accounts/"+accountID+"/closure/liquidate", userToken, nil, &out)
	return out, err
}

func (c *Client) Resume(ctx context.Context, userToken, accountID string, req ResumeRequest) (ResumeResult, error) {
	var out ResumeResult
	err := c.do(ctx, http.MethodPost, "/v1/accounts/"+accountID+"/closure/resume", userToken, req, &out)
	return out, err
}

func (c *Client) CloseAccount(ctx context.Context, userToken, accountID string) (CloseResult, error) {
	var out CloseResult
	err := c.do(ctx, http.MethodPost, "/v1/accounts/"+accountID+"/closure/finalize", userToken, nil, &out)
	return out, err
}

func (c *Client) Progress(ctx context.Context, userToken, accountID string) (ProgressSignal, error) {
	var out ProgressSignal
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+accountID+"/closure/progress", userToken, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path, userToken string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	// One idempotency key per logical call, shared across retry attempts,
	// so the backend can deduplicate a re-sent mutation.
	idemKey := ""
	if method != http.MethodGet {
		idemKey = uuid.NewString()
	}

	op := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-Service-Key", c.key)
		req.Header.Set("X-Service-Secret", c.secret)
		if userToken != "" {
			req.Header.Set("X-User-Token", userToken)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idemKey != "" {
			req.Header.Set("X-Idempotency-Key", idemKey)
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(&StatusError{Code: resp.StatusCode, Message: errorMessage(raw)})
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode backend response: %w", err))
			}
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 3), ctx))
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return se
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
