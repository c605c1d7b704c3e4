// Package client implements the ledger attestor against an attestation node's
// HTTP API. The node fronts the registry contract; this client only ever sees
// digests and confirmation flags.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"certledger/internal/ledger"
	"certledger/pkg/platform/circuit"
)

// Client talks to an attestation node over HTTP. All failures degrade to
// (false, err); there are no retries - sustained node unavailability must
// surface as an absent ledger signal, not a hung caller.
type Client struct {
	baseURL         string
	contractAddress string
	timeout         time.Duration
	httpClient      *http.Client
	breaker         *circuit.Breaker
	logger          *slog.Logger
}

var _ ledger.Attestor = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithBreaker sets a custom circuit breaker (for tuning thresholds and
// cooldown).
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

// New creates an attestation node client. The timeout bounds a single store
// attempt including transaction confirmation.
func New(baseURL, contractAddress string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:         baseURL,
		contractAddress: contractAddress,
		timeout:         timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: circuit.New("ledger"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type attestRequest struct {
	Digest string `json:"digest"`
}

type attestResponse struct {
	Digest    string `json:"digest"`
	Confirmed bool   `json:"confirmed"`
}

type verifyResponse struct {
	Digest  string `json:"digest"`
	Present bool   `json:"present"`
}

type statusResponse struct {
	Connected bool `json:"connected"`
}

// Store submits the digest to the registry contract and waits for
// confirmation. True only when the node reports a confirmed transaction.
func (c *Client) Store(ctx context.Context, digest string) (bool, error) {
	if !c.breaker.Allow() {
		return false, fmt.Errorf("ledger circuit open")
	}

	body, err := json.Marshal(attestRequest{Digest: digest})
	if err != nil {
		return false, fmt.Errorf("marshal attest request: %w", err)
	}

	url := fmt.Sprintf("%s/contracts/%s/attestations", c.baseURL, c.contractAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build attest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var res attestResponse
	if err := c.do(req, http.StatusCreated, &res); err != nil {
		return false, err
	}
	return res.Confirmed, nil
}

// Verify asks the node whether the digest is present on the ledger. Absence
// is a clean (false, nil); only transport or node errors return an error.
func (c *Client) Verify(ctx context.Context, digest string) (bool, error) {
	if !c.breaker.Allow() {
		return false, fmt.Errorf("ledger circuit open")
	}

	url := fmt.Sprintf("%s/contracts/%s/attestations/%s", c.baseURL, c.contractAddress, digest)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build verify request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return false, fmt.Errorf("ledger verify: %w", err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		var res verifyResponse
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			c.recordFailure()
			return false, fmt.Errorf("decode verify response: %w", err)
		}
		c.recordSuccess()
		return res.Present, nil
	case http.StatusNotFound:
		c.recordSuccess()
		return false, nil
	default:
		c.recordFailure()
		return false, fmt.Errorf("ledger verify: unexpected status %d", resp.StatusCode)
	}
}

// Status reports node connectivity and contract readiness for diagnostics.
func (c *Client) Status(ctx context.Context) ledger.Status {
	status := ledger.Status{
		NodeURL:         c.baseURL,
		ContractAddress: c.contractAddress,
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return status
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return status
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return status
	}
	var res statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return status
	}
	status.Connected = res.Connected
	status.ContractReady = res.Connected && c.contractAddress != ""
	return status
}

func (c *Client) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("ledger request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != wantStatus {
		c.recordFailure()
		return fmt.Errorf("ledger request: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.recordFailure()
		return fmt.Errorf("decode ledger response: %w", err)
	}
	c.recordSuccess()
	return nil
}

func (c *Client) recordFailure() {
	if opened := c.breaker.RecordFailure(); opened && c.logger != nil {
		c.logger.Warn("ledger circuit opened", "node_url", c.baseURL)
	}
}

func (c *Client) recordSuccess() {
	if closed := c.breaker.RecordSuccess(); closed && c.logger != nil {
		c.logger.Info("ledger circuit closed", "node_url", c.baseURL)
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
