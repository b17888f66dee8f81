// Package tse provides a client for the exchange's TseClient data service
package tse

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/interfaces"
)

const (
	DefaultBaseURL    = "http://service.tsetmc.com/WebService/TseClient.asmx"
	DefaultListingURL = "http://www.tsetmc.com/Loader.aspx?ParTree=111C1213"
	DefaultTimeout    = 30 * time.Second
	DefaultRateLimit  = 4 // requests per second

	userAgent = "Mozilla/4.0 (compatible; MSIE 6.0; MS Web Services Client Protocol 2.0.50727.9151)"
)

// Client implements the TSEClient interface over the exchange's SOAP
// endpoint.
type Client struct {
	baseURL    string
	listingURL string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter

	retryCount int
	pause      time.Duration
	pauseMult  float64
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the SOAP endpoint URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithListingURL sets the public listing page URL used for group names
func WithListingURL(listingURL string) ClientOption {
	return func(c *Client) {
		c.listingURL = listingURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetry sets the transport retry policy. Each retry waits pause
// scaled by multiplier for every attempt already made.
func WithRetry(count int, pause time.Duration, multiplier float64) ClientOption {
	return func(c *Client) {
		c.retryCount = count
		c.pause = pause
		c.pauseMult = multiplier
	}
}

// NewClient creates a new exchange service client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		listingURL: DefaultListingURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
		retryCount: 3,
		pause:      100 * time.Millisecond,
		pauseMult:  2.5,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a service error
type APIError struct {
	StatusCode int
	Action     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("TSE service error: action %s returned status %d", e.Action, e.StatusCode)
}

// FetchInstruments retrieves catalog rows listed after sinceDate.
func (c *Client) FetchInstruments(ctx context.Context, sinceDate int) (string, error) {
	body := fmt.Sprintf(`<Instrument xmlns="http://tsetmc.com/"><DEven>%d</DEven></Instrument>`, sinceDate)
	return c.soapCall(ctx, "Instrument", body)
}

// FetchLastPossibleDeven retrieves the per-market freshness marker.
func (c *Client) FetchLastPossibleDeven(ctx context.Context) (string, error) {
	body := `<LastPossibleDeven xmlns="http://tsetmc.com/" />`
	return c.soapCall(ctx, "LastPossibleDeven", body)
}

// FetchClosingPrices retrieves daily bars for a batch request spec. The
// spec is length-prefixed, gzip-compressed and base64-encoded, as the
// service expects.
func (c *Client) FetchClosingPrices(ctx context.Context, requestSpec string) (string, error) {
	if requestSpec == "" {
		return "", nil
	}

	packed, err := packRequestSpec(requestSpec)
	if err != nil {
		return "", fmt.Errorf("failed to pack request spec: %w", err)
	}

	body := fmt.Sprintf(
		`<DecompressAndGetInsturmentClosingPrice xmlns="http://tsetmc.com/"><insCodes>%s</insCodes></DecompressAndGetInsturmentClosingPrice>`,
		packed)
	return c.soapCall(ctx, "DecompressAndGetInsturmentClosingPrice", body)
}

// soapCall executes one SOAP action with the transport retry policy and
// returns the text content of the action's result element. A response
// without the result element yields an empty payload.
func (c *Client) soapCall(ctx context.Context, action, body string) (string, error) {
	envelope := fmt.Sprintf(
		`<?xml version="1.0" encoding="utf-8"?><soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema"><soap:Body>%s</soap:Body></soap:Envelope>`,
		body)

	var lastErr error
	pause := c.pause
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(pause):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			pause = time.Duration(float64(pause) * c.pauseMult)
		}

		payload, err := c.post(ctx, action, envelope)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		c.logger.Warn().Str("action", action).Int("attempt", attempt+1).Err(err).Msg("TSE request failed")
	}
	return "", lastErr
}

func (c *Client) post(ctx context.Context, action, envelope string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(envelope))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf(`"http://tsetmc.com/%s"`, action))
	req.Header.Set("Connection", "close")

	c.logger.Debug().Str("action", action).Msg("TSE service request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Action: action}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return extractResult(raw, action+"Result")
}

// extractResult pulls the text of the named element out of the SOAP
// envelope. A missing element is an empty payload, not an error.
func extractResult(raw []byte, element string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("malformed envelope: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != element {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &start); err != nil {
			return "", fmt.Errorf("malformed result element: %w", err)
		}
		return text, nil
	}
}

// packRequestSpec encodes the batch request the way the service's .NET
// client does: a little-endian uint32 of the spec length, followed by
// the gzip-compressed spec, base64-encoded as a whole.
func packRequestSpec(spec string) (string, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(spec))); err != nil {
		return "", err
	}

	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(spec)); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Ensure Client implements TSEClient
var _ interfaces.TSEClient = (*Client)(nil)
