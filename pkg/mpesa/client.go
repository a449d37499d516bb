package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/pkg/config"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
)

const (
	oauthPath                  = "oauth/v1/generate?grant_type=client_credentials"
	stkPushPath                = "mpesa/stkpush/v1/processrequest"
	timestampLayout            = "20060102150405"
	transactionType            = "CustomerPayBillOnline"
	requestBodyReadLimit int64 = 1024
)

var errCredentialsRequired = errors.New("mpesa consumer key and secret are required")

// Client wraps the Daraja OAuth and STK push APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	callbackURL    string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	now func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a Daraja client from configuration.
func NewClient(cfg config.MpesaConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.ConsumerKey) == "" || strings.TrimSpace(cfg.ConsumerSecret) == "" {
		return nil, errCredentialsRequired
	}
	if strings.TrimSpace(cfg.ShortCode) == "" {
		return nil, errors.New("mpesa short code is required")
	}
	if strings.TrimSpace(cfg.Passkey) == "" {
		return nil, errors.New("mpesa passkey is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		consumerKey:    strings.TrimSpace(cfg.ConsumerKey),
		consumerSecret: strings.TrimSpace(cfg.ConsumerSecret),
		shortCode:      strings.TrimSpace(cfg.ShortCode),
		passkey:        strings.TrimSpace(cfg.Passkey),
		callbackURL:    strings.TrimSpace(cfg.CallbackURL),
		now:            time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// STKPushRequest describes an STK push initiation.
type STKPushRequest struct {
	Phone            string
	Amount           decimal.Decimal
	AccountReference string
	Description      string
}

// STKPushResponse holds the gateway acknowledgement for an STK push.
type STKPushResponse struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseDesc      string `json:"ResponseDescription"`
	CustomerMessage   string `json:"CustomerMessage"`
}

// STKPush asks Daraja to prompt the customer's phone for payment. Amounts are
// sent as whole shillings, rounded up so the prompt never under-collects.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mpesa client not configured")
	}
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid phone number")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stk push amount must be positive")
	}

	token, err := c.accessTokenLocked(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passkey + timestamp))

	body := map[string]any{
		"BusinessShortCode": c.shortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   transactionType,
		"Amount":            req.Amount.Ceil().IntPart(),
		"PartyA":            phone,
		"PartyB":            c.shortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       c.callbackURL,
		"AccountReference":  req.AccountReference,
		"TransactionDesc":   req.Description,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal stk push request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(stkPushPath), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build stk push request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute stk push request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "stk push request failed")
	}

	var pushResp STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode stk push response")
	}
	if pushResp.ResponseCode != "0" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("stk push rejected: %s", pushResp.ResponseDesc))
	}

	return &pushResp, nil
}

func (c *Client) accessTokenLocked(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(oauthPath), nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build oauth request")
	}
	httpReq.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute oauth request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "oauth request failed")
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode oauth response")
	}
	if tokenResp.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "oauth response missing access token")
	}

	// Daraja tokens last an hour; refresh a minute early.
	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = c.now().Add(59 * time.Minute)
	return c.accessToken, nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

// NormalizePhone converts Kenyan phone formats (07xx, +2547xx, 2547xx) into
// the 2547XXXXXXXX form Daraja expects.
func NormalizePhone(phone string) (string, error) {
	cleaned := strings.TrimSpace(phone)
	cleaned = strings.TrimPrefix(cleaned, "+")
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	switch {
	case strings.HasPrefix(cleaned, "254") && len(cleaned) == 12:
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		cleaned = "254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "7") && len(cleaned) == 9:
		cleaned = "254" + cleaned
	case strings.HasPrefix(cleaned, "1") && len(cleaned) == 9:
		cleaned = "254" + cleaned
	default:
		return "", fmt.Errorf("unrecognized phone format %q", phone)
	}

	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("phone contains non-digit characters")
		}
	}
	return cleaned, nil
}
