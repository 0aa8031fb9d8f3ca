// Package brokerlink pulls holdings straight from a brokerage REST API as an
// alternative to a CSV export. Login is TOTP-based: the client generates the
// one-time code itself from the account's shared secret, so the refresh loop
// can re-authenticate unattended.
package brokerlink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	"portfolio-riskv1/internal/model"
)

// Config configures the broker client.
type Config struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string // base32 shared secret for code generation

	RootURL string        // default: https://apiconnect.angelone.in
	Timeout time.Duration // default: 7s
	Debug   bool
}

const defaultRoot = "https://apiconnect.angelone.in"

var routes = map[string]string{
	"api.login":   "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":  "/rest/secure/angelbroking/user/v1/logout",
	"api.holding": "/rest/secure/angelbroking/portfolio/v1/getHolding",
}

// Client is a minimal session-holding broker API client. It implements
// model.HoldingsSource.
type Client struct {
	cfg        Config
	httpClient *http.Client

	accessToken  string
	refreshToken string

	// SessionExpiryHook fires on a 403 token rejection.
	SessionExpiryHook func()
}

var _ model.HoldingsSource = (*Client)(nil)

// New creates a broker client. It does not log in; the first Holdings call
// (or an explicit Login) does.
func New(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Login generates a fresh TOTP code and opens a session.
func (c *Client) Login(ctx context.Context) error {
	code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("brokerlink: totp generation: %w", err)
	}

	res, err := c.post(ctx, "api.login", map[string]any{
		"clientcode": c.cfg.ClientCode,
		"password":   c.cfg.Password,
		"totp":       code,
	})
	if err != nil {
		return fmt.Errorf("brokerlink: login: %w", err)
	}

	st, _ := res["status"].(bool)
	data, ok := res["data"].(map[string]any)
	if !st || !ok {
		msg, _ := res["message"].(string)
		return fmt.Errorf("brokerlink: login rejected: %s", msg)
	}

	c.accessToken, _ = data["jwtToken"].(string)
	c.refreshToken, _ = data["refreshToken"].(string)
	if c.accessToken == "" {
		return fmt.Errorf("brokerlink: login response carried no token")
	}
	log.Printf("[brokerlink] session opened for %s", c.cfg.ClientCode)
	return nil
}

// Logout terminates the session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.post(ctx, "api.logout", map[string]any{"clientcode": c.cfg.ClientCode})
	c.accessToken = ""
	c.refreshToken = ""
	return err
}

// holdingRow is the broker's holdings payload shape.
type holdingRow struct {
	TradingSymbol string  `json:"tradingsymbol"`
	Quantity      int64   `json:"quantity"`
	LTP           float64 `json:"ltp"`
}

// Holdings fetches the account's holdings and maps them to raw rows. A missing
// session is opened transparently; an expired one is retried once.
func (c *Client) Holdings(ctx context.Context) ([]model.RawRow, error) {
	if c.accessToken == "" {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	res, err := c.get(ctx, "api.holding")
	if err != nil {
		// One relogin attempt on token rejection.
		if !c.tokenRejected(err) {
			return nil, fmt.Errorf("brokerlink: holdings: %w", err)
		}
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		if res, err = c.get(ctx, "api.holding"); err != nil {
			return nil, fmt.Errorf("brokerlink: holdings after relogin: %w", err)
		}
	}

	raw, err := json.Marshal(res["data"])
	if err != nil {
		return nil, fmt.Errorf("brokerlink: holdings payload: %w", err)
	}
	var rows []holdingRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("brokerlink: holdings payload: %w", err)
	}

	out := make([]model.RawRow, 0, len(rows))
	for _, h := range rows {
		if h.TradingSymbol == "" {
			continue
		}
		out = append(out, model.RawRow{
			Symbol:    h.TradingSymbol,
			Quantity:  h.Quantity,
			LastPrice: h.LTP,
		})
	}
	log.Printf("[brokerlink] fetched %d holdings", len(out))
	return out, nil
}

func (c *Client) tokenRejected(err error) bool {
	return err != nil && strings.Contains(err.Error(), "TokenException")
}

func (c *Client) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-PrivateKey", c.cfg.APIKey)
	h.Set("X-UserType", "USER")
	h.Set("X-SourceID", "WEB")
	if c.accessToken != "" {
		h.Set("Authorization", "Bearer "+c.accessToken)
	}
	return h
}

func (c *Client) get(ctx context.Context, route string) (map[string]any, error) {
	return c.doRequest(ctx, http.MethodGet, route, nil)
}

func (c *Client) post(ctx context.Context, route string, params map[string]any) (map[string]any, error) {
	return c.doRequest(ctx, http.MethodPost, route, params)
}

func (c *Client) doRequest(ctx context.Context, method, route string, params map[string]any) (map[string]any, error) {
	uri, ok := routes[route]
	if !ok {
		return nil, fmt.Errorf("unknown route: %s", route)
	}
	fullURL := strings.TrimRight(c.cfg.RootURL, "/") + uri

	var body io.Reader
	if method != http.MethodGet && params != nil {
		b, _ := json.Marshal(params)
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}
	req.Header = c.requestHeaders()

	if c.cfg.Debug {
		log.Printf("[brokerlink] %s %s", method, fullURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("couldn't parse JSON response: %w", err)
	}

	// API error style: {"error_type": "TokenException", "message": "..."}
	if et, ok := out["error_type"].(string); ok && et != "" {
		if c.SessionExpiryHook != nil && resp.StatusCode == http.StatusForbidden && et == "TokenException" {
			c.SessionExpiryHook()
		}
		msg, _ := out["message"].(string)
		return out, fmt.Errorf("%s: %s", et, msg)
	}
	return out, nil
}
