// Package tasmota provides an HTTP client for the Tasmota smart plug
// command interface.
//
// Commands are issued as GET requests against the /cm endpoint, see
// https://tasmota.github.io/docs/Commands/#management
package tasmota

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// Client talks to a single Tasmota device over HTTP.
type Client struct {
	addr       string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the device at addr (IP or host[:port]).
func NewClient(addr string, opts ...Option) *Client {
	c := &Client{
		addr: addr,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Addr returns the device address the client was built with.
func (c *Client) Addr() string {
	return c.addr
}

// Reading is one sample of the device's energy telemetry. Values keep the
// device's own formatting so they round-trip through the CSV log unchanged.
type Reading struct {
	Time           string
	Voltage        string
	Current        string
	Power          string
	ApparentPower  string
	ReactivePower  string
	Factor         string
	Today          string
	Yesterday      string
	Total          string
	Temperature1   string
	TotalStartTime string
	Power1         string
}

// Value returns the reading field for a log column name.
func (r Reading) Value(column string) (string, bool) {
	switch column {
	case "Time":
		return r.Time, true
	case "Voltage":
		return r.Voltage, true
	case "Current":
		return r.Current, true
	case "Power":
		return r.Power, true
	case "ApparentPower":
		return r.ApparentPower, true
	case "ReactivePower":
		return r.ReactivePower, true
	case "Factor":
		return r.Factor, true
	case "Today":
		return r.Today, true
	case "Yesterday":
		return r.Yesterday, true
	case "Total":
		return r.Total, true
	case "Temperature1":
		return r.Temperature1, true
	case "TotalStartTime":
		return r.TotalStartTime, true
	case "power1":
		return r.Power1, true
	}
	return "", false
}

// command issues a single Tasmota console command and returns the JSON body.
func (c *Client) command(ctx context.Context, cmnd string) ([]byte, error) {
	u := url.URL{
		Scheme:   "http",
		Host:     c.addr,
		Path:     "/cm",
		RawQuery: url.Values{"cmnd": {cmnd}}.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", c.addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("device %s: reading response: %w", c.addr, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device %s: command %q returned status %d", c.addr, cmnd, resp.StatusCode)
	}
	return body, nil
}

// Readings fetches the current energy telemetry (Status 8) plus the relay
// state. Fields the device does not report come back empty.
func (c *Client) Readings(ctx context.Context) (Reading, error) {
	body, err := c.command(ctx, "Status 8")
	if err != nil {
		return Reading{}, err
	}

	sns := gjson.GetBytes(body, "StatusSNS")
	if !sns.Exists() {
		return Reading{}, fmt.Errorf("device %s: no StatusSNS in response", c.addr)
	}

	r := Reading{
		Time:           sns.Get("Time").String(),
		Temperature1:   sns.Get("ANALOG.Temperature1").String(),
		Voltage:        sns.Get("ENERGY.Voltage").String(),
		Current:        sns.Get("ENERGY.Current").String(),
		Power:          sns.Get("ENERGY.Power").String(),
		ApparentPower:  sns.Get("ENERGY.ApparentPower").String(),
		ReactivePower:  sns.Get("ENERGY.ReactivePower").String(),
		Factor:         sns.Get("ENERGY.Factor").String(),
		Today:          sns.Get("ENERGY.Today").String(),
		Yesterday:      sns.Get("ENERGY.Yesterday").String(),
		Total:          sns.Get("ENERGY.Total").String(),
		TotalStartTime: sns.Get("ENERGY.TotalStartTime").String(),
	}

	state, err := c.PowerState(ctx, 1)
	if err != nil {
		return Reading{}, err
	}
	r.Power1 = state

	return r, nil
}

// PowerState queries the given relay (1-based) and returns its state,
// "ON" or "OFF".
func (c *Client) PowerState(ctx context.Context, relay int) (string, error) {
	body, err := c.command(ctx, fmt.Sprintf("Power%d", relay))
	if err != nil {
		return "", err
	}

	state := gjson.GetBytes(body, "POWER")
	if !state.Exists() {
		// Multi-relay firmware keys the response by relay number.
		state = gjson.GetBytes(body, fmt.Sprintf("POWER%d", relay))
	}
	if !state.Exists() {
		return "", fmt.Errorf("device %s: no POWER in response", c.addr)
	}
	return state.String(), nil
}

// Name returns the device's configured name from Status 0, preferring
// DeviceName over the first FriendlyName. Empty when the device reports
// neither.
func (c *Client) Name(ctx context.Context) (string, error) {
	body, err := c.command(ctx, "Status 0")
	if err != nil {
		return "", err
	}

	if name := gjson.GetBytes(body, "Status.DeviceName"); name.Exists() {
		return name.String(), nil
	}
	if name := gjson.GetBytes(body, "Status.FriendlyName.0"); name.Exists() {
		return name.String(), nil
	}
	return "", nil
}
