package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Tiliavir/screen-time-tracker/internal/journal"
	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

// ErrDaemonUnreachable wraps transport failures talking to the daemon.
var ErrDaemonUnreachable = errors.New("daemon not reachable")

// Client calls a running daemon. It implements Commands.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient targets addr, either host:port or a full http URL.
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body *bytes.Reader
	if method == http.MethodPost {
		body = bytes.NewReader([]byte("{}"))
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s (start it with 'stt run'): %w", ErrDaemonUnreachable, c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env Response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response from %s (HTTP %d): %w", path, resp.StatusCode, err)
	}
	if !env.Success {
		return remoteError(env, resp.StatusCode)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", path, err)
	}
	return nil
}

// remoteError rebuilds the error class from the wire code so callers can
// use errors.Is against tracker and api classes.
func remoteError(env Response, status int) error {
	if class, ok := lookupClass(env.Code); ok {
		return class.WithMessage(env.Error)
	}
	if env.Error == "" {
		return fmt.Errorf("daemon returned HTTP %d", status)
	}
	return &tracker.Error{Code: env.Code, Message: env.Error}
}

func (c *Client) message(ctx context.Context, path string) (string, error) {
	var m MessageResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &m); err != nil {
		return "", err
	}
	return m.Message, nil
}

func dayQuery(day string) url.Values {
	if day == "" {
		return nil
	}
	return url.Values{"date": []string{day}}
}

func (c *Client) StartDay(ctx context.Context) (string, error) {
	return c.message(ctx, "/day/start")
}

func (c *Client) EndDay(ctx context.Context) (model.DayRecord, error) {
	var rec model.DayRecord
	err := c.do(ctx, http.MethodPost, "/day/end", nil, &rec)
	return rec, err
}

func (c *Client) AddLap(ctx context.Context) (string, error) {
	return c.message(ctx, "/lap")
}

func (c *Client) StopLap(ctx context.Context) (string, error) {
	return c.message(ctx, "/lap/stop")
}

func (c *Client) Signal(ctx context.Context, kind string) (string, error) {
	return c.message(ctx, "/signal/"+url.PathEscape(kind))
}

func (c *Client) Status(ctx context.Context) (*model.Status, error) {
	var st *model.Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &st)
	return st, err
}

func (c *Client) Session(ctx context.Context) (*tracker.SessionState, error) {
	var st *tracker.SessionState
	err := c.do(ctx, http.MethodGet, "/session", nil, &st)
	return st, err
}

func (c *Client) Laps(ctx context.Context, day string) ([]model.Lap, error) {
	laps := []model.Lap{}
	err := c.do(ctx, http.MethodGet, "/laps", dayQuery(day), &laps)
	return laps, err
}

func (c *Client) Journal(ctx context.Context, day string) ([]journal.Entry, error) {
	entries := []journal.Entry{}
	err := c.do(ctx, http.MethodGet, "/journal", dayQuery(day), &entries)
	return entries, err
}

// Health returns nil when the daemon answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
