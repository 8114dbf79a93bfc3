// Package badge is the client-side consumer of the moderation push channel.
// It maintains the notification badge a staff UI renders: a transient alert
// list, an unread count, and a connectivity flag.
//
// The live stream is best-effort; the badge treats the server's updates-list
// fetch as authoritative and the pushed frames as hints layered on top.
// Missing a frame costs freshness, never correctness.
package badge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Push event names, mirroring the server's live channel.
const (
	eventNew   = "notification:new"
	eventCount = "notification:count"
)

const (
	defaultMaxAlerts        = 50
	defaultReconnectBackoff = 2 * time.Second
)

// Alert is one transient notification entry.
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ItemID    string    `json:"itemId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// countPayload mirrors the server's absolute-count frame.
type countPayload struct {
	Count int `json:"count"`
}

// listResponse mirrors the server's updates-list envelope. Only the fields
// the badge needs are decoded.
type listResponse struct {
	OK    bool `json:"ok"`
	Items []struct {
		ID        string    `json:"id"`
		Type      string    `json:"type"`
		Title     string    `json:"title"`
		UpdatedAt time.Time `json:"updatedAt"`
	} `json:"items"`
}

// Config configures a badge Client.
type Config struct {
	// BaseURL is the moderation core's HTTP root, e.g. "https://host".
	BaseURL string
	// Token is the bearer credential for the admin surface and the live
	// channel handshake.
	Token string
	// LastVisit seeds the updates-since cutoff. Zero means "now", i.e. start
	// with an empty badge.
	LastVisit time.Time
	// MaxAlerts caps the transient alert list. Defaults to 50.
	MaxAlerts int
	// ReconnectBackoff is the pause between stream reconnect attempts.
	// Defaults to 2s.
	ReconnectBackoff time.Duration
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client consumes the live channel and exposes badge state.
type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	mu        sync.RWMutex
	alerts    []Alert
	count     int
	connected bool
	lastVisit time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a badge client. Call Start to begin consuming.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("badge: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("badge: invalid BaseURL: %w", err)
	}
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = defaultMaxAlerts
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = defaultReconnectBackoff
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lastVisit := cfg.LastVisit
	if lastVisit.IsZero() {
		lastVisit = time.Now()
	}
	return &Client{
		cfg:       cfg,
		client:    client,
		logger:    logger,
		lastVisit: lastVisit,
	}, nil
}

// Start seeds the badge from the authoritative updates list, then consumes
// the live stream until ctx is cancelled or Stop is called. The stream
// reconnects on failure; seeding failures are logged and retried on the next
// reconnect.
func (c *Client) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		for {
			c.seed(ctx)
			c.consume(ctx)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.ReconnectBackoff):
			}
		}
	}()
}

// Stop tears the consumer down and waits for it to exit.
func (c *Client) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

// Alerts returns a copy of the transient alert list, newest first.
func (c *Client) Alerts() []Alert {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// Count returns the displayed unread count.
func (c *Client) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Connected reports live stream connectivity. It says nothing about badge
// accuracy; the count may be stale while connected and correct while not.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// LastVisit returns the recorded last-visit cutoff.
func (c *Client) LastVisit() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastVisit
}

// MarkSeen records a visit: the count zeroes optimistically and the cutoff
// advances, so the next seed starts from now. The server is not informed;
// its next count push overrides the zero if unread work remains.
func (c *Client) MarkSeen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
	c.alerts = nil
	c.lastVisit = time.Now()
}

// seed replaces badge state with the server's authoritative view. The count
// is the length of the items-since-last-visit list; pushed count frames and
// Refresh adjust it afterwards.
func (c *Client) seed(ctx context.Context) {
	c.mu.RLock()
	since := c.lastVisit
	c.mu.RUnlock()

	items, err := c.fetchUpdates(ctx, since)
	if err != nil {
		c.logger.WarnContext(ctx, "badge seed failed", "error", err)
		return
	}

	c.mu.Lock()
	c.alerts = items
	c.count = len(items)
	c.mu.Unlock()
}

// Refresh replaces the displayed count with the server's recomputed unread
// counter. Call it when the count must be exact regardless of missed frames,
// e.g. when the badge becomes visible again.
func (c *Client) Refresh(ctx context.Context) error {
	count, err := c.fetchCount(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.count = count
	c.mu.Unlock()
	return nil
}

func (c *Client) fetchUpdates(ctx context.Context, since time.Time) ([]Alert, error) {
	u := c.cfg.BaseURL + "/admin/events/updates?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("updates fetch: status %d", resp.StatusCode)
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, err
	}

	alerts := make([]Alert, 0, len(list.Items))
	for _, item := range list.Items {
		alerts = append(alerts, Alert{
			ID:        item.ID,
			Type:      item.Type,
			ItemID:    item.ID,
			Title:     item.Title,
			CreatedAt: item.UpdatedAt,
		})
	}
	return alerts, nil
}

func (c *Client) fetchCount(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/admin/notifications/count", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("count fetch: status %d", resp.StatusCode)
	}

	var count struct {
		OK    bool `json:"ok"`
		Count int  `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, err
	}
	return count.Count, nil
}

// consume holds one live stream open and applies its frames until it drops.
func (c *Client) consume(ctx context.Context) {
	u := c.cfg.BaseURL + "/live?access_token=" + url.QueryEscape(c.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "badge stream request failed", "error", err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "badge stream connect failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "badge stream rejected", "status", resp.StatusCode)
		return
	}

	c.setConnected(true)
	defer c.setConnected(false)

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event != "" {
				c.apply(event, data)
			}
			event, data = "", ""
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// apply folds one pushed frame into badge state.
func (c *Client) apply(event, data string) {
	switch event {
	case eventNew:
		var alert Alert
		if err := json.Unmarshal([]byte(data), &alert); err != nil {
			c.logger.Warn("badge dropped malformed alert frame", "error", err)
			return
		}
		c.mu.Lock()
		c.alerts = append([]Alert{alert}, c.alerts...)
		if len(c.alerts) > c.cfg.MaxAlerts {
			c.alerts = c.alerts[:c.cfg.MaxAlerts]
		}
		c.mu.Unlock()
	case eventCount:
		var count countPayload
		if err := json.Unmarshal([]byte(data), &count); err != nil {
			c.logger.Warn("badge dropped malformed count frame", "error", err)
			return
		}
		c.mu.Lock()
		c.count = count.Count
		c.mu.Unlock()
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
