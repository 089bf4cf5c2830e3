package trello

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/cardsync/internal/domain/board"
	"github.com/example/cardsync/internal/internaltypes"
	"github.com/example/cardsync/internal/logging"
)

const (
	defaultBaseURL = "https://api.trello.com/1"
	defaultUA      = "cardsync/1.0"
	serviceName    = "trello"
)

type Credentials struct {
	APIKey string
	Token  string
}

// Client reads lists and cards from one Trello board. Only lists whose name is
// in the allow-list are read.
type Client struct {
	hc    *http.Client
	creds Credentials
	base  string
	lists []string
	log   *zap.Logger

	timeout time.Duration
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) {
		if b := strings.TrimRight(strings.TrimSpace(base), "/"); b != "" {
			c.base = b
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = logging.OrNop(l) }
}

func New(creds Credentials, lists []string, opts ...Option) *Client {
	c := &Client{
		hc:    &http.Client{Timeout: 30 * time.Second},
		creds: creds,
		base:  defaultBaseURL,
		lists: append([]string(nil), lists...),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout > 0 {
		hc := *c.hc
		hc.Timeout = c.timeout
		c.hc = &hc
	}
	return c
}

func (c *Client) Name() string { return serviceName }

type list struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type card struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// FetchActiveCards returns the cards of every allow-listed list, in board list
// order and then card order within each list.
func (c *Client) FetchActiveCards(ctx context.Context, boardID string) ([]board.Card, error) {
	var lists []list
	if err := c.getJSON(ctx, "list lists", "/boards/"+url.PathEscape(boardID)+"/lists", &lists); err != nil {
		return nil, err
	}

	var out []board.Card
	for _, l := range lists {
		if !c.allowed(l.Name) {
			c.log.Debug("trello list skipped", zap.String("list", l.Name))
			continue
		}
		var cards []card
		if err := c.getJSON(ctx, "list cards", "/lists/"+url.PathEscape(l.ID)+"/cards", &cards); err != nil {
			return nil, err
		}
		c.log.Debug("trello list fetched", zap.String("list", l.Name), zap.Int("cards", len(cards)))
		for _, cd := range cards {
			out = append(out, board.Card{
				ID:          cd.ID,
				Title:       cd.Name,
				Description: cd.Desc,
				SourceList:  l.Name,
			})
		}
	}
	return out, nil
}

// Ping checks that the credentials can read boardID.
func (c *Client) Ping(ctx context.Context, boardID string) error {
	var b struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, "get board", "/boards/"+url.PathEscape(boardID)+"?fields=name", &b); err != nil {
		return err
	}
	c.log.Debug("trello board reachable", zap.String("board", b.Name))
	return nil
}

func (c *Client) allowed(name string) bool {
	for _, n := range c.lists {
		if n == name {
			return true
		}
	}
	return false
}

func (c *Client) getJSON(ctx context.Context, op, path string, dst any) error {
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return &internaltypes.RemoteServiceError{Service: serviceName, Op: op, Err: err}
	}
	if status < 200 || status >= 300 {
		return &internaltypes.RemoteServiceError{
			Service:    serviceName,
			Op:         op,
			StatusCode: status,
			Message:    strings.TrimSpace(truncate(string(body), 200)),
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &internaltypes.RemoteServiceError{Service: serviceName, Op: op, StatusCode: status, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", defaultUA)

	q := req.URL.Query()
	q.Set("key", c.creds.APIKey)
	q.Set("token", c.creds.Token)
	req.URL.RawQuery = q.Encode()

	res, err := c.hc.Do(req)
	if err != nil {
		// url.Error carries the full URL, credentials included
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
