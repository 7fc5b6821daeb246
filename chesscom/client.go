// Package chesscom is a client for the chess.com public API and the live game
// callback endpoint used to verify submitted games.
package chesscom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Dosada05/checked/storage"
)

const (
	UserAgent = "ChessKenya/1.0 (contact@chesskenya.co.ke)"

	DefaultBaseURL     = "https://api.chess.com/pub"
	DefaultCallbackURL = "https://www.chess.com/callback/live/game"

	profileTTL = 5 * time.Minute
	maxRetries = 3
)

var (
	ErrNotFound    = errors.New("not found on chess.com")
	ErrUnavailable = errors.New("failed to connect to Chess.com API")
)

type Client struct {
	baseURL     string
	callbackURL string
	http        *http.Client
	cache       storage.Cache
	logger      *slog.Logger
	now         func() time.Time
	retryWait   time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithCallbackURL(u string) Option {
	return func(cl *Client) { cl.callbackURL = strings.TrimSuffix(u, "/") }
}

func WithCache(c storage.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func withClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		callbackURL: DefaultCallbackURL,
		http:        &http.Client{Timeout: 15 * time.Second},
		cache:       storage.NewMemoryCache(),
		logger:      slog.Default(),
		now:         time.Now,
		retryWait:   250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("chess.com returned %d for %s", e.code, e.url)
}

// fetch GETs rawURL and returns the body. 404 maps to ErrNotFound; 429, 5xx
// and transport failures are retried with exponential backoff.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &statusError{code: resp.StatusCode, url: rawURL}
		case resp.StatusCode >= 300:
			return backoff.Permanent(&statusError{code: resp.StatusCode, url: rawURL})
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryWait
	exp.MaxElapsedTime = 10 * time.Second
	boff := backoff.WithContext(backoff.WithMaxRetries(exp, maxRetries), ctx)

	if err := backoff.Retry(op, boff); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, nil
}

// cachedFetch serves rawURL from the cache when a fresh copy exists.
func (c *Client) cachedFetch(ctx context.Context, key, rawURL string) ([]byte, error) {
	if b, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return b, nil
	} else if err != nil {
		c.logger.Warn("chess.com cache read failed", "key", key, "error", err)
	}
	b, err := c.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, b, profileTTL); err != nil {
		c.logger.Warn("chess.com cache write failed", "key", key, "error", err)
	}
	return b, nil
}

func (c *Client) playerURL(username string, parts ...string) string {
	segs := append([]string{c.baseURL, "player", url.PathEscape(strings.ToLower(username))}, parts...)
	return strings.Join(segs, "/")
}

// Profile fetches a player profile. Unknown usernames return ErrNotFound.
func (c *Client) Profile(ctx context.Context, username string) (*Profile, error) {
	b, err := c.cachedFetch(ctx, "chesscom:profile:"+strings.ToLower(username), c.playerURL(username))
	if err != nil {
		return nil, err
	}
	p := &Profile{}
	if err := json.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("failed to decode chess.com profile: %w", err)
	}
	return p, nil
}

// Stats fetches the last ratings per time class.
func (c *Client) Stats(ctx context.Context, username string) (*Stats, error) {
	b, err := c.cachedFetch(ctx, "chesscom:stats:"+strings.ToLower(username), c.playerURL(username, "stats"))
	if err != nil {
		return nil, err
	}
	var raw rawStats
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode chess.com stats: %w", err)
	}
	return raw.stats(), nil
}

// MonthlyGames lists a player's games for one month. A missing archive is an
// empty list.
func (c *Client) MonthlyGames(ctx context.Context, username string, year int, month time.Month) ([]Game, error) {
	b, err := c.fetch(ctx, c.playerURL(username, "games", fmt.Sprintf("%d", year), fmt.Sprintf("%02d", int(month))))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var archive struct {
		Games []Game `json:"games"`
	}
	if err := json.Unmarshal(b, &archive); err != nil {
		return nil, fmt.Errorf("failed to decode chess.com games: %w", err)
	}
	return archive.Games, nil
}

// FindGameBetween returns the most recent game of timeClass between the two
// players that ended after the given time, searching player1's current and
// previous monthly archives.
func (c *Client) FindGameBetween(ctx context.Context, player1, player2, timeClass string, after *time.Time) (*Game, error) {
	month := c.now().UTC()
	month = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		games, err := c.MonthlyGames(ctx, player1, month.Year(), month.Month())
		if err != nil {
			return nil, err
		}
		var best *Game
		for j := range games {
			g := &games[j]
			if !g.Involves(player2) || g.TimeClass != timeClass {
				continue
			}
			if after != nil && (g.EndTime == 0 || g.EndTime <= after.Unix()) {
				continue
			}
			if best == nil || g.EndTime > best.EndTime {
				best = g
			}
		}
		if best != nil {
			return best, nil
		}
		month = month.AddDate(0, -1, 0)
	}
	return nil, nil
}

// GameByURL fetches a finished or live game through the callback endpoint.
func (c *Client) GameByURL(ctx context.Context, gameURL string) (*LiveGame, error) {
	id, ok := ParseGameID(gameURL)
	if !ok {
		return nil, ErrNotFound
	}
	b, err := c.fetch(ctx, c.callbackURL+"/"+id)
	if err != nil {
		return nil, err
	}
	g := &LiveGame{}
	if err := json.Unmarshal(b, g); err != nil {
		return nil, fmt.Errorf("failed to decode chess.com game: %w", err)
	}
	return g, nil
}
