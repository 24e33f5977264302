// Package oracle obtains a trustworthy current timestamp independent of the
// host's local clock. The local clock is the adversary's primary lever, so it
// is never consulted as a fallback value: if no remote source answers, the
// fetch fails and the caller must treat that as a closed gate.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/zalando/go-keyring"
)

var (
	ErrTimeout           = errors.New(config.ErrTimeout)
	ErrSourceUnreachable = errors.New(config.ErrSourceUnreachable)
	ErrAllExhausted      = errors.New(config.ErrAllExhausted)
	ErrNoSources         = errors.New(config.ErrNoSources)
)

// Reading is one successful oracle answer. It is ephemeral and never
// persisted; FetchedAt carries Go's monotonic clock reading so consecutive
// readings within a session can be compared without trusting the wall clock.
type Reading struct {
	Timestamp time.Time
	FetchedAt time.Time
	Source    string
}

// CredentialStore resolves basic-auth passwords for protected sources.
// The production implementation is the OS keyring.
type CredentialStore interface {
	Password(service, user string) (string, error)
}

// keyringStore backs CredentialStore with the system keychain.
type keyringStore struct{}

func (keyringStore) Password(service, user string) (string, error) {
	return keyring.Get(service, user)
}

// Client queries an ordered list of time sources with bounded per-source
// timeouts, retrying the whole list with exponential backoff up to a fixed
// attempt budget.
type Client struct {
	HTTP        *http.Client
	Sources     []Source
	Credentials CredentialStore

	SourceTimeout time.Duration
	Attempts      int
	BackoffBase   time.Duration
	BackoffCap    time.Duration
}

// NewClient creates a Client with the built-in source list and default
// tunables.
func NewClient() *Client {
	return &Client{
		HTTP:          &http.Client{Timeout: config.HTTPTimeout},
		Sources:       DefaultSources(),
		Credentials:   keyringStore{},
		SourceTimeout: config.OracleSourceTimeout,
		Attempts:      config.OracleAttempts,
		BackoffBase:   config.OracleBackoffBase,
		BackoffCap:    config.OracleBackoffCap,
	}
}

// FetchTrustedTime returns the first reading any source produces. Sources are
// tried in order; a failed or slow source is skipped, and once the list is
// exhausted the whole pass is retried after a backoff, up to the attempt
// budget. The host clock never substitutes for a remote answer.
func (c *Client) FetchTrustedTime(ctx context.Context) (Reading, error) {
	if len(c.Sources) == 0 {
		return Reading{}, ErrNoSources
	}

	log := slog.With(config.LogKeyComponent, config.CompOracle)
	backoff := c.BackoffBase

	for attempt := 1; attempt <= c.Attempts; attempt++ {
		for _, src := range c.Sources {
			reading, err := c.fetchSource(ctx, src)
			if err == nil {
				log.Debug(config.MsgSourceAnswered,
					config.LogKeySource, src.Name,
					config.LogKeyTimestamp, reading.Timestamp,
				)
				c.noteDivergence(log, reading)
				return reading, nil
			}
			if ctx.Err() != nil {
				return Reading{}, ctx.Err()
			}
			log.Warn(config.MsgSourceFailed,
				config.LogKeySource, src.Name,
				config.LogKeyAttempt, attempt,
				config.LogKeyError, err,
			)
		}

		if attempt == c.Attempts {
			break
		}

		log.Info(config.MsgOracleRetry,
			config.LogKeyAttempt, attempt,
			config.LogKeyBackoff, backoff,
		)
		select {
		case <-ctx.Done():
			return Reading{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.BackoffCap {
			backoff = c.BackoffCap
		}
	}

	log.Error(config.MsgOracleGiveUp, config.LogKeyAttempt, c.Attempts)
	return Reading{}, ErrAllExhausted
}

// fetchSource performs one bounded request against a single source.
func (c *Client) fetchSource(ctx context.Context, src Source) (Reading, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return Reading{}, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return Reading{}, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.SourceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, src.URL, nil)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	if src.Username != "" && c.Credentials != nil {
		pass, err := c.Credentials.Password(config.KeyringService, src.Username)
		if err != nil {
			slog.Debug(config.MsgPassFail,
				config.LogKeyComponent, config.CompOracle,
				config.LogKeyUser, src.Username,
				config.LogKeyError, err,
			)
		} else {
			req.SetBasicAuth(src.Username, pass)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return Reading{}, fmt.Errorf("%w: %s", ErrTimeout, src.Name)
		}
		return Reading{}, fmt.Errorf("%w: %s: %v", ErrSourceUnreachable, src.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("%w: %s: status %d", ErrSourceUnreachable, src.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxTimeResponseSize))
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %s: %v", ErrSourceUnreachable, src.Name, err)
	}

	ts, err := parseResponse(src, body)
	if err != nil {
		return Reading{}, err
	}

	return Reading{
		Timestamp: ts,
		FetchedAt: time.Now(),
		Source:    src.Name,
	}, nil
}

// noteDivergence logs when the remote answer is far from the host clock.
// The host clock is never a cross-check authority (a large divergence is
// exactly what this subsystem exists to see through), so this is diagnostic
// only and never disqualifies the reading.
func (c *Client) noteDivergence(log *slog.Logger, r Reading) {
	delta := time.Since(r.Timestamp)
	if delta < 0 {
		delta = -delta
	}
	if delta > time.Hour {
		log.Info(config.MsgSourceDiverged,
			config.LogKeySource, r.Source,
			config.LogKeyDelta, delta,
		)
	}
}
