// internal/sync/firebase/client.go
package firebase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	syncengine "github.com/tamzrod/sensor-relay/internal/sync"
)

// RTDB-style REST client (stateless, 1 upsert = 1 request).
//
// PUT {base}/{key}.json?auth={token} replaces the node wholesale,
// which is a native upsert: retrying a key that already exists
// overwrites it instead of conflicting. No NOT_FOUND fallback dance.
type Client struct {
	base    string
	auth    string
	host    string
	timeout time.Duration
	http    *http.Client
}

type Config struct {
	BaseURL string
	Auth    string
	Timeout time.Duration
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("firebase: base url required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("firebase: base url: %w", err)
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "http":
			host += ":80"
		default:
			host += ":443"
		}
	}

	return &Client{
		base:    cfg.BaseURL,
		auth:    cfg.Auth,
		host:    host,
		timeout: cfg.Timeout,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Upsert PUTs the document at key. Bounded by the per-attempt timeout;
// a timed-out attempt is simply a failed one.
func (c *Client) Upsert(key string, fields map[string]interface{}) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("firebase: marshal: %w", err)
	}

	endpoint := c.base + "/" + key + ".json"
	if c.auth != "" {
		endpoint += "?auth=" + url.QueryEscape(c.auth)
	}

	req, err := http.NewRequest(http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("firebase: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport-level failure, timeout included. The write may have
		// landed anyway; not definitive, the retry is a safe replay.
		return &syncengine.RemoteError{
			Definitive: false,
			Err:        fmt.Errorf("firebase: put %s: %w", key, err),
		}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		// The sink answered and said no.
		return &syncengine.RemoteError{
			Definitive: true,
			Err:        fmt.Errorf("firebase: put %s: status %d", key, resp.StatusCode),
		}
	}
	return nil
}

// Connected probes reachability with a short dial. Cheap compared to
// burning a whole batch attempt against a dead link.
func (c *Client) Connected() bool {
	conn, err := net.DialTimeout("tcp", c.host, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
