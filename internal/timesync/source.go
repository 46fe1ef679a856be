// internal/timesync/source.go
package timesync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPSource fetches wall time from a worldtimeapi-style endpoint
// returning {"unixtime": <seconds>}.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) FetchUnixTime() (uint32, error) {
	resp, err := s.client.Get(s.url)
	if err != nil {
		return 0, fmt.Errorf("timesync: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("timesync: source status %d", resp.StatusCode)
	}

	var body struct {
		UnixTime uint32 `json:"unixtime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("timesync: parse: %w", err)
	}
	return body.UnixTime, nil
}
