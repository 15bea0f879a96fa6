package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/feed"
	"github.com/sansad-av/talktime/internal/timecodec"
)

// ErrFeedUnavailable is returned for any poll that did not yield a usable state,
// whether the request failed outright or the server answered with an error
var ErrFeedUnavailable = errors.New("broadcast feed is unavailable")

// Feed is a source of published broadcast states
type Feed interface {
	Poll(ctx context.Context) (broadcast.State, error)
}

// Client reads the feed slot over HTTP
type Client struct {
	feedURL string
	http    *http.Client
	clock   timecodec.Clock
}

func NewClient(feedURL string, httpClient *http.Client, clock timecodec.Clock) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		feedURL: feedURL,
		http:    httpClient,
		clock:   clock,
	}
}

func (c *Client) Poll(ctx context.Context) (broadcast.State, error) {
	u, err := url.Parse(c.feedURL)
	if err != nil {
		return broadcast.State{}, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	q := u.Query()
	q.Set("_", strconv.FormatInt(timecodec.UnixMillis(c.clock.Now()), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return broadcast.State{}, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("cache-control", "no-store")

	res, err := c.http.Do(req)
	if err != nil {
		return broadcast.State{}, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return broadcast.State{}, fmt.Errorf("%w: got status %d", ErrFeedUnavailable, res.StatusCode)
	}

	var doc feed.Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return broadcast.State{}, fmt.Errorf("%w: invalid response: %v", ErrFeedUnavailable, err)
	}
	if !doc.Success || doc.State == nil {
		return broadcast.State{}, fmt.Errorf("%w: %s", ErrFeedUnavailable, doc.Error)
	}
	return *doc.State, nil
}

var _ Feed = (*Client)(nil)
