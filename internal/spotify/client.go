// Package spotify provides a wrapper around the Spotify Web API search endpoint.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1/"

// searchLimit is the number of tracks requested per search.
const searchLimit = 5

// Client issues Spotify API calls on behalf of a stored access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client. httpClient supplies the transport and timeout for
// upstream calls; nil means http.DefaultClient. An empty baseURL selects
// DefaultBaseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// api returns a Spotify client that authenticates with token.
// The token is used as-is: it is never refreshed.
func (c *Client) api(token *oauth2.Token) *spotify.Client {
	hc := &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token),
			Base:   c.httpClient.Transport,
		},
	}
	return spotify.New(hc, spotify.WithBaseURL(c.baseURL))
}

// SearchTracks searches the catalog for tracks matching query and returns
// at most five results in upstream order.
func (c *Client) SearchTracks(ctx context.Context, token *oauth2.Token, query string) ([]Track, error) {
	result, err := c.api(token).Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(searchLimit))
	if err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}

	tracks := []Track{}
	if result.Tracks == nil {
		return tracks, nil
	}
	for _, t := range result.Tracks.Tracks {
		tracks = append(tracks, convertTrack(t))
	}
	return tracks, nil
}
