package inventory

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Per-item metadata calls get a short timeout so one stuck item cannot
// stall a whole library scan.
const itemTimeout = 10 * time.Second

// Client talks to a Jellyfin server with token auth.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	itemHTTP *http.Client
}

func NewClient(serverURL, token string) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if base == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("API token is required")
	}
	return &Client{
		baseURL:  base,
		token:    strings.TrimSpace(token),
		http:     &http.Client{Timeout: 5 * time.Minute},
		itemHTTP: &http.Client{Timeout: itemTimeout},
	}, nil
}

type MediaStream struct {
	Type  string `json:"Type"`
	Codec string `json:"Codec"`
}

type MediaSource struct {
	Path         string        `json:"Path"`
	Size         int64         `json:"Size"`
	MediaStreams []MediaStream `json:"MediaStreams"`
}

type Item struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
	Type string `json:"Type"`
}

type itemsPage struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

type PlaybackInfo struct {
	MediaSources []MediaSource `json:"MediaSources"`
}

// Items lists every movie and episode the user can see. A non-OK
// response is fatal for the scan.
func (c *Client) Items(userID string) ([]Item, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	endpoint := fmt.Sprintf("%s/Users/%s/Items?IncludeItemTypes=Movie,Episode&Recursive=true&Fields=MediaStreams",
		c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Emby-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list library items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list library items: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page itemsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode items response: %w", err)
	}
	return page.Items, nil
}

// PlaybackInfo fetches the media sources for one item.
func (c *Client) PlaybackInfo(itemID, userID string) (PlaybackInfo, error) {
	endpoint := fmt.Sprintf("%s/Items/%s/PlaybackInfo?UserId=%s",
		c.baseURL, url.PathEscape(itemID), url.QueryEscape(userID))

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return PlaybackInfo{}, err
	}
	req.Header.Set("X-Emby-Token", c.token)

	resp, err := c.itemHTTP.Do(req)
	if err != nil {
		return PlaybackInfo{}, fmt.Errorf("playback info for %s: %w", itemID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return PlaybackInfo{}, fmt.Errorf("playback info for %s: status %d: %s", itemID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info PlaybackInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return PlaybackInfo{}, fmt.Errorf("decode playback info for %s: %w", itemID, err)
	}
	return info, nil
}

// VideoCodec returns the lowercased codec of the first video stream,
// or "" when the source has none.
func (s MediaSource) VideoCodec() string {
	for _, stream := range s.MediaStreams {
		if stream.Type == "Video" {
			return strings.ToLower(strings.TrimSpace(stream.Codec))
		}
	}
	return ""
}
