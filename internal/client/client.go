// Package client provides an HTTP client for the comment wall API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/layout"
	"github.com/evcraddock/comment-wall/internal/wall"
)

// Client is an HTTP client for the wall API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Health is the response from GET /health.
type Health struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// LayoutResponse is the response from GET /api/layout.
type LayoutResponse struct {
	Viewport   float64            `json:"viewport"`
	Placements []layout.Placement `json:"placements"`
}

// AddComment posts a comment and returns its id.
func (c *Client) AddComment(name, text string) (string, error) {
	body := map[string]string{"name": name, "comment": text}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post("/api/comments", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListComments returns up to max comments, newest first. Zero uses the
// server default.
func (c *Client) ListComments(max int) ([]comment.Comment, error) {
	path := "/api/comments"
	if max > 0 {
		path += "?max=" + strconv.Itoa(max)
	}

	var items []comment.Comment
	if err := c.get(path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Layout returns bubble placements for the latest comments at width.
func (c *Client) Layout(width float64, max int) (*LayoutResponse, error) {
	params := url.Values{}
	if width > 0 {
		params.Set("width", strconv.FormatFloat(width, 'f', -1, 64))
	}
	if max > 0 {
		params.Set("max", strconv.Itoa(max))
	}
	path := "/api/layout"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp LayoutResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the server.
func (c *Client) Health() (*Health, error) {
	var h Health
	if err := c.get("/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Watch connects to the live wall and calls fn with every view until ctx is
// cancelled (returning nil) or the connection fails.
func (c *Client) Watch(ctx context.Context, width float64, fn func(wall.View)) error {
	u, err := url.Parse(c.baseURL + "/wall/ws")
	if err != nil {
		return fmt.Errorf("parsing server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if width > 0 {
		u.RawQuery = "width=" + strconv.FormatFloat(width, 'f', -1, 64)
	}

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connecting to wall: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		var v wall.View
		if err := conn.ReadJSON(&v); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading wall: %w", err)
		}
		fn(v)
	}
}

// get performs a GET request and decodes the response.
func (c *Client) get(path string, result interface{}) error {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(path string, body interface{}, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

// do executes an HTTP request and handles errors.
func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("server error: %s", http.StatusText(resp.StatusCode))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
