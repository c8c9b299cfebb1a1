package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

// ErrTimeout is returned when a peer does not respond within the client's
// deadline. Distinguished from other network failures so the caller can
// decide whether the peer is slow or gone.
var ErrTimeout = errors.New("peer request timed out")

// Client sends outbound messages to peer gateways. Sends are synchronous and
// block the calling request to completion; the only cancellation is the
// client's own timeout.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a peer client. A non-positive timeout gets 30s.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendMessage posts a generic text message to a peer's /message endpoint and
// returns the raw response body.
func (c *Client) SendMessage(url, body string) (string, error) {
	payload, err := json.Marshal(PeerMessage{Message: body})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.post(url, payload)
}

// ShareTool posts a tool-share payload to a peer, proposing a tool for the
// peer's approval queue.
func (c *Client) ShareTool(url, name, source string) (string, error) {
	payload, err := json.Marshal(PeerMessage{Name: name, Source: source})
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool-share: %w", err)
	}
	return c.post(url, payload)
}

func (c *Client) post(url string, payload []byte) (string, error) {
	resp, err := c.httpClient.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(data), nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
