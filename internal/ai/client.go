// Package ai bridges to the external move-suggestion service over plain
// HTTP. The bridge is best-effort: a failure never blocks or reverts the
// human move that triggered it.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrUnavailable wraps any transport, timeout or non-200 failure from the
// suggestion service. Callers treat it as "no move this time".
var ErrUnavailable = errors.New("ai service unavailable")

// DefaultTimeout bounds one suggestion round-trip.
const DefaultTimeout = 30 * time.Second

type suggestRequest struct {
	Board         [][]int `json:"board"`
	CurrentPlayer int     `json:"currentPlayer"`
	Difficulty    string  `json:"difficulty"`
}

type suggestResponse struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Client calls the suggestion service. One request per AI turn, no
// retries; the caller re-attempts on the next triggering event.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the service at baseURL. A zero timeout
// falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// SuggestMove asks the service for the next move given the board as seen
// by the AI (0 empty, 1 black, 2 white). The returned coordinates are not
// validated here; the engine rejects illegal suggestions like any other
// move.
func (c *Client) SuggestMove(ctx context.Context, board [][]int, currentPlayer int, difficulty string) (row, col int, err error) {
	payload, err := json.Marshal(suggestRequest{Board: board, CurrentPlayer: currentPlayer, Difficulty: difficulty})
	if err != nil {
		return 0, 0, fmt.Errorf("encode suggestion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/suggest-move", bytes.NewReader(payload))
	if err != nil {
		return 0, 0, fmt.Errorf("build suggestion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[AI] Suggestion request failed: %v", err)
		return 0, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		log.Printf("[AI] Suggestion service returned %d", resp.StatusCode)
		return 0, 0, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return out.Row, out.Col, nil
}
