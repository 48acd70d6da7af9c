package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyBoard() [][]int {
	board := make([][]int, 15)
	for i := range board {
		board[i] = make([]int, 15)
	}
	return board
}

func TestSuggestMove(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ai/suggest-move", r.URL.Path)

		var req suggestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.CurrentPlayer)
		assert.Equal(t, "HARD", req.Difficulty)
		assert.Len(t, req.Board, 15)

		json.NewEncoder(w).Encode(suggestResponse{Row: 7, Col: 8})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	row, col, err := c.SuggestMove(context.Background(), emptyBoard(), 2, "HARD")
	require.NoError(t, err)
	assert.Equal(t, 7, row)
	assert.Equal(t, 8, col)
}

func TestSuggestMove_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, _, err := c.SuggestMove(context.Background(), emptyBoard(), 2, "EASY")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestSuggestMove_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Millisecond)
	_, _, err := c.SuggestMove(context.Background(), emptyBoard(), 2, "MEDIUM")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestSuggestMove_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
	_, _, err := c.SuggestMove(context.Background(), emptyBoard(), 2, "EASY")
	assert.True(t, errors.Is(err, ErrUnavailable))
}
