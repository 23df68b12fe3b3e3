package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/autoreply/wa-autoreply-bridge/internal/api"
	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
)

// Client is the HTTP client for the bridge operator API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new bridge API client
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status gets the bridge status
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var status api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Pending lists the candidates waiting for their delayed evaluation
func (c *Client) Pending(ctx context.Context) ([]domain.PendingCandidate, error) {
	var result struct {
		Pending []domain.PendingCandidate `json:"pending"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/pending", nil, &result); err != nil {
		return nil, err
	}
	return result.Pending, nil
}

// Mutes lists the active mute windows
func (c *Client) Mutes(ctx context.Context) ([]domain.MuteWindow, error) {
	var result struct {
		Mutes []domain.MuteWindow `json:"mutes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/mutes", nil, &result); err != nil {
		return nil, err
	}
	return result.Mutes, nil
}

// Mute pauses automated replies for a chat. minutes <= 0 uses the bridge default.
func (c *Client) Mute(ctx context.Context, chatID string, minutes int) (*domain.MuteWindow, error) {
	var window domain.MuteWindow
	body := api.MuteRequest{ChatID: chatID, Minutes: minutes}
	if err := c.do(ctx, http.MethodPost, "/api/mutes", body, &window); err != nil {
		return nil, err
	}
	return &window, nil
}

// Unmute resumes automated replies for a chat
func (c *Client) Unmute(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodDelete, "/api/mutes/"+url.PathEscape(chatID), nil, nil)
}

// RecentEvents lists the latest reply journal events
func (c *Client) RecentEvents(ctx context.Context, limit int) ([]domain.ReplyEvent, error) {
	path := "/api/journal"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var result struct {
		Events []domain.ReplyEvent `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Events, nil
}

// ============ Helpers ============

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
