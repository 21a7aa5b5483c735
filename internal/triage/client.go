package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ClientConfig describes how to reach the symptom analysis service.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls a remote symptom analysis service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient validates the configuration and returns a ready-to-use client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("triage: base URL required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Analyze posts the symptom description and decodes the recommendation.
func (c *Client) Analyze(ctx context.Context, symptoms string) (*Result, error) {
	if strings.TrimSpace(symptoms) == "" {
		return nil, errors.New("triage: symptoms required")
	}

	payload, err := json.Marshal(map[string]string{"symptoms": symptoms})
	if err != nil {
		return nil, fmt.Errorf("triage: failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze_symptoms", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("triage: request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("triage: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("triage: read response failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("triage: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var out Result
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("triage: decode response failed: %w", err)
	}
	if out.Specialty == "" {
		return nil, errors.New("triage: response missing specialty")
	}
	return &out, nil
}

var _ Analyzer = (*Client)(nil)
