package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiClient talks to the feeder's operator API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newClient(base, token string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Code, e.Message, e.Status)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return &apiError{Status: resp.StatusCode, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type sleepView struct {
	Sleeping       bool      `json:"sleeping"`
	NextTransition time.Time `json:"next_transition"`
	Override       *bool     `json:"override"`
}

type donationView struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Platform      string    `json:"platform"`
	DisplayAmount string    `json:"display_amount"`
	Tier          string    `json:"tier"`
	Status        string    `json:"status"`
	Actuated      bool      `json:"actuated"`
	CreatedAt     time.Time `json:"created_at"`
}

type queueView struct {
	Stats struct {
		Pending    int    `json:"pending"`
		Dispatched uint64 `json:"dispatched"`
		Failed     uint64 `json:"failed"`
		Retried    uint64 `json:"retried"`
		Dropped    uint64 `json:"dropped"`
	} `json:"stats"`
	Pending []struct {
		DonationID string    `json:"donation_id"`
		Username   string    `json:"username"`
		Tier       string    `json:"tier"`
		ExecuteAt  time.Time `json:"execute_at"`
		Attempt    int       `json:"attempt"`
	} `json:"pending"`
}

func (c *apiClient) Sleep(ctx context.Context) (sleepView, error) {
	var out sleepView
	err := c.do(ctx, http.MethodGet, "/v1/sleep", nil, &out)
	return out, err
}

// SetOverride sends nil to clear the override.
func (c *apiClient) SetOverride(ctx context.Context, sleeping *bool) (sleepView, error) {
	var out sleepView
	err := c.do(ctx, http.MethodPost, "/v1/sleep/override", map[string]*bool{"override": sleeping}, &out)
	return out, err
}

func (c *apiClient) History(ctx context.Context, limit int) ([]donationView, error) {
	var out struct {
		Items []donationView `json:"items"`
	}
	q := url.Values{"limit": {fmt.Sprint(limit)}}
	err := c.do(ctx, http.MethodGet, "/v1/donations?"+q.Encode(), nil, &out)
	return out.Items, err
}

func (c *apiClient) Queue(ctx context.Context) (queueView, error) {
	var out queueView
	err := c.do(ctx, http.MethodGet, "/v1/queue", nil, &out)
	return out, err
}

// Donate posts a test donation; amount is in major units.
func (c *apiClient) Donate(ctx context.Context, payload map[string]string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/donations", payload, &out)
	return out.ID, err
}
