// Package apify runs vehicle-catalog actors on the Apify platform and
// collects their dataset output.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vecat-io/vecat/pkg/provider"
)

// SourceName labels responses assembled from Apify actor runs.
const SourceName = "apify_api"

const (
	defaultBaseURL      = "https://api.apify.com"
	defaultPollInterval = 2 * time.Second
)

// Actor run statuses reported by the Apify API.
const (
	statusSucceeded = "SUCCEEDED"
	statusFailed    = "FAILED"
	statusAborted   = "ABORTED"
	statusTimedOut  = "TIMED-OUT"
)

// Config configures a Client.
type Config struct {
	Token        string
	ActorID      string
	BaseURL      string        // defaults to the public Apify API
	PollInterval time.Duration // defaults to 2s
	HTTPClient   *http.Client
}

// Client starts an actor run per lookup, polls it to completion and fetches
// the run's default dataset. The caller bounds the total wait through ctx.
type Client struct {
	cfg Config
}

var _ provider.Provider = (*Client)(nil)

// New builds a Client for the configured actor.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{cfg: cfg}
}

// Name implements provider.Provider.
func (c *Client) Name() string { return SourceName }

type runInput struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

type actorRun struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type runEnvelope struct {
	Data actorRun `json:"data"`
}

// FetchVehicleData implements provider.Provider. A run that finishes without
// a default dataset yields no records.
func (c *Client) FetchVehicleData(ctx context.Context, make, model string, year int) ([]json.RawMessage, error) {
	run, err := c.startRun(ctx, runInput{Make: make, Model: model, Year: year})
	if err != nil {
		return nil, err
	}

	run, err = c.waitForRun(ctx, run)
	if err != nil {
		return nil, err
	}

	if run.Status != statusSucceeded {
		return nil, fmt.Errorf("actor run %s ended with status %s", run.ID, run.Status)
	}
	if run.DefaultDatasetID == "" {
		return nil, nil
	}

	return c.datasetItems(ctx, run.DefaultDatasetID)
}

func (c *Client) startRun(ctx context.Context, input runInput) (actorRun, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return actorRun{}, fmt.Errorf("encode run input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/runs", c.cfg.BaseURL, pathSafeActorID(c.cfg.ActorID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return actorRun{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	var env runEnvelope
	if err := c.doJSON(req, &env); err != nil {
		return actorRun{}, fmt.Errorf("start actor run: %w", err)
	}
	return env.Data, nil
}

func (c *Client) runStatus(ctx context.Context, runID string) (actorRun, error) {
	endpoint := fmt.Sprintf("%s/v2/actor-runs/%s", c.cfg.BaseURL, runID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return actorRun{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	var env runEnvelope
	if err := c.doJSON(req, &env); err != nil {
		return actorRun{}, fmt.Errorf("poll actor run %s: %w", runID, err)
	}
	return env.Data, nil
}

// waitForRun polls the run until it reaches a terminal status or ctx ends.
func (c *Client) waitForRun(ctx context.Context, run actorRun) (actorRun, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for !isTerminal(run.Status) {
		select {
		case <-ctx.Done():
			return run, fmt.Errorf("wait for actor run %s: %w", run.ID, ctx.Err())
		case <-ticker.C:
		}

		refreshed, err := c.runStatus(ctx, run.ID)
		if err != nil {
			return run, err
		}
		run = refreshed
	}
	return run, nil
}

func (c *Client) datasetItems(ctx context.Context, datasetID string) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/v2/datasets/%s/items?format=json", c.cfg.BaseURL, datasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	var items []json.RawMessage
	if err := c.doJSON(req, &items); err != nil {
		return nil, fmt.Errorf("fetch dataset items: %w", err)
	}
	return items, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, errBody(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isTerminal(status string) bool {
	switch status {
	case statusSucceeded, statusFailed, statusAborted, statusTimedOut:
		return true
	}
	return false
}

// pathSafeActorID converts "user/actor" IDs to the tilde form the API
// expects in URL paths.
func pathSafeActorID(actorID string) string {
	return strings.ReplaceAll(actorID, "/", "~")
}

func errBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
