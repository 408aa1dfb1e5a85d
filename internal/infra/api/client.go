package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"learnfront-session-service/internal/domain"
)

// Client talks to the LearnFront backend, which owns quiz content, bulk
// grading and the spaced-repetition schedule. It implements every engine
// port so the service can run as a thin session layer in front of it.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func New(cfg Config) *Client {
	h := &http.Client{}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{http: h, baseURL: cfg.BaseURL, token: cfg.Token}
}

// LoadBatch fetches quiz questions (deferred) or the next due review batch
// (immediate).
func (c *Client) LoadBatch(ctx context.Context, mode domain.GradingMode, scope string) (domain.ItemBatch, error) {
	var endpoint string
	if mode == domain.GradingImmediate {
		endpoint = c.baseURL + "/api/review/due?user=" + url.QueryEscape(scope)
	} else {
		endpoint = c.baseURL + "/api/quiz/" + url.PathEscape(scope) + "/questions"
	}

	var batch domain.ItemBatch
	if err := c.getJSON(ctx, endpoint, &batch); err != nil {
		return domain.ItemBatch{}, err
	}
	if batch.ID == "" {
		batch.ID = scope
	}
	return batch, nil
}

// ReportResult sends one graded item's correctness to the scheduler. The
// response is acknowledged only; no next-due data is parsed.
func (c *Client) ReportResult(ctx context.Context, itemID string, correct bool, rating int) error {
	body := map[string]any{
		"is_correct":        correct,
		"difficulty_rating": rating,
	}
	endpoint := c.baseURL + "/api/review/" + url.PathEscape(itemID) + "/result"
	return c.postJSON(ctx, endpoint, body, nil)
}

// SubmitAnswers sends the full answer list in one request and returns the
// server's authoritative outcome.
func (c *Client) SubmitAnswers(ctx context.Context, batchID string, answers []domain.CapturedAnswer, totalSeconds int) (domain.SessionOutcome, error) {
	body := map[string]any{
		"answers":    answers,
		"time_taken": totalSeconds,
	}
	endpoint := c.baseURL + "/api/quiz/" + url.PathEscape(batchID) + "/submit"
	var out domain.SessionOutcome
	if err := c.postJSON(ctx, endpoint, body, &out); err != nil {
		return domain.SessionOutcome{}, err
	}
	return out, nil
}

// ReviewStats fetches the aggregate counters shown after a review session.
func (c *Client) ReviewStats(ctx context.Context, userID string) (domain.ReviewStats, error) {
	endpoint := c.baseURL + "/api/review/stats?user=" + url.QueryEscape(userID)
	var stats domain.ReviewStats
	if err := c.getJSON(ctx, endpoint, &stats); err != nil {
		return domain.ReviewStats{}, err
	}
	return stats, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, res.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
