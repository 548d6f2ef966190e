// Package racingapi fetches race results from TheRacingAPI.
package racingapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/turf-ledger/internal/metrics"
	"github.com/yourusername/turf-ledger/internal/models"
)

// ClientConfig configures the results client
type ClientConfig struct {
	BaseURL   string
	Username  string
	Password  string
	PageSize  int
	MaxPages  int
	PageDelay time.Duration
}

// DefaultClientConfig returns recommended defaults
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:   "https://api.theracingapi.com/v1",
		PageSize:  50,
		MaxPages:  40,
		PageDelay: 500 * time.Millisecond,
	}
}

// Client fetches a course's results for a race day, one page at a time
type Client struct {
	httpClient *RateLimitedHTTPClient
	cfg        ClientConfig
	validator  *payloadValidator
	logger     *logrus.Entry
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new results client
func NewClient(httpClient *RateLimitedHTTPClient, cfg ClientConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	defaults := DefaultClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaults.MaxPages
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		validator:  newPayloadValidator(),
		logger:     logger.WithField("component", "results_client"),
		sleep:      sleepContext,
	}
}

// Name returns the data source name
func (c *Client) Name() string {
	return sourceName
}

// FetchResults returns every valid runner result for courseID on date.
// Paging stops at the reported total, on a page with no new races, or at the
// page cap. Invalid records are skipped and logged.
func (c *Client) FetchResults(ctx context.Context, courseID string, date time.Time) ([]models.RunnerResult, error) {
	start := time.Now()
	day := date.Format(models.DateLayout)
	log := c.logger.WithFields(logrus.Fields{"course_id": courseID, "date": day})

	seen := make(map[string]struct{})
	var (
		results []models.RunnerResult
		skipped []SkippedRecord
		total   *int
		fetched int
		pages   int
	)

	for page := 0; page < c.cfg.MaxPages; page++ {
		if page > 0 {
			if err := c.sleep(ctx, c.cfg.PageDelay); err != nil {
				metrics.RecordResultsFetch(metrics.FetchOutcomeError, time.Since(start))
				return nil, NewError(ErrCodeCanceled, "fetch interrupted between pages", err)
			}
		}

		body, err := c.fetchPage(ctx, courseID, day, page*c.cfg.PageSize)
		if err != nil {
			metrics.RecordResultsFetch(metrics.FetchOutcomeError, time.Since(start))
			return nil, err
		}
		pages++
		if total == nil && body.Total != nil {
			total = body.Total
		}

		newRaces := 0
		for i := range body.Results {
			race := &body.Results[i]
			id := string(race.RaceID)
			if id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			newRaces++

			if race.CourseID != "" && string(race.CourseID) != courseID {
				continue
			}
			converted, dropped := c.validator.convertRace(race, date)
			results = append(results, converted...)
			skipped = append(skipped, dropped...)
		}
		fetched += newRaces

		if newRaces == 0 {
			break
		}
		if total != nil && fetched >= *total {
			break
		}
		if page == c.cfg.MaxPages-1 {
			log.WithField("max_pages", c.cfg.MaxPages).Warn("Stopped paging at page cap")
		}
	}

	for _, s := range skipped {
		log.WithFields(logrus.Fields{
			"race_id": s.RaceID,
			"horse":   s.Horse,
			"reason":  s.Reason,
		}).Warn("Skipped invalid result record")
	}
	metrics.RecordSkippedRecords(len(skipped))
	metrics.RecordResultsFetch(metrics.FetchOutcomeSuccess, time.Since(start))

	log.WithFields(logrus.Fields{
		"pages":   pages,
		"races":   fetched,
		"runners": len(results),
		"skipped": len(skipped),
	}).Debug("Fetched results")

	if results == nil {
		results = []models.RunnerResult{}
	}
	return results, nil
}

func (c *Client) fetchPage(ctx context.Context, courseID, day string, skip int) (*resultsPage, error) {
	q := url.Values{}
	q.Set("start_date", day)
	q.Set("end_date", day)
	q.Set("course", courseID)
	q.Set("limit", strconv.Itoa(c.cfg.PageSize))
	q.Set("skip", strconv.Itoa(skip))
	endpoint := fmt.Sprintf("%s/results?%s", c.cfg.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewError(ErrCodeNetworkError, "failed to create request", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, NewError(ErrCodeCircuitOpen, "results API unavailable", err)
		}
		return nil, NewError(ErrCodeNetworkError, "failed to fetch results", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewError(ErrCodeAuthenticationFailed, "invalid API credentials", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewError(ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewError(ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var page resultsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, NewError(ErrCodeInvalidData, "failed to parse response", err)
	}
	return &page, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
