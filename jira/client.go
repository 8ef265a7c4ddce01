package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"team-metrics/config"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Client handles Jira API operations
type Client struct {
	baseURL  string
	username string
	password string
	fields   FieldIDs
	http     *http.Client
	log      zerolog.Logger

	// PageSize is the maxResults sent with each search page.
	PageSize int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
	// SkipInvalid makes Report log and drop records that fail to parse
	// instead of failing the whole run.
	SkipInvalid bool
}

// Jira API response structures
type searchResponse struct {
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Total      int        `json:"total"`
	Issues     []RawIssue `json:"issues"`
}

const maxAttempts = 3

// NewClient creates a new Jira client. A token takes precedence over
// username and password and is sent as a Bearer credential.
func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout()}
	if cfg.JiraToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.JiraToken}))
		httpClient.Timeout = cfg.Timeout()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.JiraURL, "/"),
		username: cfg.JiraUsername,
		password: cfg.JiraPassword,
		fields:   FieldIDs{Points: cfg.PointsField, Sprint: cfg.SprintField},
		http:     httpClient,
		log:      log,
		PageSize: 100,
		Backoff:  300 * time.Millisecond,
	}
}

// makeRequest makes a GET request with authentication, retrying 429 and 5xx
// responses with exponential backoff.
func (c *Client) makeRequest(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.Backoff * time.Duration(1<<(attempt-1))):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("jira request failed")
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}
		lastErr = fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return nil, lastErr
		}
		c.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("jira request retryable failure")
	}
	return nil, lastErr
}

// Search returns every issue matching jql, paging until Jira returns an
// empty page. expand is passed through, e.g. "changelog".
func (c *Client) Search(ctx context.Context, jql, expand string) ([]RawIssue, error) {
	var issues []RawIssue
	startAt := 0

	for {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(c.PageSize))
		if expand != "" {
			q.Set("expand", expand)
		}
		u := c.baseURL + "/rest/api/2/search?" + q.Encode()

		body, err := c.makeRequest(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("error fetching Jira issues: %w", err)
		}

		var response searchResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("error parsing Jira response: %w", err)
		}
		if len(response.Issues) == 0 {
			break
		}
		issues = append(issues, response.Issues...)
		startAt += len(response.Issues)
	}

	c.log.Debug().Str("jql", jql).Int("issues", len(issues)).Msg("jira search done")
	return issues, nil
}

// Report fetches the issues matching jql with their changelogs and builds
// their timelines.
func (c *Client) Report(ctx context.Context, jql string) ([]Issue, error) {
	raws, err := c.Search(ctx, jql, "changelog")
	if err != nil {
		return nil, err
	}
	return BuildIssues(raws, c.fields, c.SkipInvalid, c.log)
}

// BuildIssues builds every record in raws. With skipInvalid a record that
// fails to parse is logged and dropped; otherwise the first failure is
// returned.
func BuildIssues(raws []RawIssue, ids FieldIDs, skipInvalid bool, log zerolog.Logger) ([]Issue, error) {
	issues := make([]Issue, 0, len(raws))
	for _, raw := range raws {
		issue, err := BuildIssue(raw, ids)
		if err != nil {
			if !skipInvalid {
				return nil, err
			}
			log.Warn().Err(err).Str("key", raw.Key).Msg("skipping issue")
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}
