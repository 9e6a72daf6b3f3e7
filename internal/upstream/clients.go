// Package upstream holds the engine's outbound collaborators: the swipe
// service (who a user has already decided on, and their trust score) and
// the safety service (who a user has blocked). Both are wrapped in a
// circuit breaker and fail toward the safe default documented on each
// interface, never toward an error that would stall the candidate store.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/oggyb/matchengine/internal/logger"
)

// SwipeService answers "who has userID already swiped on" and "how
// trustworthy is userID", both owned by the swipe service, not this
// engine. On failure SwipedIDs fails open (empty set — nobody is
// excluded) and TrustScore fails safe at 100 (best trust, no shadow
// restriction), per the fail-open/fail-safe split documented on
// upstream collaborators.
type SwipeService interface {
	SwipedIDs(ctx context.Context, userID uint64) (map[uint64]struct{}, error)
	TrustScore(ctx context.Context, userID uint64) (int, error)
	TrustScores(ctx context.Context, userIDs []uint64) (map[uint64]int, error)
}

// SafetyService answers "who has userID blocked, or who has blocked
// userID". On failure BlockedIDs fails open (empty set).
type SafetyService interface {
	BlockedIDs(ctx context.Context, userID uint64) (map[uint64]struct{}, error)
	IsBlocked(ctx context.Context, a, b uint64) (bool, error)
}

// Notifier fires a best-effort, fire-and-forget notification when a
// mutual match forms. Failures are logged, never surfaced to the caller
// that triggered the match.
type Notifier interface {
	NotifyMatch(ctx context.Context, userID, matchedUserID uint64)
}

const (
	defaultTrustScore = 100
)

// HTTPSwipeClient is the HTTP-backed SwipeService, behind one circuit
// breaker shared by all its calls so a slow swipe service degrades to
// fail-open/fail-safe instead of backing up the candidate store.
type HTTPSwipeClient struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPSwipeClient(baseURL string, timeout time.Duration) *HTTPSwipeClient {
	return &HTTPSwipeClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "swipe-service",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
		}),
	}
}

func (c *HTTPSwipeClient) get(ctx context.Context, path string) ([]byte, error) {
	return c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("swipe service: unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
}

const swipedIDsPageSize = 200

// SwipedIDs pages through GET /swipes/user/{id}?page&pageSize=200 until a
// short page signals the end, accumulating every swiped target id along
// the way. A failure on any page fails the whole call open: partial
// results would silently let already-swiped users reappear as
// candidates, which is worse than excluding nobody.
func (c *HTTPSwipeClient) SwipedIDs(ctx context.Context, userID uint64) (map[uint64]struct{}, error) {
	out := make(map[uint64]struct{})
	for page := 1; ; page++ {
		body, err := c.get(ctx, fmt.Sprintf("/swipes/user/%d?page=%d&pageSize=%d", userID, page, swipedIDsPageSize))
		if err != nil {
			logger.Warn("swipe service swiped-ids call failed, failing open", "userId", userID, "page", page, "err", err)
			return map[uint64]struct{}{}, nil
		}
		var ids []uint64
		if err := json.Unmarshal(body, &ids); err != nil {
			logger.Warn("swipe service swiped-ids decode failed, failing open", "userId", userID, "page", page, "err", err)
			return map[uint64]struct{}{}, nil
		}
		for _, id := range ids {
			out[id] = struct{}{}
		}
		if len(ids) < swipedIDsPageSize {
			break
		}
	}
	return out, nil
}

func (c *HTTPSwipeClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("swipe service: unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
}

// trustScoreEntry is the shape the swipe service returns for both the
// single-user and batch trust-score endpoints.
type trustScoreEntry struct {
	UserID     uint64 `json:"userId"`
	TrustScore int    `json:"trustScore"`
}

func (c *HTTPSwipeClient) TrustScore(ctx context.Context, userID uint64) (int, error) {
	body, err := c.get(ctx, fmt.Sprintf("/internal/swipe-behavior/%d/trust-score", userID))
	if err != nil {
		logger.Warn("swipe service trust call failed, failing safe", "userId", userID, "err", err)
		return defaultTrustScore, nil
	}
	var out trustScoreEntry
	if err := json.Unmarshal(body, &out); err != nil {
		return defaultTrustScore, nil
	}
	return out.TrustScore, nil
}

// TrustScores is the Live strategy's batch trust lookup: one
// POST /internal/swipe-behavior/batch-trust-scores call carrying every
// userId instead of one request per user. Any failure fails every
// requested user safe at the default score.
func (c *HTTPSwipeClient) TrustScores(ctx context.Context, userIDs []uint64) (map[uint64]int, error) {
	out := make(map[uint64]int, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	for _, id := range userIDs {
		out[id] = defaultTrustScore
	}

	reqBody, err := json.Marshal(struct {
		UserIDs []uint64 `json:"userIds"`
	}{UserIDs: userIDs})
	if err != nil {
		return out, nil
	}

	body, err := c.post(ctx, "/internal/swipe-behavior/batch-trust-scores", reqBody)
	if err != nil {
		logger.Warn("swipe service batch trust-score call failed, failing safe", "count", len(userIDs), "err", err)
		return out, nil
	}

	var entries []trustScoreEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		logger.Warn("swipe service batch trust-score decode failed, failing safe", "count", len(userIDs), "err", err)
		return out, nil
	}
	for _, e := range entries {
		out[e.UserID] = e.TrustScore
	}
	return out, nil
}

// HTTPSafetyClient is the HTTP-backed SafetyService.
type HTTPSafetyClient struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPSafetyClient(baseURL string, timeout time.Duration) *HTTPSafetyClient {
	return &HTTPSafetyClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "safety-service",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
		}),
	}
}

// getAs issues a GET authenticated as callerID. The safety service scopes
// "blocked" and "is-blocked" to whoever the caller authenticates as, not
// to a target in the path, so callerID travels as a header rather than
// a URL segment.
func (c *HTTPSafetyClient) getAs(ctx context.Context, callerID uint64, path string) ([]byte, error) {
	return c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-User-Id", strconv.FormatUint(callerID, 10))
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("safety service: unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
}

// parseIDList accepts a JSON array whose elements may be numbers or
// string-encoded numbers, as the safety service's own encoding is
// inconsistent about this. Non-parseable elements are dropped rather
// than failing the whole call.
func parseIDList(body []byte) (map[uint64]struct{}, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	out := make(map[uint64]struct{}, len(raw))
	for _, r := range raw {
		var n uint64
		if err := json.Unmarshal(r, &n); err == nil {
			out[n] = struct{}{}
			continue
		}
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			if n, err := strconv.ParseUint(s, 10, 64); err == nil {
				out[n] = struct{}{}
			}
		}
	}
	return out, nil
}

// BlockedIDs is GET /safety/blocked for userID as the authenticated
// caller. Ids may arrive string-encoded; non-parseable ids are dropped
// rather than failing the whole lookup.
func (c *HTTPSafetyClient) BlockedIDs(ctx context.Context, userID uint64) (map[uint64]struct{}, error) {
	body, err := c.getAs(ctx, userID, "/safety/blocked")
	if err != nil {
		logger.Warn("safety service blocked-ids call failed, failing open", "userId", userID, "err", err)
		return map[uint64]struct{}{}, nil
	}
	out, err := parseIDList(body)
	if err != nil {
		logger.Warn("safety service blocked-ids decode failed, failing open", "userId", userID, "err", err)
		return map[uint64]struct{}{}, nil
	}
	return out, nil
}

// IsBlocked is GET /safety/is-blocked/{target} for a as the
// authenticated caller, asking whether a has blocked b (or been blocked
// by b — the safety service owns that symmetry, not this engine).
func (c *HTTPSafetyClient) IsBlocked(ctx context.Context, a, b uint64) (bool, error) {
	body, err := c.getAs(ctx, a, fmt.Sprintf("/safety/is-blocked/%d", b))
	if err != nil {
		logger.Warn("safety service is-blocked call failed, failing open", "userId", a, "target", b, "err", err)
		return false, nil
	}
	var blocked bool
	if err := json.Unmarshal(body, &blocked); err != nil {
		return false, nil
	}
	return blocked, nil
}

// LogNotifier is a Notifier that just logs — the engine has no push
// infrastructure of its own; wiring a real sink is left to whatever
// notification service the rest of the platform already runs.
type LogNotifier struct{}

func (LogNotifier) NotifyMatch(ctx context.Context, userID, matchedUserID uint64) {
	logger.Info("mutual match formed", "userId", userID, "matchedUserId", matchedUserID)
}
