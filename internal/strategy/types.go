// Package strategy implements the three candidate-production strategies
// (Live, Pre-computed, Daily-pick) behind one interface, plus the
// resolver that picks one per request.
package strategy

import (
	"context"
	"time"

	"github.com/oggyb/matchengine/internal/db"
)

// Request is a single candidate-production request's clamped options.
type Request struct {
	Limit        int
	MinScore     float64
	ActiveWithin *int
	OnlyVerified bool
}

// Candidate is one scored, ranked result row.
type Candidate struct {
	UserID            uint64
	Age               int
	Gender            db.Gender
	City              string
	Country           string
	Interests         []string
	IsVerified        bool
	CompatibilityScore float64 // the compat sub-score
	ActivityScore      float64
	DesirabilityScore  float64
	FinalScore         float64 // the ranked, strategy-combined score
}

// Result is the uniform output every strategy returns.
type Result struct {
	Candidates           []Candidate
	TotalFiltered        int
	TotalScored          int
	StrategyName         string
	Elapsed              time.Duration
	QueueExhausted       bool
	SuggestionsRemaining int
}

// Strategy is the uniform candidate-production contract.
type Strategy interface {
	Name() string
	GetCandidates(ctx context.Context, userID uint64, req Request) (Result, error)
}
