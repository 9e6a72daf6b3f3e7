// Package filter implements the candidate store's filter pipeline:
// an ordered, database-pushdown set of predicates that narrows the
// candidate universe before any scoring happens. Every Filter extends a
// *gorm.DB query in place; none of them ever enumerate rows themselves —
// that's left to the single Find/Take at the end of the pipeline, so the
// whole thing stays one query per request.
package filter

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/oggyb/matchengine/internal/db"
)

// Kind classifies what a filter is for.
type Kind string

const (
	KindDealbreaker Kind = "Dealbreaker"
	KindPreference  Kind = "Preference"
	KindRanking     Kind = "Ranking"
)

// Context bundles everything a Filter.Apply needs beyond the query
// itself: the requesting profile and the exclusion sets fetched from the
// external swipe/safety collaborators.
type Context struct {
	Requester     *db.Profile
	SwipedIDs     map[uint64]struct{}
	BlockedIDs    map[uint64]struct{}
	ActiveWithin  *int // days; nil means "unset"
	OnlyVerified  bool
}

// Filter is a single store-pushdown predicate.
type Filter interface {
	Name() string
	Order() int
	Kind() Kind
	Apply(query *gorm.DB, ctx *Context) *gorm.DB
}

// Trace is one entry of the pipeline's per-filter execution-order record,
// returned alongside the query result for observability.
type Trace struct {
	Name  string
	Kind  Kind
	Order int
}

// Pipeline is a flat, once-sorted slice of filters — the "resolver is a
// simple map lookup, registration is a flat slice sorted once at
// construction" design note.
type Pipeline struct {
	filters []Filter
}

// New builds a Pipeline from an unordered filter set, sorting by Order
// ascending exactly once. Ties are broken by registration order, which
// keeps output deterministic for equal-order filters.
func New(filters ...Filter) *Pipeline {
	sorted := make([]Filter, len(filters))
	copy(sorted, filters)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order() < sorted[j].Order()
	})
	return &Pipeline{filters: sorted}
}

// Default builds the Pipeline with every required filter, in their
// documented orders.
func Default() *Pipeline {
	return New(
		SelfExclusion{},
		Active{},
		Gender{},
		AgeRange{},
		ExcludeSwiped{},
		ExcludeBlocked{},
		Distance{},
	)
}

// Trace returns the pipeline's execution-order record without running any
// query — useful for logging/tests that just want to assert ordering.
func (p *Pipeline) Trace() []Trace {
	out := make([]Trace, len(p.filters))
	for i, f := range p.filters {
		out[i] = Trace{Name: f.Name(), Kind: f.Kind(), Order: f.Order()}
	}
	return out
}

// Run applies every filter in order to a fresh query over profiles,
// then takes at most limit rows in a single Find. No intermediate
// enumeration happens: each Apply only adds Where/Join clauses.
func (p *Pipeline) Run(ctx context.Context, base *gorm.DB, fctx *Context, limit int) ([]db.Profile, []Trace, error) {
	query := base.WithContext(ctx).Model(&db.Profile{})
	for _, f := range p.filters {
		query = f.Apply(query, fctx)
	}

	var candidates []db.Profile
	if err := query.Limit(limit).Find(&candidates).Error; err != nil {
		return nil, nil, err
	}
	return candidates, p.Trace(), nil
}
