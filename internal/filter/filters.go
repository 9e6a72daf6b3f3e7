package filter

import (
	"math"

	"gorm.io/gorm"

	"github.com/oggyb/matchengine/internal/db"
)

// SelfExclusion (order 0): a candidate can never be the requester.
type SelfExclusion struct{}

func (SelfExclusion) Name() string   { return "self_exclusion" }
func (SelfExclusion) Order() int     { return 0 }
func (SelfExclusion) Kind() Kind     { return KindDealbreaker }
func (SelfExclusion) Apply(q *gorm.DB, c *Context) *gorm.DB {
	return q.Where("user_id <> ?", c.Requester.UserID)
}

// Active (order 10): candidate.isActive must be true.
type Active struct{}

func (Active) Name() string { return "active" }
func (Active) Order() int   { return 10 }
func (Active) Kind() Kind   { return KindDealbreaker }
func (Active) Apply(q *gorm.DB, c *Context) *gorm.DB {
	return q.Where("is_active = ?", true)
}

// Gender (order 20): bidirectional — requester's preference must accept
// the candidate's gender (or be "everyone"), and the candidate's
// preference must accept the requester's gender (or be "everyone").
type Gender struct{}

func (Gender) Name() string { return "gender" }
func (Gender) Order() int   { return 20 }
func (Gender) Kind() Kind   { return KindDealbreaker }
func (Gender) Apply(q *gorm.DB, c *Context) *gorm.DB {
	requesterWantsEveryone := db.EveryoneSynonyms(string(c.Requester.PreferredGender))

	q = q.Where(
		q.Session(&gorm.Session{NewDB: true}).
			Where("preferred_gender = ?", string(c.Requester.Gender)).
			Or("preferred_gender IN ?", everyoneValues()),
	)
	if !requesterWantsEveryone {
		q = q.Where("gender = ?", string(c.Requester.PreferredGender))
	}
	return q
}

func everyoneValues() []string { return []string{"Everyone", "All", "Any", ""} }

// AgeRange (order 30): bidirectional — the candidate's age must fall in
// the requester's [minAge,maxAge], and the requester's age must fall in
// the candidate's [minAge,maxAge].
type AgeRange struct{}

func (AgeRange) Name() string { return "age_range" }
func (AgeRange) Order() int   { return 30 }
func (AgeRange) Kind() Kind   { return KindDealbreaker }
func (AgeRange) Apply(q *gorm.DB, c *Context) *gorm.DB {
	return q.
		Where("age BETWEEN ? AND ?", c.Requester.MinAge, c.Requester.MaxAge).
		Where("? BETWEEN min_age AND max_age", c.Requester.Age)
}

// ExcludeSwiped (order 40): candidate must not be in the requester's
// already-swiped set.
type ExcludeSwiped struct{}

func (ExcludeSwiped) Name() string { return "exclude_swiped" }
func (ExcludeSwiped) Order() int   { return 40 }
func (ExcludeSwiped) Kind() Kind   { return KindDealbreaker }
func (ExcludeSwiped) Apply(q *gorm.DB, c *Context) *gorm.DB {
	if len(c.SwipedIDs) == 0 {
		return q
	}
	return q.Where("user_id NOT IN ?", keys(c.SwipedIDs))
}

// ExcludeBlocked (order 50): candidate must not be in the requester's
// blocked set.
type ExcludeBlocked struct{}

func (ExcludeBlocked) Name() string { return "exclude_blocked" }
func (ExcludeBlocked) Order() int   { return 50 }
func (ExcludeBlocked) Kind() Kind   { return KindDealbreaker }
func (ExcludeBlocked) Apply(q *gorm.DB, c *Context) *gorm.DB {
	if len(c.BlockedIDs) == 0 {
		return q
	}
	return q.Where("user_id NOT IN ?", keys(c.BlockedIDs))
}

// Distance (order 60): a lat/lon bounding box around the requester. A
// bounding box, not haversine, because the rule must stay expressible as
// a store-side predicate — haversine cannot push down to SQL
// without a spatial extension. If maxDistanceKm <= 0 the filter is a
// no-op.
type Distance struct{}

func (Distance) Name() string { return "distance" }
func (Distance) Order() int   { return 60 }
func (Distance) Kind() Kind   { return KindPreference }
func (Distance) Apply(q *gorm.DB, c *Context) *gorm.DB {
	maxKm := c.Requester.MaxDistanceKm
	if maxKm <= 0 {
		return q
	}
	latDelta := maxKm / 111.0
	cosLat := math.Cos(c.Requester.Latitude * math.Pi / 180)
	if cosLat == 0 {
		cosLat = 1e-9
	}
	lonDelta := maxKm / (111.0 * cosLat)

	return q.Where(
		"lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?",
		c.Requester.Latitude-latDelta, c.Requester.Latitude+latDelta,
		c.Requester.Longitude-lonDelta, c.Requester.Longitude+lonDelta,
	)
}

func keys(m map[uint64]struct{}) []uint64 {
	out := make([]uint64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
