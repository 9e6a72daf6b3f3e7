package db

import "time"

// Gender is a coarse demographic fact. "Everyone" (and its synonyms) is only
// ever meaningful as a *preference*, never as a profile's own gender.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// PreferredGender extends Gender with the "match with anyone" value. The
// filter pipeline treats {"Everyone","All","Any",""} as synonyms of this.
type PreferredGender string

const (
	PreferredMale     PreferredGender = "Male"
	PreferredFemale   PreferredGender = "Female"
	PreferredEveryone PreferredGender = "Everyone"
)

// EveryoneSynonyms reports whether v should be treated as "no gender
// preference" per the filter pipeline's bidirectional gender rule.
func EveryoneSynonyms(v string) bool {
	switch v {
	case "Everyone", "All", "Any", "":
		return true
	}
	return false
}

type SmokingStatus string

const (
	SmokingNever     SmokingStatus = "Never"
	SmokingSometimes SmokingStatus = "Sometimes"
	SmokingOften     SmokingStatus = "Often"
)

type DrinkingStatus string

const (
	DrinkingNever     DrinkingStatus = "Never"
	DrinkingSometimes DrinkingStatus = "Sometimes"
	DrinkingOften     DrinkingStatus = "Often"
)

type EducationLevel string

const (
	EducationHighSchool  EducationLevel = "HighSchool"
	EducationSomeCollege EducationLevel = "SomeCollege"
	EducationBachelor    EducationLevel = "Bachelor"
	EducationMaster      EducationLevel = "Master"
	EducationPhD         EducationLevel = "PhD"
	EducationOther       EducationLevel = "Other"
)

// EducationOrdinal is the ordinal map used by the compatibility scorer's
// education sub-score.
var EducationOrdinal = map[EducationLevel]int{
	EducationHighSchool:  1,
	EducationSomeCollege: 2,
	EducationBachelor:    3,
	EducationMaster:      4,
	EducationPhD:         5,
	EducationOther:       2,
}

// Profile is the one-row-per-account entity every other component reads
// through the candidate store's query API. UserID is the external
// identifier shared with (but not owned by) the identity service.
type Profile struct {
	UserID uint64 `gorm:"column:user_id;primaryKey"`

	// Demographic facts.
	Gender    Gender  `gorm:"size:16;not null"`
	Age       int     `gorm:"not null"`
	Latitude  float64 `gorm:"column:lat;not null;index:idx_profile_lat_lon"`
	Longitude float64 `gorm:"column:lon;not null;index:idx_profile_lat_lon"`
	City      string  `gorm:"size:128"`
	Country   string  `gorm:"size:128"`

	// Preferences.
	PreferredGender PreferredGender `gorm:"size:16;not null;default:Everyone;index:idx_profile_preferred_active"`
	MinAge          int             `gorm:"not null;default:18"`
	MaxAge          int             `gorm:"not null;default:99"`
	MaxDistanceKm   float64         `gorm:"not null;default:100"`
	LookingFor      string          `gorm:"size:64"`

	// Lifestyle.
	WantsChildren  *bool
	HasChildren    *bool
	SmokingStatus  SmokingStatus  `gorm:"size:16"`
	DrinkingStatus DrinkingStatus `gorm:"size:16"`
	Religion       string         `gorm:"size:64"`
	Education      EducationLevel `gorm:"size:16"`
	Interests      StringSlice    `gorm:"type:text"`

	// Per-user scoring weights, applied to the requester's own outgoing
	// compatibility computations.
	LocationWeight  float64 `gorm:"not null;default:1"`
	AgeWeight       float64 `gorm:"not null;default:1"`
	InterestsWeight float64 `gorm:"not null;default:1"`
	EducationWeight float64 `gorm:"not null;default:0.5"`
	LifestyleWeight float64 `gorm:"not null;default:0.5"`

	IsActive          bool    `gorm:"not null;default:true;index:idx_profile_active_gender_age_last;index:idx_profile_preferred_active"`
	IsVerified        bool    `gorm:"not null;default:false"`
	DesirabilityScore float64 `gorm:"not null;default:50;index:idx_profile_active_desirability"`

	LastActiveAt time.Time `gorm:"index:idx_profile_active_gender_age_last"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }

// Match is the symmetric, canonically-ordered record of a mutual accept.
type Match struct {
	User1ID            uint64 `gorm:"column:user1_id;primaryKey;index:idx_match_user1_active"`
	User2ID            uint64 `gorm:"column:user2_id;primaryKey;index:idx_match_user2_active"`
	CompatibilityScore float64
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	MatchSource        string    `gorm:"size:32"`
	IsActive           bool      `gorm:"not null;default:true;index:idx_match_user1_active;index:idx_match_user2_active"`
	UnmatchedAt        *time.Time
	UnmatchedByUserID  *uint64
	UnmatchReason      *string
}

func (Match) TableName() string { return "matches" }

// CanonicalPair orders a pair so that a < b, per the Match invariant.
func CanonicalPair(a, b uint64) (uint64, uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

// PrecomputedScore is a directional (userId, targetUserId) cache row
// written by the compatibility scorer and the background refresher.
type PrecomputedScore struct {
	UserID         uint64 `gorm:"column:user_id;primaryKey;index:idx_score_user_valid_overall;index:idx_score_user_valid_calculated"`
	TargetUserID   uint64 `gorm:"column:target_user_id;primaryKey"`
	OverallScore   float64
	LocationScore  float64
	AgeScore       float64
	InterestsScore float64
	EducationScore float64
	// LifestyleScore holds the lifestyle sub-score on rows written by the
	// compatibility scorer, but the *overall compat score* on rows written
	// by the background refresher's write-through path; see DESIGN.md.
	LifestyleScore float64
	ActivityScore  float64
	CalculatedAt   time.Time `gorm:"index:idx_score_user_valid_calculated"`
	IsValid        bool      `gorm:"not null;default:true;index:idx_score_user_valid_overall;index:idx_score_user_valid_calculated"`
}

func (PrecomputedScore) TableName() string { return "precomputed_scores" }

// DailyPick is a materialized top-N row for the current generation.
type DailyPick struct {
	UserID          uint64    `gorm:"column:user_id;primaryKey;index:idx_dailypick_user_expires"`
	CandidateUserID uint64    `gorm:"column:candidate_user_id;primaryKey"`
	Score           float64
	Rank            int       `gorm:"not null"`
	GeneratedAt     time.Time `gorm:"not null"`
	ExpiresAt       time.Time `gorm:"not null;index:idx_dailypick_user_expires;index:idx_dailypick_expires"`
	Seen            bool      `gorm:"not null;default:false"`
	Acted           bool      `gorm:"not null;default:false"`
}

func (DailyPick) TableName() string { return "daily_picks" }

type InteractionType string

const (
	InteractionLike InteractionType = "LIKE"
	InteractionPass InteractionType = "PASS"
)

// UserInteraction is an append-only swipe record used by desirability and
// health metrics. It is never consulted to exclude candidates — that list
// comes from the external swipe service.
type UserInteraction struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement"`
	UserID       uint64          `gorm:"not null;index:idx_interaction_user_target"`
	TargetUserID uint64          `gorm:"not null;index:idx_interaction_user_target"`
	Type         InteractionType `gorm:"size:8;not null"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index:idx_interaction_created"`
}

func (UserInteraction) TableName() string { return "user_interactions" }

// AlgorithmMetric is a periodic per-user summary, the desirability
// calculator's batch input.
type AlgorithmMetric struct {
	ID                   uint64 `gorm:"primaryKey;autoIncrement"`
	UserID               uint64 `gorm:"not null;index"`
	SwipesReceived       int
	LikesReceived        int
	MatchesCreated       int
	SuggestionsGenerated int
	SuccessRate          float64
	CalculatedAt         time.Time `gorm:"not null;index"`
}

func (AlgorithmMetric) TableName() string { return "algorithm_metrics" }
