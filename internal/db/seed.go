package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
)

var seedCities = []struct {
	city, country  string
	lat, lon        float64
}{
	{"Stockholm", "Sweden", 59.3293, 18.0686},
	{"Gothenburg", "Sweden", 57.7089, 11.9746},
	{"Oslo", "Norway", 59.9139, 10.7522},
	{"Copenhagen", "Denmark", 55.6761, 12.5683},
	{"London", "United Kingdom", 51.5072, -0.1276},
	{"Berlin", "Germany", 52.5200, 13.4050},
}

var seedInterests = []string{
	"hiking", "cooking", "photography", "travel", "yoga", "gaming",
	"reading", "climbing", "music", "running", "cycling", "art",
	"coffee", "dogs", "wine", "film",
}

// SeedTestData resets the candidate store and populates it with demo
// profiles, interactions, and algorithm metrics — enough
// realistic data to exercise the filter pipeline, the compatibility
// scorer, and the desirability calculator end to end.
//
// Wipes existing rows before repopulating. Compatible with MySQL,
// Postgres, and SQLite.
func SeedTestData(database *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := clearAll(database); err != nil {
		return err
	}
	log.Println("Cleared existing data")

	const userCount = 200
	profiles := make([]Profile, 0, userCount)
	for i := 1; i <= userCount; i++ {
		profiles = append(profiles, randomProfile(r, uint64(i)))
	}
	if err := database.CreateInBatches(profiles, 50).Error; err != nil {
		return fmt.Errorf("failed to seed profiles: %w", err)
	}
	log.Printf("Seeded %d profiles.\n", userCount)

	if err := seedInteractionsAndMetrics(database, r, profiles); err != nil {
		return err
	}

	return nil
}

func clearAll(database *gorm.DB) error {
	for _, table := range []string{
		"daily_picks", "precomputed_scores", "user_interactions",
		"algorithm_metrics", "matches", "profiles",
	} {
		if err := database.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func randomProfile(r *rand.Rand, id uint64) Profile {
	city := seedCities[r.Intn(len(seedCities))]
	gender := GenderMale
	if r.Intn(2) == 0 {
		gender = GenderFemale
	}
	pref := PreferredEveryone
	switch r.Intn(3) {
	case 0:
		pref = PreferredMale
	case 1:
		pref = PreferredFemale
	}

	wantsKids := r.Intn(2) == 0
	hasKids := r.Intn(5) == 0

	interests := make(StringSlice, 0, 5)
	seen := map[string]bool{}
	for len(interests) < 5 {
		cand := seedInterests[r.Intn(len(seedInterests))]
		if !seen[cand] {
			seen[cand] = true
			interests = append(interests, cand)
		}
	}

	age := 18 + r.Intn(40)
	minAge, maxAge := age-10, age+10
	if minAge < 18 {
		minAge = 18
	}

	educations := []EducationLevel{
		EducationHighSchool, EducationSomeCollege, EducationBachelor,
		EducationMaster, EducationPhD, EducationOther,
	}

	return Profile{
		UserID:            id,
		Gender:            gender,
		Age:               age,
		Latitude:          city.lat + (r.Float64()-0.5)/20,
		Longitude:         city.lon + (r.Float64()-0.5)/20,
		City:              city.city,
		Country:           city.country,
		PreferredGender:   pref,
		MinAge:            minAge,
		MaxAge:            maxAge,
		MaxDistanceKm:      float64(10 + r.Intn(190)),
		LookingFor:        []string{"relationship", "friendship", "casual"}[r.Intn(3)],
		WantsChildren:     boolPtr(wantsKids),
		HasChildren:       boolPtr(hasKids),
		SmokingStatus:     []SmokingStatus{SmokingNever, SmokingSometimes, SmokingOften}[r.Intn(3)],
		DrinkingStatus:    []DrinkingStatus{DrinkingNever, DrinkingSometimes, DrinkingOften}[r.Intn(3)],
		Religion:          []string{"", "Christian", "Muslim", "Jewish", "Buddhist", "Agnostic"}[r.Intn(6)],
		Education:         educations[r.Intn(len(educations))],
		Interests:         interests,
		LocationWeight:    1,
		AgeWeight:         1,
		InterestsWeight:   1,
		EducationWeight:   0.5,
		LifestyleWeight:   0.5,
		IsActive:          r.Intn(20) != 0, // ~5% inactive
		IsVerified:        r.Intn(3) == 0,
		DesirabilityScore: 50,
		LastActiveAt:      time.Now().Add(-time.Duration(r.Intn(24*30)) * time.Hour),
	}
}

func boolPtr(b bool) *bool { return &b }

// seedInteractionsAndMetrics generates swipe history and a derived
// AlgorithmMetric row per user, so the desirability calculator has
// something realistic to smooth over.
func seedInteractionsAndMetrics(database *gorm.DB, r *rand.Rand, profiles []Profile) error {
	interactions := make([]UserInteraction, 0, len(profiles)*12)
	counts := make(map[uint64]struct{ swipes, likes int })

	for _, actor := range profiles {
		decisions := 8 + r.Intn(10)
		for j := 0; j < decisions; j++ {
			target := profiles[r.Intn(len(profiles))]
			if target.UserID == actor.UserID {
				continue
			}
			liked := r.Intn(100) < 60
			typ := InteractionPass
			if liked {
				typ = InteractionLike
			}
			interactions = append(interactions, UserInteraction{
				UserID:       actor.UserID,
				TargetUserID: target.UserID,
				Type:         typ,
				CreatedAt:    time.Now().Add(-time.Duration(r.Intn(24*14)) * time.Hour),
			})

			c := counts[target.UserID]
			c.swipes++
			if liked {
				c.likes++
			}
			counts[target.UserID] = c
		}
	}

	if len(interactions) > 0 {
		if err := database.CreateInBatches(interactions, 200).Error; err != nil {
			return fmt.Errorf("failed to seed interactions: %w", err)
		}
	}
	log.Printf("Seeded %d interactions.\n", len(interactions))

	metrics := make([]AlgorithmMetric, 0, len(counts))
	for userID, c := range counts {
		successRate := 0.0
		if c.swipes > 0 {
			successRate = float64(c.likes) / float64(c.swipes)
		}
		metrics = append(metrics, AlgorithmMetric{
			UserID:               userID,
			SwipesReceived:       c.swipes,
			LikesReceived:        c.likes,
			MatchesCreated:       c.likes / 3,
			SuggestionsGenerated: c.swipes + r.Intn(10),
			SuccessRate:          successRate,
			CalculatedAt:         time.Now().Add(-time.Duration(r.Intn(48)) * time.Hour),
		})
	}
	if len(metrics) > 0 {
		if err := database.CreateInBatches(metrics, 200).Error; err != nil {
			return fmt.Errorf("failed to seed algorithm metrics: %w", err)
		}
	}
	log.Printf("Seeded %d algorithm metrics.\n", len(metrics))

	return nil
}

// SeedMinimalTestData wipes the store and inserts a small, deterministic
// dataset used by the engine's own unit tests for scenarios that need
// exact, hand-picked profiles rather than randomized ones.
func SeedMinimalTestData(database *gorm.DB) error {
	if err := clearAll(database); err != nil {
		return err
	}

	profiles := []Profile{
		{
			UserID: 1, Gender: GenderMale, Age: 30, Latitude: 59.33, Longitude: 18.07,
			City: "Stockholm", PreferredGender: PreferredFemale, MinAge: 25, MaxAge: 35,
			MaxDistanceKm: 50, IsActive: true, DesirabilityScore: 50,
			LocationWeight: 1, AgeWeight: 1, InterestsWeight: 1, EducationWeight: 0.5, LifestyleWeight: 0.5,
			LastActiveAt: time.Now(),
		},
		{
			UserID: 2, Gender: GenderFemale, Age: 28, Latitude: 59.35, Longitude: 18.10,
			City: "Stockholm", PreferredGender: PreferredMale, MinAge: 25, MaxAge: 40,
			MaxDistanceKm: 50, IsActive: true, DesirabilityScore: 50,
			LocationWeight: 1, AgeWeight: 1, InterestsWeight: 1, EducationWeight: 0.5, LifestyleWeight: 0.5,
			LastActiveAt: time.Now(),
		},
		{
			UserID: 3, Gender: GenderFemale, Age: 28, Latitude: 55.60, Longitude: 13.00,
			City: "Malmo", PreferredGender: PreferredMale, MinAge: 25, MaxAge: 40,
			MaxDistanceKm: 50, IsActive: true, DesirabilityScore: 50,
			LocationWeight: 1, AgeWeight: 1, InterestsWeight: 1, EducationWeight: 0.5, LifestyleWeight: 0.5,
			LastActiveAt: time.Now(),
		},
	}
	if err := database.Create(&profiles).Error; err != nil {
		return fmt.Errorf("failed to seed profiles: %w", err)
	}

	return nil
}
