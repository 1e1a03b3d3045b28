package rewards

import "time"

// BadgeRarity grades how hard a badge is to earn.
type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// Badge describes one badge in the catalog together with its unlock state.
type Badge struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Rarity      BadgeRarity `json:"rarity"`
	XPReward    int         `json:"xpReward"`
	Unlocked    bool        `json:"unlocked"`
	UnlockedAt  time.Time   `json:"unlockedAt,omitzero"`
}

// badgeState is the persisted unlock record. The catalog itself lives in
// code; only which badges unlocked, and when, is stored.
type badgeState struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// snapshot is the state a badge predicate evaluates against.
type snapshot struct {
	stats DailyStats
	xp    UserXP
}

type badgeSpec struct {
	id          string
	title       string
	description string
	icon        string
	rarity      BadgeRarity
	xpReward    int
	earned      func(snapshot) bool
}

// badgeCatalog holds every badge and its unlock predicate. Predicates must be
// monotone in the stats they read so a re-check never tries to revoke.
var badgeCatalog = []badgeSpec{
	{
		id:          "first-word",
		title:       "First Word",
		description: "Learn your first word",
		icon:        "seedling",
		rarity:      RarityCommon,
		xpReward:    10,
		earned:      func(s snapshot) bool { return s.stats.WordsLearned >= 1 },
	},
	{
		id:          "fast-learner",
		title:       "Fast Learner",
		description: "Learn 10 words in a single day",
		icon:        "bolt",
		rarity:      RarityRare,
		xpReward:    50,
		earned:      func(s snapshot) bool { return s.stats.WordsLearned >= 10 },
	},
	{
		id:          "sharpshooter",
		title:       "Sharpshooter",
		description: "Hit 90% accuracy over at least 10 answers",
		icon:        "target",
		rarity:      RarityEpic,
		xpReward:    75,
		earned: func(s snapshot) bool {
			return s.stats.TotalAnswers >= 10 && s.stats.Accuracy() >= 0.9
		},
	},
	{
		id:          "dedicated",
		title:       "Dedicated",
		description: "Study for 30 minutes in one day",
		icon:        "clock",
		rarity:      RarityCommon,
		xpReward:    25,
		earned:      func(s snapshot) bool { return s.stats.StudyTimeMinutes >= 30 },
	},
	{
		id:          "week-streak",
		title:       "Week Streak",
		description: "Keep a 7-day streak",
		icon:        "flame",
		rarity:      RarityRare,
		xpReward:    50,
		earned:      func(s snapshot) bool { return s.stats.StreakLength >= 7 },
	},
	{
		id:          "month-streak",
		title:       "Month Streak",
		description: "Keep a 30-day streak",
		icon:        "trophy",
		rarity:      RarityLegendary,
		xpReward:    200,
		earned:      func(s snapshot) bool { return s.stats.StreakLength >= 30 },
	},
}
