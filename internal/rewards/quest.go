package rewards

import "time"

// QuestCategory routes trigger deltas: a progress update for a category
// advances every non-completed quest in that category.
type QuestCategory string

const (
	CategoryStudy    QuestCategory = "study"
	CategoryStreak   QuestCategory = "streak"
	CategorySocial   QuestCategory = "social"
	CategoryProgress QuestCategory = "progress"
)

// QuestType distinguishes the regeneration cadence.
type QuestType string

const (
	QuestDaily  QuestType = "daily"
	QuestWeekly QuestType = "weekly"
)

// Quest is one active quest instance. Progress never exceeds Target and a
// completed quest never regresses or completes a second time.
type Quest struct {
	ID          string        `json:"id"`
	TemplateID  string        `json:"templateId"`
	Type        QuestType     `json:"type"`
	Category    QuestCategory `json:"category"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Target      int           `json:"target"`
	Progress    int           `json:"progress"`
	XPReward    int           `json:"xpReward"`
	Completed   bool          `json:"completed"`
	CompletedAt time.Time     `json:"completedAt,omitzero"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

type questTemplate struct {
	id          string
	questType   QuestType
	category    QuestCategory
	title       string
	description string
	target      int
	xpReward    int
}

// questTemplates is the fixed catalog active quests are minted from. Expired
// or missing instances are regenerated per template on refresh.
var questTemplates = []questTemplate{
	{
		id:          "daily-words",
		questType:   QuestDaily,
		category:    CategoryProgress,
		title:       "Word Collector",
		description: "Learn 5 new words today",
		target:      5,
		xpReward:    25,
	},
	{
		id:          "daily-answers",
		questType:   QuestDaily,
		category:    CategoryStudy,
		title:       "Sharp Mind",
		description: "Answer 10 questions correctly",
		target:      10,
		xpReward:    30,
	},
	{
		id:          "daily-streak",
		questType:   QuestDaily,
		category:    CategoryStreak,
		title:       "Keep It Going",
		description: "Extend your streak today",
		target:      1,
		xpReward:    15,
	},
	{
		id:          "weekly-words",
		questType:   QuestWeekly,
		category:    CategoryProgress,
		title:       "Vocabulary Builder",
		description: "Learn 30 new words this week",
		target:      30,
		xpReward:    100,
	},
	{
		id:          "weekly-streak",
		questType:   QuestWeekly,
		category:    CategoryStreak,
		title:       "Seven Days Strong",
		description: "Reach a 7-day streak",
		target:      7,
		xpReward:    75,
	},
}

// expiry returns the instant a fresh instance of the template lapses: end of
// the current UTC day for daily quests, end of the current ISO week for
// weekly ones.
func (t questTemplate) expiry(now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if t.questType == QuestWeekly {
		daysUntilMonday := (8 - int(now.Weekday())) % 7
		if daysUntilMonday == 0 {
			daysUntilMonday = 7
		}
		return midnight.AddDate(0, 0, daysUntilMonday)
	}
	return midnight.AddDate(0, 0, 1)
}
