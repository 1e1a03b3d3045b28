package rewards

import (
	"fmt"
	"time"
)

// StatField names one DailyStats counter.
type StatField string

const (
	StatWordsLearned     StatField = "wordsLearned"
	StatStudyTimeMinutes StatField = "studyTimeMinutes"
	StatStreakLength     StatField = "streakLength"
	StatCorrectAnswers   StatField = "correctAnswers"
	StatTotalAnswers     StatField = "totalAnswers"
)

// DailyStats holds the counters for one calendar day. Exactly one record
// exists at a time; reading on a new day rolls every counter to zero before
// the day's first increment.
type DailyStats struct {
	Date             string `json:"date"`
	WordsLearned     int    `json:"wordsLearned"`
	StudyTimeMinutes int    `json:"studyTimeMinutes"`
	StreakLength     int    `json:"streakLength"`
	CorrectAnswers   int    `json:"correctAnswers"`
	TotalAnswers     int    `json:"totalAnswers"`
}

// statsDate formats the calendar day in ISO form.
func statsDate(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// add applies value to the named counter. StreakLength is a gauge, not a
// counter: updates replace it with the latest observed length.
func (s *DailyStats) add(field StatField, value int) error {
	switch field {
	case StatWordsLearned:
		s.WordsLearned += value
	case StatStudyTimeMinutes:
		s.StudyTimeMinutes += value
	case StatStreakLength:
		s.StreakLength = value
	case StatCorrectAnswers:
		s.CorrectAnswers += value
	case StatTotalAnswers:
		s.TotalAnswers += value
	default:
		return fmt.Errorf("unknown stat field %q", field)
	}
	return nil
}

// Accuracy reports the fraction of correct answers for the day.
func (s DailyStats) Accuracy() float64 {
	if s.TotalAnswers == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalAnswers)
}
