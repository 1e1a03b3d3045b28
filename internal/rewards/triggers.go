package rewards

import (
	"context"
	"fmt"
)

// Summary aggregates everything one learning event earned. XPGained includes
// direct awards plus quest and badge rewards granted during the event.
type Summary struct {
	XPGained        int
	QuestsCompleted []Quest
	BadgesUnlocked  []Badge
}

// WordLearned records one newly learned word: today's counter, progress
// quests, then a badge sweep.
func (l *Ledger) WordLearned(ctx context.Context) (Summary, error) {
	var sum Summary
	if _, err := l.UpdateDailyStats(ctx, StatWordsLearned, 1); err != nil {
		return sum, fmt.Errorf("word learned: %w", err)
	}
	l.applyQuests(ctx, &sum, CategoryProgress, 1)
	l.applyBadges(ctx, &sum)
	return sum, nil
}

// AnswerRecorded records one answered question. Correct answers earn direct
// XP and advance study quests; every answer feeds the accuracy stats and ends
// with a badge sweep.
func (l *Ledger) AnswerRecorded(ctx context.Context, correct bool) (Summary, error) {
	var sum Summary
	if _, err := l.UpdateDailyStats(ctx, StatTotalAnswers, 1); err != nil {
		return sum, fmt.Errorf("answer recorded: %w", err)
	}
	if correct {
		if _, err := l.UpdateDailyStats(ctx, StatCorrectAnswers, 1); err != nil {
			return sum, fmt.Errorf("answer recorded: %w", err)
		}
		if _, err := l.AddXP(ctx, XPPerCorrectAnswer, "answer", "Correct answer"); err != nil {
			l.report(ctx, "rewards", fmt.Sprintf("award answer xp: %v", err))
		} else {
			sum.XPGained += XPPerCorrectAnswer
		}
		l.applyQuests(ctx, &sum, CategoryStudy, 1)
	}
	l.applyBadges(ctx, &sum)
	return sum, nil
}

// StudyTime records minutes of study and sweeps time-based badges.
func (l *Ledger) StudyTime(ctx context.Context, minutes int) (Summary, error) {
	var sum Summary
	if minutes <= 0 {
		return sum, fmt.Errorf("study time: minutes %d must be positive", minutes)
	}
	if _, err := l.UpdateDailyStats(ctx, StatStudyTimeMinutes, minutes); err != nil {
		return sum, fmt.Errorf("study time: %w", err)
	}
	l.applyBadges(ctx, &sum)
	return sum, nil
}

// StreakUpdated records the latest streak length, advances streak quests by
// one extension, and sweeps streak badges.
func (l *Ledger) StreakUpdated(ctx context.Context, length int) (Summary, error) {
	var sum Summary
	if length < 0 {
		return sum, fmt.Errorf("streak updated: length %d must not be negative", length)
	}
	if _, err := l.UpdateDailyStats(ctx, StatStreakLength, length); err != nil {
		return sum, fmt.Errorf("streak updated: %w", err)
	}
	if length > 0 {
		l.applyQuests(ctx, &sum, CategoryStreak, 1)
	}
	l.applyBadges(ctx, &sum)
	return sum, nil
}

// applyQuests folds quest completions into sum. Quest failures degrade to a
// report; the triggering event still counts.
func (l *Ledger) applyQuests(ctx context.Context, sum *Summary, category QuestCategory, delta int) {
	completed, err := l.UpdateQuestProgress(ctx, category, delta)
	if err != nil {
		l.report(ctx, "rewards", fmt.Sprintf("advance %s quests: %v", category, err))
		return
	}
	sum.QuestsCompleted = append(sum.QuestsCompleted, completed...)
	for _, q := range completed {
		sum.XPGained += q.XPReward
	}
}

func (l *Ledger) applyBadges(ctx context.Context, sum *Summary) {
	unlocked, err := l.CheckBadges(ctx)
	if err != nil {
		l.report(ctx, "rewards", fmt.Sprintf("check badges: %v", err))
		return
	}
	sum.BadgesUnlocked = append(sum.BadgesUnlocked, unlocked...)
	for _, b := range unlocked {
		sum.XPGained += b.XPReward
	}
}
