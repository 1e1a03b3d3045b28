// Package rewards maintains the gamification ledger: lifetime XP with level
// roll-over, per-day study stats, regenerating quests, and a fixed badge
// catalog with exactly-once unlocks. Every entity lives in its own store
// document and every mutation is a serialized read-modify-write.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/wordtrail/wordtrail/internal/keymutex"
	"github.com/wordtrail/wordtrail/internal/notify"
	"github.com/wordtrail/wordtrail/internal/platform/id"
	"github.com/wordtrail/wordtrail/internal/storage"
	"github.com/wordtrail/wordtrail/internal/telemetry"
)

// XPPerCorrectAnswer is the direct award for one correct answer.
const XPPerCorrectAnswer = 10

// Ledger owns all reward state. Mutations lock the entity's document key, so
// concurrent triggers interleave without losing updates; reads are lock-free
// and may observe a mutation mid-flight as either before or after.
type Ledger struct {
	store      storage.DocumentStore
	keys       storage.Keys
	locks      *keymutex.Mutex
	broker     *notify.Broker
	emitter    *telemetry.Emitter
	invalidate func(pattern string)
	clock      func() time.Time
	logf       func(string, ...any)
}

// NewLedger creates a ledger over store. invalidate, when non-nil, is called
// with the mutated document key after every successful write so query-cache
// layers can drop derived entries.
func NewLedger(store storage.DocumentStore, keys storage.Keys, locks *keymutex.Mutex, broker *notify.Broker, emitter *telemetry.Emitter, invalidate func(pattern string)) *Ledger {
	if locks == nil {
		locks = keymutex.New()
	}
	return &Ledger{
		store:      store,
		keys:       keys,
		locks:      locks,
		broker:     broker,
		emitter:    emitter,
		invalidate: invalidate,
		clock:      time.Now,
		logf:       log.Printf,
	}
}

// XP returns the current XP state.
func (l *Ledger) XP(ctx context.Context) (UserXP, error) {
	if err := ctx.Err(); err != nil {
		return UserXP{}, err
	}
	return l.loadXP(ctx), nil
}

// AddXP applies amount to the ledger, rolling levels over as needed, and
// returns the updated state. A non-positive amount is rejected.
func (l *Ledger) AddXP(ctx context.Context, amount int, source, description string) (UserXP, error) {
	if err := ctx.Err(); err != nil {
		return UserXP{}, err
	}
	if amount <= 0 {
		return UserXP{}, fmt.Errorf("add xp: amount %d must be positive", amount)
	}

	unlock := l.locks.Lock(l.keys.XP)
	defer unlock()

	xp := l.loadXP(ctx)
	levels := xp.apply(amount, source, description, l.clock())
	if err := l.save(ctx, l.keys.XP, xp); err != nil {
		return UserXP{}, fmt.Errorf("persist xp: %w", err)
	}

	l.publish(notify.Event{
		Type:        notify.EventXP,
		Title:       fmt.Sprintf("+%d XP", amount),
		Description: description,
		XPAmount:    amount,
	})
	for i := 0; i < levels; i++ {
		l.publish(notify.Event{
			Type:        notify.EventLevelUp,
			Title:       fmt.Sprintf("Level %d", xp.Level-levels+i+1),
			Description: "Level up!",
		})
	}
	return xp, nil
}

// Stats returns the stats for the current day. A record carried over from a
// previous day reads as fresh zeroes; the rolled state is not persisted until
// the day's first mutation.
func (l *Ledger) Stats(ctx context.Context) (DailyStats, error) {
	if err := ctx.Err(); err != nil {
		return DailyStats{}, err
	}
	return l.loadStats(ctx), nil
}

// UpdateDailyStats applies value to the named counter for today, rolling the
// record over first when the stored day is not today.
func (l *Ledger) UpdateDailyStats(ctx context.Context, field StatField, value int) (DailyStats, error) {
	if err := ctx.Err(); err != nil {
		return DailyStats{}, err
	}

	unlock := l.locks.Lock(l.keys.DailyStats)
	defer unlock()

	stats := l.loadStats(ctx)
	if err := stats.add(field, value); err != nil {
		return DailyStats{}, err
	}
	if err := l.save(ctx, l.keys.DailyStats, stats); err != nil {
		return DailyStats{}, fmt.Errorf("persist daily stats: %w", err)
	}
	return stats, nil
}

// Quests returns the active quest list without regenerating expired entries.
func (l *Ledger) Quests(ctx context.Context) ([]Quest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.loadQuests(ctx), nil
}

// RefreshQuests drops expired quest instances and mints fresh ones for every
// template without an active instance, then returns the active list.
func (l *Ledger) RefreshQuests(ctx context.Context) ([]Quest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(l.keys.Quests)
	defer unlock()

	now := l.clock().UTC()
	quests := slices.DeleteFunc(l.loadQuests(ctx), func(q Quest) bool {
		return !q.ExpiresAt.After(now)
	})

	for _, tmpl := range questTemplates {
		if slices.ContainsFunc(quests, func(q Quest) bool { return q.TemplateID == tmpl.id }) {
			continue
		}
		questID, err := id.NewID()
		if err != nil {
			return nil, fmt.Errorf("mint quest id: %w", err)
		}
		quests = append(quests, Quest{
			ID:          questID,
			TemplateID:  tmpl.id,
			Type:        tmpl.questType,
			Category:    tmpl.category,
			Title:       tmpl.title,
			Description: tmpl.description,
			Target:      tmpl.target,
			XPReward:    tmpl.xpReward,
			ExpiresAt:   tmpl.expiry(now),
		})
	}

	if err := l.save(ctx, l.keys.Quests, quests); err != nil {
		return nil, fmt.Errorf("persist quests: %w", err)
	}
	return quests, nil
}

// UpdateQuestProgress advances every non-completed quest in category by
// delta, clamped to the quest target. Quests crossing their target complete
// exactly once: their XP reward is granted and a notification published, and
// later deltas leave them untouched. The newly completed quests are returned.
func (l *Ledger) UpdateQuestProgress(ctx context.Context, category QuestCategory, delta int) ([]Quest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if delta <= 0 {
		return nil, fmt.Errorf("update quest progress: delta %d must be positive", delta)
	}

	unlock := l.locks.Lock(l.keys.Quests)
	defer unlock()

	quests := l.loadQuests(ctx)
	now := l.clock().UTC()
	var advanced bool
	var completed []Quest
	for i := range quests {
		q := &quests[i]
		if q.Category != category || q.Completed {
			continue
		}
		if !q.ExpiresAt.IsZero() && !q.ExpiresAt.After(now) {
			continue
		}
		q.Progress = min(q.Progress+delta, q.Target)
		advanced = true
		if q.Progress >= q.Target {
			q.Completed = true
			q.CompletedAt = now
			completed = append(completed, *q)
		}
	}
	if !advanced {
		return nil, nil
	}

	if err := l.save(ctx, l.keys.Quests, quests); err != nil {
		return nil, fmt.Errorf("persist quests: %w", err)
	}

	for _, q := range completed {
		if _, err := l.AddXP(ctx, q.XPReward, "quest", q.Title); err != nil {
			l.report(ctx, "rewards", fmt.Sprintf("award quest xp for %s: %v", q.ID, err))
		}
		l.publish(notify.Event{
			Type:        notify.EventQuest,
			Title:       q.Title,
			Description: "Quest complete",
			XPAmount:    q.XPReward,
		})
	}
	return completed, nil
}

// Badges returns the full catalog merged with persisted unlock state.
func (l *Ledger) Badges(ctx context.Context) ([]Badge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	states := l.loadBadgeStates(ctx)

	badges := make([]Badge, 0, len(badgeCatalog))
	for _, spec := range badgeCatalog {
		badge := Badge{
			ID:          spec.id,
			Title:       spec.title,
			Description: spec.description,
			Icon:        spec.icon,
			Rarity:      spec.rarity,
			XPReward:    spec.xpReward,
		}
		for _, state := range states {
			if state.ID == spec.id {
				badge.Unlocked = true
				badge.UnlockedAt = state.UnlockedAt
				break
			}
		}
		badges = append(badges, badge)
	}
	return badges, nil
}

// CheckBadges evaluates every locked badge predicate against current stats
// and unlocks the ones that now hold, awarding their XP. Already-unlocked
// badges are never re-awarded. The newly unlocked badges are returned.
func (l *Ledger) CheckBadges(ctx context.Context) ([]Badge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(l.keys.Badges)
	defer unlock()

	states := l.loadBadgeStates(ctx)
	snap := snapshot{stats: l.loadStats(ctx), xp: l.loadXP(ctx)}
	now := l.clock().UTC()

	var unlocked []Badge
	for _, spec := range badgeCatalog {
		if slices.ContainsFunc(states, func(s badgeState) bool { return s.ID == spec.id }) {
			continue
		}
		if !spec.earned(snap) {
			continue
		}
		states = append(states, badgeState{ID: spec.id, UnlockedAt: now})
		unlocked = append(unlocked, Badge{
			ID:          spec.id,
			Title:       spec.title,
			Description: spec.description,
			Icon:        spec.icon,
			Rarity:      spec.rarity,
			XPReward:    spec.xpReward,
			Unlocked:    true,
			UnlockedAt:  now,
		})
	}
	if len(unlocked) == 0 {
		return nil, nil
	}

	if err := l.save(ctx, l.keys.Badges, states); err != nil {
		return nil, fmt.Errorf("persist badges: %w", err)
	}

	for _, badge := range unlocked {
		if _, err := l.AddXP(ctx, badge.XPReward, "badge", badge.Title); err != nil {
			l.report(ctx, "rewards", fmt.Sprintf("award badge xp for %s: %v", badge.ID, err))
		}
		l.publish(notify.Event{
			Type:        notify.EventBadge,
			Title:       badge.Title,
			Description: badge.Description,
			XPAmount:    badge.XPReward,
			Icon:        badge.Icon,
			Rarity:      string(badge.Rarity),
		})
	}
	return unlocked, nil
}

// loadXP reads the XP document, returning fresh defaults when it is absent or
// malformed. Malformed documents are reported, never propagated.
func (l *Ledger) loadXP(ctx context.Context) UserXP {
	var xp UserXP
	if !l.load(ctx, l.keys.XP, &xp) {
		return NewUserXP()
	}
	if xp.Level < 1 {
		return NewUserXP()
	}
	return xp
}

// loadStats reads today's stats, rolling a record from a previous day over to
// zeroes dated today.
func (l *Ledger) loadStats(ctx context.Context) DailyStats {
	today := statsDate(l.clock())
	var stats DailyStats
	if !l.load(ctx, l.keys.DailyStats, &stats) || stats.Date != today {
		return DailyStats{Date: today}
	}
	return stats
}

func (l *Ledger) loadQuests(ctx context.Context) []Quest {
	var quests []Quest
	if !l.load(ctx, l.keys.Quests, &quests) {
		return nil
	}
	return quests
}

func (l *Ledger) loadBadgeStates(ctx context.Context) []badgeState {
	var states []badgeState
	if !l.load(ctx, l.keys.Badges, &states) {
		return nil
	}
	return states
}

// load reads and decodes key into target, reporting false when the document
// is absent, unreadable, or malformed so the caller reinitializes defaults.
func (l *Ledger) load(ctx context.Context, key string, target any) bool {
	body, err := l.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		l.report(ctx, "rewards", fmt.Sprintf("read %s: %v", key, err))
		return false
	}
	if err := storage.UnmarshalDocument(body, target); err != nil {
		l.report(ctx, "rewards", fmt.Sprintf("reset malformed %s: %v", key, err))
		return false
	}
	return true
}

func (l *Ledger) save(ctx context.Context, key string, value any) error {
	body, err := storage.MarshalDocument(value)
	if err != nil {
		return err
	}
	if err := l.store.Put(ctx, key, body); err != nil {
		return err
	}
	if l.invalidate != nil {
		l.invalidate(key)
	}
	return nil
}

func (l *Ledger) publish(evt notify.Event) {
	if l.broker != nil {
		l.broker.Publish(evt)
	}
}

func (l *Ledger) report(ctx context.Context, source, message string) {
	l.logf("%s: %s", source, message)
	if err := l.emitter.Emit(ctx, telemetry.SeverityWarn, source, message); err != nil {
		l.logf("%s: emit telemetry: %v", source, err)
	}
}
