package rewards

import "time"

// xpHistoryLimit caps the persisted XP history to the newest entries.
const xpHistoryLimit = 50

// baseLevelCost is the XP required to finish level 1; the cost of finishing
// level n is n * baseLevelCost, so it strictly increases with level.
const baseLevelCost = 100

// XPEvent is one entry in the XP history.
type XPEvent struct {
	Date        time.Time `json:"date"`
	XP          int       `json:"xp"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
}

// UserXP tracks lifetime XP and its level decomposition. TotalXP is the sum
// of every delta ever applied; Level and CurrentLevelXP are always the unique
// decomposition of TotalXP under the level-cost function.
type UserXP struct {
	TotalXP        int       `json:"totalXP"`
	Level          int       `json:"level"`
	CurrentLevelXP int       `json:"currentLevelXP"`
	NextLevelXP    int       `json:"nextLevelXP"`
	History        []XPEvent `json:"xpHistory"`
}

// NewUserXP returns the fresh ledger state.
func NewUserXP() UserXP {
	return UserXP{Level: 1, NextLevelXP: baseLevelCost}
}

// apply adds amount and rolls levels over, appending one synthetic zero-XP
// history entry per level crossed and then the real gain entry. A single
// large award crosses as many levels as its delta covers: each crossing
// consumes the threshold in force when the award arrived, and the next-level
// cost is recomputed once after the loop.
func (xp *UserXP) apply(amount int, source, description string, now time.Time) (levelsGained int) {
	xp.TotalXP += amount
	xp.CurrentLevelXP += amount

	for xp.CurrentLevelXP >= xp.NextLevelXP {
		xp.CurrentLevelXP -= xp.NextLevelXP
		xp.Level++
		levelsGained++
		xp.appendEvent(XPEvent{
			Date:        now,
			Source:      "levelup",
			Description: "Level Up",
		})
	}
	xp.NextLevelXP = xp.Level * baseLevelCost

	xp.appendEvent(XPEvent{
		Date:        now,
		XP:          amount,
		Source:      source,
		Description: description,
	})
	return levelsGained
}

func (xp *UserXP) appendEvent(evt XPEvent) {
	xp.History = append(xp.History, evt)
	if len(xp.History) > xpHistoryLimit {
		xp.History = xp.History[len(xp.History)-xpHistoryLimit:]
	}
}
