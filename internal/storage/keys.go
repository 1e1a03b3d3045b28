package storage

// Keys enumerates the fixed document keys used by the sync core. Components
// receive a Keys value at construction instead of reaching for free-floating
// string constants, so tests can isolate state under a distinct namespace.
type Keys struct {
	Namespace    string
	Quests       string
	Badges       string
	XP           string
	DailyStats   string
	OfflineQueue string
	LastSyncTime string
	CachePrefix  string
}

// DefaultKeys returns the canonical key layout under the given namespace.
// An empty namespace defaults to "wordtrail".
func DefaultKeys(namespace string) Keys {
	if namespace == "" {
		namespace = "wordtrail"
	}
	return Keys{
		Namespace:    namespace,
		Quests:       namespace + ":quests",
		Badges:       namespace + ":badges",
		XP:           namespace + ":xp",
		DailyStats:   namespace + ":daily_stats",
		OfflineQueue: namespace + ":offline_queue",
		LastSyncTime: namespace + ":last_sync",
		CachePrefix:  namespace + ":cache:",
	}
}
