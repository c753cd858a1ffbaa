package cache

import (
	"time"
)

const (
	UserKeyPrefix  = "user:"
	StoryKeyPrefix = "story:"
)

const (
	UserTTL  = 5 * time.Minute
	StoryTTL = 30 * time.Minute
)

func UserKey(userID string) string {
	return UserKeyPrefix + userID
}

func StoryKey(storyID string) string {
	return StoryKeyPrefix + storyID
}

// StoryKeys maps story IDs to their cache keys.
func StoryKeys(storyIDs []string) []string {
	keys := make([]string, 0, len(storyIDs))
	for _, id := range storyIDs {
		keys = append(keys, StoryKey(id))
	}
	return keys
}
