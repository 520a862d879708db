package domain

import "time"

// DedupKey identifies one physical observation: the platform plus the start
// time truncated to the minute.
type DedupKey string

// NewDedupKey derives the registry key for a granule.
func NewDedupKey(platform string, start time.Time) DedupKey {
	return DedupKey(platform + "_" + start.UTC().Format("200601021504"))
}
