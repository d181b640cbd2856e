package playlist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// ComputeAggregates sums duration and size over entries. Missing durations count as 0.
func ComputeAggregates(entries []model.PlaylistEntry) model.Aggregates {
	var agg model.Aggregates
	for _, entry := range entries {
		if entry.Content == nil {
			continue
		}
		if entry.Content.Duration != nil {
			agg.TotalDuration += *entry.Content.Duration
		}
		agg.TotalSize += entry.Content.FileSize
	}
	return agg
}

// ActiveEntries keeps the entries whose content window contains now, in order.
func ActiveEntries(entries []model.PlaylistEntry, now time.Time) []model.PlaylistEntry {
	out := make([]model.PlaylistEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Content != nil && entry.Content.ActiveAt(now) {
			out = append(out, entry)
		}
	}
	return out
}

// NextBoundary returns the earliest window start or end after now.
// false means the active set never changes on its own.
func NextBoundary(entries []model.PlaylistEntry, now time.Time) (time.Time, bool) {
	var next time.Time
	found := false
	consider := func(t *time.Time) {
		if t == nil || !t.After(now) {
			return
		}
		if !found || t.Before(next) {
			next, found = *t, true
		}
	}
	for _, entry := range entries {
		if entry.Content == nil {
			continue
		}
		consider(entry.Content.StartDate)
		consider(entry.Content.EndDate)
	}
	return next, found
}

// ETag fingerprints what a player would render: entry identity, order and content revision.
func ETag(playlistID string, entries []model.PlaylistEntry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", playlistID)
	for _, entry := range entries {
		var rev int64
		if entry.Content != nil {
			rev = entry.Content.UpdatedAt.UnixNano()
		}
		fmt.Fprintf(h, "%s|%s|%d|%d\n", entry.ID, entry.ContentID, entry.Order, rev)
	}
	return `"` + hex.EncodeToString(h.Sum(nil)[:16]) + `"`
}
