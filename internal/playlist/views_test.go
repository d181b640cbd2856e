package playlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

func entry(id string, order int, c *model.Content) model.PlaylistEntry {
	return model.PlaylistEntry{ID: "e-" + id, ContentID: id, Order: order, Content: c}
}

func TestComputeAggregates(t *testing.T) {
	ten, five := 10, 5
	entries := []model.PlaylistEntry{
		entry("a", 0, &model.Content{Duration: &ten, FileSize: 100}),
		entry("b", 1, &model.Content{FileSize: 2000}),
		entry("a", 2, &model.Content{Duration: &ten, FileSize: 100}),
		entry("c", 3, &model.Content{Duration: &five}),
	}
	agg := ComputeAggregates(entries)
	assert.Equal(t, 25, agg.TotalDuration)
	assert.EqualValues(t, 2200, agg.TotalSize)

	assert.Equal(t, model.Aggregates{}, ComputeAggregates(nil))
}

func TestActiveEntriesAndNextBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	soon := now.Add(30 * time.Minute)
	later := now.Add(2 * time.Hour)

	always := &model.Content{}
	expired := &model.Content{EndDate: &past}
	upcoming := &model.Content{StartDate: &soon}
	running := &model.Content{StartDate: &past, EndDate: &later}
	endsNow := &model.Content{EndDate: &now}

	entries := []model.PlaylistEntry{
		entry("always", 0, always),
		entry("expired", 1, expired),
		entry("upcoming", 2, upcoming),
		entry("running", 3, running),
		entry("endsNow", 4, endsNow),
	}

	active := ActiveEntries(entries, now)
	assert.Equal(t, []string{"always", "running"}, ContentIDs(active))

	next, ok := NextBoundary(entries, now)
	assert.True(t, ok)
	assert.Equal(t, soon, next)

	_, ok = NextBoundary([]model.PlaylistEntry{entry("always", 0, always)}, now)
	assert.False(t, ok)
}

func TestETagTracksOrderAndRevisions(t *testing.T) {
	rev := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &model.Content{UpdatedAt: rev}
	b := &model.Content{UpdatedAt: rev}

	ab := []model.PlaylistEntry{entry("a", 0, a), entry("b", 1, b)}
	ba := []model.PlaylistEntry{entry("b", 0, b), entry("a", 1, a)}

	assert.Equal(t, ETag("p", ab), ETag("p", ab))
	assert.NotEqual(t, ETag("p", ab), ETag("p", ba))
	assert.NotEqual(t, ETag("p", ab), ETag("q", ab))

	edited := &model.Content{UpdatedAt: rev.Add(time.Second)}
	assert.NotEqual(t, ETag("p", ab), ETag("p", []model.PlaylistEntry{entry("a", 0, edited), entry("b", 1, b)}))

	tag := ETag("p", nil)
	assert.Len(t, tag, 34)
	assert.Equal(t, byte('"'), tag[0])
}
