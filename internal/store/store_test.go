package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaziork/photocat-client/internal/dto"
	"github.com/zaziork/photocat-client/internal/models"
	appErrors "github.com/zaziork/photocat-client/pkg/errors"
)

func newTestStore() *Store {
	return New(models.RecordMeta{Page: 1, Limit: 25}, nil)
}

func tagsPtr(t []string) *[]string { return &t }

func TestSetRecordClampsPage(t *testing.T) {
	s := newTestStore()

	for _, page := range []int{0, -1, -100} {
		rec := s.Snapshot()
		rec.Meta.Page = page
		s.SetRecord(rec)
		assert.Equal(t, 1, s.Snapshot().Meta.Page, "page %d should clamp to 1", page)
	}

	rec := s.Snapshot()
	rec.Meta.Page = 7
	s.SetRecord(rec)
	assert.Equal(t, 7, s.Snapshot().Meta.Page)
}

func TestSetRecordDerivesAdminFromFirstItem(t *testing.T) {
	s := newTestStore()

	rec := s.Snapshot()
	rec.Results = []models.CatalogItem{{ID: 1, UserIsAdmin: true}}
	s.SetRecord(rec)
	assert.True(t, s.AuthMeta().IsAdmin)

	// An empty result page leaves admin status alone.
	rec = s.Snapshot()
	rec.Results = nil
	s.SetRecord(rec)
	assert.True(t, s.AuthMeta().IsAdmin, "empty results must not reset admin status")

	rec = s.Snapshot()
	rec.Results = []models.CatalogItem{{ID: 2, UserIsAdmin: false}}
	s.SetRecord(rec)
	assert.False(t, s.AuthMeta().IsAdmin)
}

func TestApplyItemPatchMergesByIdentity(t *testing.T) {
	s := newTestStore()

	rec := s.Snapshot()
	rec.Results = []models.CatalogItem{
		{ID: 1, FileName: "one", Tags: []string{"x"}},
		{ID: 2, FileName: "two", Tags: []string{"y"}},
		{ID: 3, FileName: "three", Tags: []string{"z"}},
	}
	s.SetRecord(rec)

	// Reorder between issue and completion; the merge must still land on
	// id=2 and only id=2.
	rec = s.Snapshot()
	rec.Results = []models.CatalogItem{rec.Results[2], rec.Results[0], rec.Results[1]}
	s.SetRecord(rec)

	err := s.ApplyItemPatch(&dto.ItemPatch{ID: 2, Tags: tagsPtr([]string{"y", "new"})}, time.Now())
	require.NoError(t, err)

	got := s.Snapshot()
	require.Equal(t, 3, len(got.Results))
	assert.Equal(t, int64(3), got.Results[0].ID)
	assert.Equal(t, []string{"z"}, got.Results[0].Tags)
	assert.Equal(t, int64(1), got.Results[1].ID)
	assert.Equal(t, []string{"x"}, got.Results[1].Tags)
	assert.Equal(t, int64(2), got.Results[2].ID)
	assert.Equal(t, []string{"y", "new"}, got.Results[2].Tags)
	assert.Equal(t, "two", got.Results[2].FileName, "fields not in the patch stay put")
}

func TestApplyItemPatchStaleItem(t *testing.T) {
	s := newTestStore()

	rec := s.Snapshot()
	rec.Results = []models.CatalogItem{{ID: 1, Tags: []string{"a"}}}
	s.SetRecord(rec)
	before := s.Snapshot()

	err := s.ApplyItemPatch(&dto.ItemPatch{ID: 99, Tags: tagsPtr([]string{"b"})}, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleItem.Code, appErrors.FromError(err).Code)

	after := s.Snapshot()
	assert.Equal(t, before.Results, after.Results, "failed patch must not touch state")
	assert.Equal(t, before.Revision, after.Revision)
}

func TestMergeFetchedKeepsNewerMutation(t *testing.T) {
	s := newTestStore()

	rec := s.Snapshot()
	rec.Results = []models.CatalogItem{{ID: 1, Tags: []string{"a"}}}
	s.SetRecord(rec)

	base := time.Now()

	// A mutation confirms after the in-flight refresh was issued.
	err := s.ApplyItemPatch(&dto.ItemPatch{ID: 1, Tags: tagsPtr([]string{"a", "b"})}, base.Add(10*time.Millisecond))
	require.NoError(t, err)

	// The slow refresh arrives carrying the pre-mutation view.
	stale := s.Snapshot()
	stale.Results = []models.CatalogItem{{ID: 1, Tags: []string{"a"}}}
	s.MergeFetched(stale, base)

	assert.Equal(t, []string{"a", "b"}, s.Snapshot().Results[0].Tags,
		"refresh issued before the mutation must not roll it back")

	// A refresh issued after the mutation wins.
	fresh := s.Snapshot()
	fresh.Results = []models.CatalogItem{{ID: 1, Tags: []string{"server"}}}
	s.MergeFetched(fresh, base.Add(20*time.Millisecond))
	assert.Equal(t, []string{"server"}, s.Snapshot().Results[0].Tags)
}

func TestMergeFetchedDropsOutOfOrderResponse(t *testing.T) {
	s := newTestStore()
	base := time.Now()

	newer := s.Snapshot()
	newer.Results = []models.CatalogItem{{ID: 1, Tags: []string{"new"}}}
	s.MergeFetched(newer, base.Add(20*time.Millisecond))
	applied := s.Snapshot()

	// A response from a request issued earlier completes late.
	older := s.Snapshot()
	older.Results = []models.CatalogItem{{ID: 1, Tags: []string{"old"}}}
	s.MergeFetched(older, base)

	got := s.Snapshot()
	assert.Equal(t, []string{"new"}, got.Results[0].Tags,
		"an earlier-issued response must never land after a later one")
	assert.Equal(t, applied.Revision, got.Revision, "the dropped response publishes nothing")
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := newTestStore()

	rec := s.Snapshot()
	rec.Results = []models.CatalogItem{{ID: 1, Tags: []string{"a"}}}
	s.SetRecord(rec)

	snap := s.Snapshot()
	snap.Results[0].Tags[0] = "mutated"
	snap.Results[0].FileName = "mutated"

	fresh := s.Snapshot()
	assert.Equal(t, "a", fresh.Results[0].Tags[0])
	assert.Empty(t, fresh.Results[0].FileName)
}

func TestSubscriberReceivesPublishes(t *testing.T) {
	s := newTestStore()

	var got []models.Record
	s.Subscribe(func(r models.Record) { got = append(got, r) })

	rec := s.Snapshot()
	rec.Meta.Search = "beach"
	s.SetRecord(rec)

	require.Equal(t, 1, len(got))
	assert.Equal(t, "beach", got[0].Meta.Search)
	assert.Equal(t, uint64(1), got[0].Revision)
}

func TestMergePatchIgnoresAbsentFields(t *testing.T) {
	patch, err := dto.ParseItemPatch([]byte(`{"id":1,"file_name":"renamed","surprise":"field"}`))
	require.NoError(t, err)
	require.NotNil(t, patch.FileName)
	assert.Equal(t, "renamed", *patch.FileName)
	assert.Nil(t, patch.Tags)

	item := models.CatalogItem{ID: 1, FileName: "old", Tags: []string{"keep"}}
	mergePatch(&item, patch)
	assert.Equal(t, "renamed", item.FileName)
	assert.Equal(t, []string{"keep"}, item.Tags)
}
