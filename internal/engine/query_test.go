package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaziork/photocat-client/internal/api"
	"github.com/zaziork/photocat-client/internal/models"
)

func TestValidateSearchTerm(t *testing.T) {
	e, _ := newTestEngine(t, &stubClient{})

	for _, term := range []string{"", "beach", "photo1.jpg", "holiday 2024", `a/b.c+d-'e?f:g"h|i`} {
		assert.True(t, e.ValidateSearchTerm(term), "%q should be allowed", term)
	}
	for _, term := range []string{"drop;table", "café", "a\nb", "<img>", "tag&tag", "назад"} {
		assert.False(t, e.ValidateSearchTerm(term), "%q should be rejected", term)
	}
}

func TestColumnOrderToggle(t *testing.T) {
	client := &stubClient{}
	e, gate := newTestEngine(t, client)
	gate.seed("ops")

	click := func(column string) models.RecordMeta {
		e.HandleColumnOrderChange(column)
		e.Wait()
		return e.Store().Snapshot().Meta
	}

	meta := click("file_name")
	assert.Equal(t, "file_name", meta.OrderBy)
	assert.Equal(t, models.OrderAscending, meta.OrderDir)

	meta = click("file_name")
	assert.Equal(t, models.OrderDescending, meta.OrderDir, "second click on the active column flips direction")

	meta = click("file_name")
	assert.Equal(t, models.OrderAscending, meta.OrderDir, "third click flips back")

	meta = click("record_updated")
	assert.Equal(t, "record_updated", meta.OrderBy)
	assert.Equal(t, models.OrderAscending, meta.OrderDir, "a new column always starts ascending")
}

func TestColumnOrderChangeResetsPage(t *testing.T) {
	client := &stubClient{}
	e, gate := newTestEngine(t, client)
	gate.seed("ops")

	rec := e.Store().Snapshot()
	rec.Meta.Page = 4
	e.Store().SetRecord(rec)

	e.HandleColumnOrderChange("file_name")
	e.Wait()

	call, ok := client.last(api.OpFetchList)
	require.True(t, ok)
	assert.Equal(t, 1, call.params.Meta.Page)
	assert.Equal(t, 1, e.Store().Snapshot().Meta.Page)
}

func TestHandleSearchDebouncesBursts(t *testing.T) {
	client := &stubClient{}
	e, gate := newTestEngine(t, client)
	gate.seed("ops")

	for _, term := range []string{"b", "be", "bea", "beac", "beach"} {
		e.HandleSearch(term)
	}

	// The term keeps pace with typing; the fetch does not.
	assert.Equal(t, "beach", e.Store().Snapshot().Meta.Search)
	assert.Equal(t, 0, client.count(api.OpFetchList))

	require.Eventually(t, func() bool {
		return client.count(api.OpFetchList) == 1
	}, time.Second, 10*time.Millisecond, "the burst should collapse into one fetch")
	e.Wait()

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, client.count(api.OpFetchList), "no trailing extra fetches")

	call, ok := client.last(api.OpFetchList)
	require.True(t, ok)
	assert.Equal(t, "beach", call.params.Meta.Search)
	assert.Equal(t, 1, call.params.Meta.Page, "a new search starts from page 1")
}

func TestHandleSearchRejectsInvalidTermSilently(t *testing.T) {
	client := &stubClient{}
	e, gate := newTestEngine(t, client)
	gate.seed("ops")

	e.HandleSearch("beach")
	e.HandleSearch("beach; drop")

	assert.Equal(t, "beach", e.Store().Snapshot().Meta.Search, "invalid input keeps the previous term")
	assert.Equal(t, Status{}, e.Status(), "rejection is silent")

	require.Eventually(t, func() bool {
		return client.count(api.OpFetchList) == 1
	}, time.Second, 10*time.Millisecond)
	e.Wait()

	call, _ := client.last(api.OpFetchList)
	assert.Equal(t, "beach", call.params.Meta.Search)
}

func TestHandlePageChangePrefersServerCursors(t *testing.T) {
	next := "http://api.example/photos/?cursor=n"
	prev := "http://api.example/photos/?cursor=p"

	seed := func(e *Engine) {
		rec := e.Store().Snapshot()
		rec.Meta.Page = 2
		rec.Meta.Next = &next
		rec.Meta.Previous = &prev
		e.Store().SetRecord(rec)
	}

	client := &stubClient{}
	e, gate := newTestEngine(t, client)
	gate.seed("ops")

	seed(e)
	e.HandlePageChange(3)
	e.Wait()
	call, ok := client.last(api.OpFetchList)
	require.True(t, ok)
	assert.Equal(t, next, call.params.URL, "forward one page reuses the next cursor")

	seed(e)
	e.HandlePageChange(1)
	e.Wait()
	call, _ = client.last(api.OpFetchList)
	assert.Equal(t, prev, call.params.URL, "back one page reuses the previous cursor")

	seed(e)
	e.HandlePageChange(5)
	e.Wait()
	call, _ = client.last(api.OpFetchList)
	assert.Empty(t, call.params.URL, "a jump falls back to offset math")
	assert.Equal(t, 5, call.params.Meta.Page)
}

func TestHandlePageChangeClampsToFirstPage(t *testing.T) {
	client := &stubClient{}
	e, gate := newTestEngine(t, client)
	gate.seed("ops")

	e.HandlePageChange(-3)
	e.Wait()

	call, ok := client.last(api.OpFetchList)
	require.True(t, ok)
	assert.Equal(t, 1, call.params.Meta.Page)
	assert.Equal(t, 1, e.Store().Snapshot().Meta.Page)
}

func TestHandleLimitChange(t *testing.T) {
	client := &stubClient{}
	e, gate := newTestEngine(t, client)
	gate.seed("ops")

	rec := e.Store().Snapshot()
	rec.Meta.Page = 3
	e.Store().SetRecord(rec)

	e.HandleLimitChange(50)
	e.Wait()

	meta := e.Store().Snapshot().Meta
	assert.Equal(t, 50, meta.Limit)
	assert.Equal(t, 1, meta.Page, "a new page size restarts from page 1")

	e.HandleLimitChange(0)
	e.Wait()
	assert.Equal(t, 1, e.Store().Snapshot().Meta.Limit)
}
