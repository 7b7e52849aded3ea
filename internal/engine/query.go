package engine

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/zaziork/photocat-client/internal/models"
)

// Search terms are limited to characters that occur in filenames and tags.
// Anything else is silently rejected and the previous term kept.
var searchTermRe = regexp.MustCompile(`^[a-zA-Z\d./+\-'?:"| ]*$`)

// RegisterSearchTermValidation installs the "searchterm" rule on a
// validator instance.
func RegisterSearchTermValidation(v *validator.Validate) {
	_ = v.RegisterValidation("searchterm", func(fl validator.FieldLevel) bool {
		return searchTermRe.MatchString(fl.Field().String())
	})
}

// ValidateSearchTerm reports whether term passes the allow-list.
func (e *Engine) ValidateSearchTerm(term string) bool {
	return e.validate.Var(term, "searchterm") == nil
}

// HandleColumnOrderChange applies the sort toggle: clicking the active
// column flips direction, any other column resets to ascending. Page goes
// back to 1 because the newly ordered result set starts over.
func (e *Engine) HandleColumnOrderChange(column string) {
	rec := e.store.Snapshot()

	dir := models.OrderAscending
	if rec.Meta.OrderBy == column && rec.Meta.OrderDir == models.OrderAscending {
		dir = models.OrderDescending
	}

	rec.Meta.OrderBy = column
	rec.Meta.OrderDir = dir
	rec.Meta.Page = 1
	rec.Meta.Next = nil
	rec.Meta.Previous = nil

	e.GetRecords(GetRecordsOptions{Record: &rec})
}

// HandleSearch validates and records the term, then schedules a debounced
// fetch. Invalid input keeps the previous term with no user-visible error.
// The term is published immediately so the search box keeps pace with
// typing; only the fetch is deferred.
func (e *Engine) HandleSearch(term string) {
	if !e.ValidateSearchTerm(term) {
		return
	}

	rec := e.store.Snapshot()
	rec.Meta.Search = term
	rec.Meta.Page = 1
	rec.Meta.Next = nil
	rec.Meta.Previous = nil
	e.store.SetRecord(rec)

	e.search.Notify()
}

// HandlePageChange navigates to page, preferring the server-issued cursor
// URL over recomputed offsets, and fetches immediately.
func (e *Engine) HandlePageChange(page int) {
	rec := e.store.Snapshot()

	var cursor string
	switch {
	case page == rec.Meta.Page+1 && rec.Meta.Next != nil:
		cursor = *rec.Meta.Next
	case page == rec.Meta.Page-1 && rec.Meta.Previous != nil:
		cursor = *rec.Meta.Previous
	}

	if page < 1 {
		page = 1
	}
	rec.Meta.Page = page

	e.GetRecords(GetRecordsOptions{Record: &rec, URL: cursor})
}

// HandleLimitChange changes the page size and refetches from page 1.
func (e *Engine) HandleLimitChange(limit int) {
	if limit < 1 {
		limit = 1
	}

	rec := e.store.Snapshot()
	rec.Meta.Limit = limit
	rec.Meta.Page = 1
	rec.Meta.Next = nil
	rec.Meta.Previous = nil

	e.GetRecords(GetRecordsOptions{Record: &rec})
}
