package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zaziork/photocat-client/internal/api"
	"github.com/zaziork/photocat-client/internal/dto"
	"github.com/zaziork/photocat-client/internal/models"
	appErrors "github.com/zaziork/photocat-client/pkg/errors"
)

// MutationKind identifies a user-initiated item-level mutation.
type MutationKind string

const (
	MutationAddTags     MutationKind = "add-tags"
	MutationRemoveTag   MutationKind = "remove-tag"
	MutationRotateImage MutationKind = "rotate-image"
	MutationReprocess   MutationKind = "reprocess-item"
)

// UpdateInput carries one item mutation.
type UpdateInput struct {
	ItemID          int64
	Kind            MutationKind
	Tags            []string
	RotationDegrees int
}

// HandleUpdate fires an asynchronous item mutation and returns immediately.
func (e *Engine) HandleUpdate(in UpdateInput) {
	e.async(func() { _ = e.applyMutation(context.Background(), in) })
}

// ApplyMutation is the synchronous form of HandleUpdate.
func (e *Engine) ApplyMutation(ctx context.Context, in UpdateInput) error {
	return e.applyMutation(ctx, in)
}

// applyMutation is confirmed-write: the store is only patched once the
// server responds, and then only the matching item, located by identity.
func (e *Engine) applyMutation(ctx context.Context, in UpdateInput) error {
	if !e.gate.Authenticated() {
		e.status.set("Please log in first", ClassError)
		return appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}

	rec := e.store.Snapshot()
	if rec.FindItem(in.ItemID) < 0 {
		e.status.set("That item is no longer in the current results", ClassError)
		return appErrors.Clone(appErrors.ErrStaleItem, "")
	}

	if in.Kind == MutationReprocess {
		// Reprocessing runs server-side as a batch scan; there is no item
		// payload to merge. The next list refresh picks up the result.
		return e.processPhotos(ctx, api.ProcessFlags{Scan: true, Retag: true})
	}

	update, err := buildUpdateRequest(in)
	if err != nil {
		e.status.set("Unsupported update", ClassError)
		return err
	}

	res, err := e.client.Execute(ctx, api.OpMutateItem, api.Params{Update: update})
	if err != nil {
		if appErrors.IsCancelled(err) {
			return nil
		}
		e.status.set("The update could not be applied", ClassError)
		e.logger.Warn("item mutation failed",
			zap.Int64("item_id", in.ItemID),
			zap.String("kind", string(in.Kind)),
			zap.Error(err))
		return err
	}

	patch, err := dto.ParseItemPatch(res.Payload)
	if err != nil {
		e.status.set("The update could not be applied", ClassError)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decoding update response")
	}

	if err := e.store.ApplyItemPatch(patch, time.Now()); err != nil {
		e.status.set("That item is no longer in the current results", ClassError)
		return err
	}

	if in.Kind == MutationAddTags || in.Kind == MutationRemoveTag {
		if e.suggestions != nil {
			e.suggestions.Purge()
		}
	}

	e.status.set("Update applied", ClassSuccess)
	return nil
}

func buildUpdateRequest(in UpdateInput) (*dto.UpdatePhotoRequest, error) {
	switch in.Kind {
	case MutationAddTags:
		return &dto.UpdatePhotoRequest{ID: in.ItemID, Tags: in.Tags, UpdateMode: dto.UpdateModeAddTags}, nil
	case MutationRemoveTag:
		return &dto.UpdatePhotoRequest{ID: in.ItemID, Tags: in.Tags, UpdateMode: dto.UpdateModeRemoveTag}, nil
	case MutationRotateImage:
		return &dto.UpdatePhotoRequest{
			ID:           in.ItemID,
			Tags:         []string{},
			UpdateMode:   dto.UpdateModeRotateImage,
			UpdateParams: map[string]interface{}{"rotation_degrees": in.RotationDegrees},
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown mutation kind %q", in.Kind))
	}
}

// HandleProcessPhotos fires the server-side batch processing trigger.
func (e *Engine) HandleProcessPhotos(flags api.ProcessFlags) {
	e.async(func() { _ = e.processPhotos(context.Background(), flags) })
}

// ProcessPhotos is the synchronous form of HandleProcessPhotos.
func (e *Engine) ProcessPhotos(ctx context.Context, flags api.ProcessFlags) error {
	return e.processPhotos(ctx, flags)
}

func (e *Engine) processPhotos(ctx context.Context, flags api.ProcessFlags) error {
	if !e.gate.Authenticated() {
		e.status.set("Please log in first", ClassError)
		return appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}

	_, err := e.client.Execute(ctx, api.OpMutateProcessing, api.Params{Flags: flags})
	if err != nil {
		if appErrors.IsCancelled(err) {
			return nil
		}
		e.status.set("Processing could not be started", ClassError)
		return err
	}

	e.status.set("Processing started", ClassSuccess)
	return nil
}

// HandlePruneTags asks the server to drop orphaned records and tags.
func (e *Engine) HandlePruneTags() {
	e.HandleProcessPhotos(api.ProcessFlags{CleanDB: true})
}

// TagSuggestions returns autocomplete candidates for term, served from the
// local cache when fresh.
func (e *Engine) TagSuggestions(ctx context.Context, term string) ([]string, error) {
	if !e.gate.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	if !e.ValidateSearchTerm(term) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term contains disallowed characters")
	}

	if e.suggestions != nil {
		if tags, ok := e.suggestions.Get(term); ok {
			return tags, nil
		}
	}

	res, err := e.client.Execute(ctx, api.OpFetchSuggestions, api.Params{Term: term})
	if err != nil {
		if appErrors.IsCancelled(err) {
			return nil, appErrors.Clone(appErrors.ErrCancelled, "")
		}
		return nil, err
	}

	var page dto.TagListResponse
	if err := json.Unmarshal(res.Payload, &page); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decoding tag suggestions")
	}

	terms := page.Terms()
	if e.suggestions != nil {
		e.suggestions.Set(term, terms)
	}
	return terms, nil
}

// SearchAndReplace rewrites a tag across every record matching searchTerm:
// each matched item gets replaceTerm added and searchTerm removed, one
// confirmed mutation at a time. Returns the number of items touched.
func (e *Engine) SearchAndReplace(ctx context.Context, searchTerm, replaceTerm string) (int, error) {
	if !e.gate.Authenticated() {
		return 0, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	if !e.ValidateSearchTerm(searchTerm) || !e.ValidateSearchTerm(replaceTerm) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "terms contain disallowed characters")
	}
	if searchTerm == "" || replaceTerm == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "both terms are required")
	}

	items, err := e.collectMatches(ctx, searchTerm)
	if err != nil {
		e.status.set("Search and replace failed", ClassError)
		return 0, err
	}

	touched := 0
	for _, item := range items {
		if !hasTag(item.Tags, searchTerm) {
			continue
		}
		if err := e.replaceTagOnItem(ctx, item.ID, searchTerm, replaceTerm); err != nil {
			e.status.set(fmt.Sprintf("Search and replace stopped after %d item(s)", touched), ClassError)
			return touched, err
		}
		touched++
	}

	e.status.set(fmt.Sprintf("Replaced %q with %q on %d item(s)", searchTerm, replaceTerm, touched), ClassSuccess)
	if e.suggestions != nil {
		e.suggestions.Purge()
	}
	return touched, nil
}

// collectMatches pages through the full result set for term, following the
// server's next cursors. The record store is not involved; this is a
// read-only sweep feeding the batch mutation.
func (e *Engine) collectMatches(ctx context.Context, term string) ([]models.CatalogItem, error) {
	meta := models.RecordMeta{Page: 1, Limit: e.cfg.PageLimit, Search: term}
	params := api.Params{Meta: &meta}

	var items []models.CatalogItem
	for {
		res, err := e.client.Execute(ctx, api.OpFetchList, params)
		if err != nil {
			return nil, err
		}

		var page dto.PhotoListResponse
		if err := json.Unmarshal(res.Payload, &page); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decoding photo list")
		}
		items = append(items, page.Results...)

		if page.Next == nil || *page.Next == "" {
			return items, nil
		}
		params = api.Params{URL: *page.Next}
	}
}

// replaceTagOnItem applies add-then-remove so a transient failure leaves the
// item with both tags rather than neither.
func (e *Engine) replaceTagOnItem(ctx context.Context, id int64, oldTag, newTag string) error {
	add := &dto.UpdatePhotoRequest{ID: id, Tags: []string{newTag}, UpdateMode: dto.UpdateModeAddTags}
	if _, err := e.client.Execute(ctx, api.OpMutateItem, api.Params{Update: add}); err != nil {
		return err
	}

	remove := &dto.UpdatePhotoRequest{ID: id, Tags: []string{oldTag}, UpdateMode: dto.UpdateModeRemoveTag}
	res, err := e.client.Execute(ctx, api.OpMutateItem, api.Params{Update: remove})
	if err != nil {
		return err
	}

	// Items on the current page get their confirmed state merged in; items
	// beyond it simply are not present and that is fine.
	if patch, perr := dto.ParseItemPatch(res.Payload); perr == nil {
		if merr := e.store.ApplyItemPatch(patch, time.Now()); merr != nil && !isStale(merr) {
			return merr
		}
	}
	return nil
}

func isStale(err error) bool {
	e := appErrors.FromError(err)
	return e != nil && e.Code == appErrors.ErrStaleItem.Code
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
