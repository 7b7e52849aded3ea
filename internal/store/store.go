package store

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zaziork/photocat-client/internal/dto"
	"github.com/zaziork/photocat-client/internal/models"
	appErrors "github.com/zaziork/photocat-client/pkg/errors"
)

// Subscriber receives each published record snapshot.
type Subscriber func(models.Record)

// Store is the single source of truth for the catalog record and auth meta.
// All writes funnel through one internal setter so the page-floor invariant
// and admin-flag derivation can never be bypassed. Published snapshots are
// deep copies; consumers never observe in-place mutation.
type Store struct {
	mu          sync.RWMutex
	record      models.Record
	auth        models.AuthMeta
	revision    uint64
	subscribers []Subscriber
	logger      *zap.Logger

	// lastIssuedAt is the issue time of the last applied list fetch. A
	// response issued earlier must never land after one issued later, even
	// if their completions race.
	lastIssuedAt time.Time
}

// New creates a Store seeded with the session defaults: page 1, empty
// results, empty search.
func New(meta models.RecordMeta, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if meta.Page < 1 {
		meta.Page = 1
	}
	return &Store{
		record: models.Record{Meta: meta, Results: []models.CatalogItem{}},
		logger: logger,
	}
}

// Subscribe registers fn to receive every published snapshot. The current
// snapshot is not replayed; subscribers see the next publish onward.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current record.
func (s *Store) Snapshot() models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.Clone()
}

// AuthMeta returns the current auth view.
func (s *Store) AuthMeta() models.AuthMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

// SetAuthenticated flips the authenticated flag. Admin status is left alone;
// it is server-derived and only changes with result data.
func (s *Store) SetAuthenticated(v bool) {
	s.mu.Lock()
	s.auth.Authenticated = v
	s.mu.Unlock()
}

// SetRecord replaces the record. The only legal full-record mutation entry
// point besides MergeFetched, which funnels into the same internal setter.
func (s *Store) SetRecord(rec models.Record) {
	s.mu.Lock()
	s.setRecordLocked(rec)
	snapshot, subs := s.record.Clone(), s.subscribersLocked()
	s.mu.Unlock()
	publish(snapshot, subs)
}

// MergeFetched applies a list-fetch response. issuedAt is the moment the
// request was sent; an item mutated locally after that moment keeps its
// current fields rather than being rolled back by the older server view.
// A whole response issued before the last applied one is dropped outright.
// The next refresh converges.
func (s *Store) MergeFetched(rec models.Record, issuedAt time.Time) {
	s.mu.Lock()
	if issuedAt.Before(s.lastIssuedAt) {
		s.mu.Unlock()
		s.logger.Debug("dropping out-of-order list response")
		return
	}
	s.lastIssuedAt = issuedAt

	for i := range rec.Results {
		idx := s.record.FindItem(rec.Results[i].ID)
		if idx < 0 {
			continue
		}
		existing := s.record.Results[idx]
		if !existing.MutatedAt.IsZero() && existing.MutatedAt.After(issuedAt) {
			rec.Results[i] = existing.Clone()
		}
	}
	s.setRecordLocked(rec)
	snapshot, subs := s.record.Clone(), s.subscribersLocked()
	s.mu.Unlock()
	publish(snapshot, subs)
}

// ApplyItemPatch merges a confirmed item-mutation response into the matching
// item by identity. Unmatched ids report STALE_ITEM and leave state alone.
func (s *Store) ApplyItemPatch(patch *dto.ItemPatch, mutatedAt time.Time) error {
	if patch == nil {
		return appErrors.Clone(appErrors.ErrValidation, "empty item patch")
	}

	s.mu.Lock()
	idx := s.record.FindItem(patch.ID)
	if idx < 0 {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrStaleItem, "")
	}

	item := s.record.Results[idx].Clone()
	mergePatch(&item, patch)
	item.MutatedAt = mutatedAt
	s.record.Results[idx] = item

	s.revision++
	s.record.Revision = s.revision
	snapshot, subs := s.record.Clone(), s.subscribersLocked()
	s.mu.Unlock()
	publish(snapshot, subs)
	return nil
}

// setRecordLocked normalizes and installs rec. Callers hold s.mu.
func (s *Store) setRecordLocked(rec models.Record) {
	if rec.Meta.Page < 1 {
		rec.Meta.Page = 1
	}
	if rec.Results == nil {
		rec.Results = []models.CatalogItem{}
	}

	// Admin status comes from the first result row. An empty page leaves it
	// unchanged so a no-match search does not flicker admin controls away.
	if len(rec.Results) > 0 {
		if isAdmin := rec.Results[0].UserIsAdmin; isAdmin != s.auth.IsAdmin {
			s.auth.IsAdmin = isAdmin
			s.logger.Debug("admin status changed", zap.Bool("is_admin", isAdmin))
		}
	}

	s.revision++
	rec.Revision = s.revision
	s.record = rec
}

func (s *Store) subscribersLocked() []Subscriber {
	subs := make([]Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	return subs
}

func publish(snapshot models.Record, subs []Subscriber) {
	for _, fn := range subs {
		fn(snapshot)
	}
}

// mergePatch copies only the fields the server returned into item. Fields
// outside the known set were already dropped at decode time.
func mergePatch(item *models.CatalogItem, patch *dto.ItemPatch) {
	if patch.FileName != nil {
		item.FileName = *patch.FileName
	}
	if patch.FileFormat != nil {
		item.FileFormat = *patch.FileFormat
	}
	if patch.Tags != nil {
		tags := make([]string, len(*patch.Tags))
		copy(tags, *patch.Tags)
		item.Tags = tags
	}
	if patch.RecordUpdated != nil {
		item.RecordUpdated = *patch.RecordUpdated
	}
	if patch.PublicImgURL != nil {
		item.PublicImgURL = *patch.PublicImgURL
	}
	if patch.PublicImgTnURL != nil {
		item.PublicImgTnURL = *patch.PublicImgTnURL
	}
	if patch.UserIsAdmin != nil {
		item.UserIsAdmin = *patch.UserIsAdmin
	}
}
