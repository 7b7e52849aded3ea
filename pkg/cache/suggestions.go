package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/zaziork/photocat-client/pkg/metrics"
)

// Suggestions is a per-process LRU of tag autocomplete responses keyed by
// search term. Entries expire after the configured TTL so new tags created
// server-side eventually show up.
type Suggestions struct {
	lru *expirable.LRU[string, []string]
}

// NewSuggestions builds the cache. Size and TTL come from configuration;
// non-positive values fall back to safe defaults.
func NewSuggestions(size int, ttl time.Duration) *Suggestions {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Suggestions{lru: expirable.NewLRU[string, []string](size, nil, ttl)}
}

// Get returns the cached suggestion list for term, if present.
func (s *Suggestions) Get(term string) ([]string, bool) {
	tags, ok := s.lru.Get(normalise(term))
	if ok {
		metrics.ObserveCacheHit()
		return tags, true
	}
	metrics.ObserveCacheMiss()
	return nil, false
}

// Set stores the suggestion list for term.
func (s *Suggestions) Set(term string, tags []string) {
	s.lru.Add(normalise(term), tags)
}

// Purge drops every cached entry. Called after mutations that change tags.
func (s *Suggestions) Purge() {
	s.lru.Purge()
}

func normalise(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
