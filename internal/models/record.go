package models

import "time"

// OrderDir values follow the API's order_by prefix convention.
const (
	OrderAscending  = ""
	OrderDescending = "-"
)

// RecordMeta holds the pagination, ordering and search state the next list
// request is built from. Previous/Next carry server-issued cursor URLs and are
// reused verbatim for page navigation when present.
type RecordMeta struct {
	Page          int        `json:"page"`
	Limit         int        `json:"limit"`
	OrderBy       string     `json:"order_by"`
	OrderDir      string     `json:"order_dir"`
	Search        string     `json:"search"`
	Previous      *string    `json:"previous"`
	Next          *string    `json:"next"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
}

// CatalogItem is one photo record as returned by the API. The server owns
// identity and the per-item admin flag; neither is ever set client-side.
type CatalogItem struct {
	ID             int64    `json:"id"`
	Owner          string   `json:"owner"`
	FileName       string   `json:"file_name"`
	FileFormat     string   `json:"file_format"`
	Tags           []string `json:"tags"`
	RecordUpdated  string   `json:"record_updated"`
	PublicImgURL   string   `json:"public_img_url"`
	PublicImgTnURL string   `json:"public_img_tn_url"`
	UUID           string   `json:"uuid"`
	UserIsAdmin    bool     `json:"user_is_admin"`

	// MutatedAt is local bookkeeping: when a confirmed item mutation last
	// landed. Used to keep a slow list refresh from clobbering newer data.
	MutatedAt time.Time `json:"-"`
}

// Clone returns a deep copy of the item.
func (c CatalogItem) Clone() CatalogItem {
	out := c
	if c.Tags != nil {
		out.Tags = make([]string, len(c.Tags))
		copy(out.Tags, c.Tags)
	}
	return out
}

// Record is the root synchronized state: one page of results plus the meta
// describing how it was (and will be) fetched.
type Record struct {
	Meta    RecordMeta    `json:"meta"`
	Results []CatalogItem `json:"results"`

	// Revision increases on every store publish. Snapshot consumers use it
	// to tell stale reads apart; it never goes over the wire.
	Revision uint64 `json:"-"`
}

// Clone returns a deep copy of the record so published snapshots are immune
// to later mutation by the producer.
func (r Record) Clone() Record {
	out := r
	if r.Results != nil {
		out.Results = make([]CatalogItem, len(r.Results))
		for i, item := range r.Results {
			out.Results[i] = item.Clone()
		}
	}
	if r.Meta.Previous != nil {
		prev := *r.Meta.Previous
		out.Meta.Previous = &prev
	}
	if r.Meta.Next != nil {
		next := *r.Meta.Next
		out.Meta.Next = &next
	}
	if r.Meta.LastFetchedAt != nil {
		ts := *r.Meta.LastFetchedAt
		out.Meta.LastFetchedAt = &ts
	}
	return out
}

// FindItem returns the index of the item with the given id, or -1.
// Lookup is always by identity, never by position.
func (r Record) FindItem(id int64) int {
	for i := range r.Results {
		if r.Results[i].ID == id {
			return i
		}
	}
	return -1
}

// AuthMeta describes the session as the engine currently understands it.
// IsAdmin is derived from the per-item admin flag the server returns with
// each result page.
type AuthMeta struct {
	Authenticated bool `json:"authenticated"`
	IsAdmin       bool `json:"is_admin"`
}
