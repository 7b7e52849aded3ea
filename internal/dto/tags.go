package dto

// TagRecord is one tag row from the suggestion endpoint.
type TagRecord struct {
	ID    int64  `json:"id"`
	Tag   string `json:"tag"`
	Owner string `json:"owner"`
}

// TagListResponse is the paginated payload of GET /tags/?term=.
type TagListResponse struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  []TagRecord `json:"results"`
}

// Terms flattens the response into the suggestion strings the UI consumes.
func (r TagListResponse) Terms() []string {
	terms := make([]string, 0, len(r.Results))
	for _, rec := range r.Results {
		terms = append(terms, rec.Tag)
	}
	return terms
}
