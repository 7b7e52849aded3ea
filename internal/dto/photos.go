package dto

import (
	"encoding/json"

	"github.com/zaziork/photocat-client/internal/models"
)

// Update modes accepted by PATCH /photos/{id}/.
const (
	UpdateModeAddTags     = "add_tags"
	UpdateModeRemoveTag   = "remove_tag"
	UpdateModeRotateImage = "rotate_image"
)

// PhotoListResponse is one page of the photo list endpoint.
type PhotoListResponse struct {
	Count    int                  `json:"count"`
	Next     *string              `json:"next"`
	Previous *string              `json:"previous"`
	Results  []models.CatalogItem `json:"results"`
}

// UpdatePhotoRequest is the PATCH body for a single-item mutation.
type UpdatePhotoRequest struct {
	ID           int64                  `json:"id"`
	Tags         []string               `json:"tags"`
	UpdateMode   string                 `json:"update_mode"`
	UpdateParams map[string]interface{} `json:"update_params,omitempty"`
}

// ItemPatch is the validated subset of an item-mutation response that may be
// merged into store state. Pointer fields distinguish "absent" from zero so
// the merge only touches fields the server actually returned; anything the
// server sends outside this shape is dropped, never spread into state.
type ItemPatch struct {
	ID             int64     `json:"id"`
	FileName       *string   `json:"file_name"`
	FileFormat     *string   `json:"file_format"`
	Tags           *[]string `json:"tags"`
	RecordUpdated  *string   `json:"record_updated"`
	PublicImgURL   *string   `json:"public_img_url"`
	PublicImgTnURL *string   `json:"public_img_tn_url"`
	UserIsAdmin    *bool     `json:"user_is_admin"`
}

// ParseItemPatch decodes an update response into the known field set.
func ParseItemPatch(payload []byte) (*ItemPatch, error) {
	var patch ItemPatch
	if err := json.Unmarshal(payload, &patch); err != nil {
		return nil, err
	}
	return &patch, nil
}
