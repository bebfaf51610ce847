package store

import "time"

// Profile is the per-identity learning-style document. It is created on
// first selection and merge-updated on re-selection, never deleted.
type Profile struct {
	Identity     string    `json:"identity"`
	MBTICategory string    `json:"mbti_category"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Exchange is one persisted prompt/response record. Written exactly once
// after a successful gateway call, immutable thereafter.
type Exchange struct {
	ID           string    `json:"id"` // Using UUID for external ID
	Identity     string    `json:"-"`
	Mode         string    `json:"mode"`
	PromptText   string    `json:"prompt_text"` // may be empty when an image was supplied
	ResponseText string    `json:"response_text"`
	MBTICategory *string   `json:"mbti_category"` // Nullable
	CreatedAt    time.Time `json:"created_at"`    // server-assigned
}
