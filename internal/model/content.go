package model

import "time"

type ContentType string

const (
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
)

func (t ContentType) IsValid() bool {
	switch t {
	case ContentImage, ContentVideo:
		return true
	}
	return false
}

type Content struct {
	ID          string      `db:"id"          json:"id"`
	Name        string      `db:"name"        json:"name"`
	Description *string     `db:"description" json:"description"`
	Type        ContentType `db:"type"        json:"type"`
	FilePath    string      `db:"file_path"   json:"filePath"`
	FileSize    int64       `db:"file_size"   json:"fileSize"`
	Duration    *int        `db:"duration"    json:"duration"` // seconds
	StartDate   *time.Time  `db:"start_date"  json:"startDate"`
	EndDate     *time.Time  `db:"end_date"    json:"endDate"`
	OwnerID     string      `db:"owner_id"    json:"ownerId"`
	CreatedAt   time.Time   `db:"created_at"  json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at"  json:"updatedAt"`
}

// ActiveAt reports whether t falls inside [StartDate, EndDate). Open ends are unbounded.
func (c *Content) ActiveAt(t time.Time) bool {
	if c.StartDate != nil && t.Before(*c.StartDate) {
		return false
	}
	if c.EndDate != nil && !t.Before(*c.EndDate) {
		return false
	}
	return true
}

// ContentFilter values are OR-ed within a field and AND-ed across fields.
type ContentFilter struct {
	Names []string
	Types []ContentType
}

type ContentPatch struct {
	Name        Optional[string]    `json:"name"`
	Description Optional[string]    `json:"description"`
	Duration    Optional[int]       `json:"duration"`
	StartDate   Optional[Timestamp] `json:"startDate"`
	EndDate     Optional[Timestamp] `json:"endDate"`
}
