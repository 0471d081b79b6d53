package domain

import "time"

// Video is a row of the internal video library.
type Video struct {
	ID              string      `gorm:"type:text;primaryKey" json:"id"`
	OrganizationID  string      `gorm:"type:text;not null;index:idx_videos_org_created" json:"organization_id"`
	Title           string      `gorm:"type:text;not null" json:"title"`
	Description     string      `gorm:"type:text" json:"description,omitempty"`
	Transcript      string      `gorm:"type:text" json:"transcript,omitempty"`
	ThumbnailURL    string      `gorm:"type:text" json:"thumbnail_url,omitempty"`
	VideoURL        string      `gorm:"type:text" json:"video_url,omitempty"`
	DurationSeconds int         `gorm:"default:0" json:"duration_seconds"`
	Status          string      `gorm:"type:text;default:ready" json:"status"`
	UploaderID      string      `gorm:"type:text" json:"uploader_id,omitempty"`
	UploaderName    string      `gorm:"type:text" json:"uploader_name,omitempty"`
	UploaderEmail   string      `gorm:"type:text" json:"uploader_email,omitempty"`
	Tags            StringArray `gorm:"type:text" json:"tags"`
	CreatedAt       time.Time   `gorm:"index:idx_videos_org_created" json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Video.
func (Video) TableName() string {
	return "videos"
}
