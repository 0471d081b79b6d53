package domain

import "time"

// NotionPageHierarchy caches the parent link of a Notion object so selection
// filtering can walk ancestors without refetching.
type NotionPageHierarchy struct {
	SourceID   string    `gorm:"type:text;primaryKey" json:"source_id"`
	ObjectID   string    `gorm:"type:text;primaryKey" json:"object_id"`
	ObjectType string    `gorm:"type:text" json:"object_type"`
	ParentID   string    `gorm:"type:text;index" json:"parent_id,omitempty"`
	ParentType string    `gorm:"type:text" json:"parent_type,omitempty"`
	Title      string    `gorm:"type:text" json:"title,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for NotionPageHierarchy.
func (NotionPageHierarchy) TableName() string {
	return "notion_page_hierarchy"
}

// NotionDatabaseSchema caches a Notion database's title and property types.
type NotionDatabaseSchema struct {
	SourceID      string    `gorm:"type:text;primaryKey" json:"source_id"`
	DatabaseID    string    `gorm:"type:text;primaryKey" json:"database_id"`
	Title         string    `gorm:"type:text" json:"title"`
	PropertyTypes JSONMap   `gorm:"type:text" json:"property_types"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for NotionDatabaseSchema.
func (NotionDatabaseSchema) TableName() string {
	return "notion_database_schemas"
}
