package models

// Group is a topical community posts can be filed under. Groups are
// addressed by slug and listed by title.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"size:1000" json:"description"`
}
