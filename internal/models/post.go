package models

import "time"

// Post represents a published text entry. Deleting the author deletes the
// post; deleting its group only clears GroupID.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"pub_date"`
	UpdatedAt time.Time `json:"-"`
	UserID    uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	Image     string    `gorm:"size:255" json:"-"`
	Thumbnail string    `gorm:"size:255" json:"-"`
	// ImageURL and ThumbnailURL are resolved from storage keys at render time
	ImageURL     string `gorm:"-" json:"image_url,omitempty"`
	ThumbnailURL string `gorm:"-" json:"thumbnail_url,omitempty"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
}
