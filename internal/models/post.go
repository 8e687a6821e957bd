package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostType classifies what a post announces.
type PostType string

const (
	PostTypeProduct          PostType = "product"
	PostTypeStory            PostType = "story"
	PostTypeLiveAnnouncement PostType = "live_announcement"
)

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeProduct, PostTypeStory, PostTypeLiveAnnouncement:
		return true
	}
	return false
}

// Post is a discovery-feed entry that buyers vote on to request a live session.
type Post struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	ProductID *uuid.UUID `gorm:"type:uuid;index" json:"product_id,omitempty"`
	Product   *Product   `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL" json:"product,omitempty"`
	Caption   string     `gorm:"type:text" json:"caption"`
	Media     RawJSON    `json:"media,omitempty"`
	Tags      RawJSON    `json:"tags,omitempty"`
	Type      PostType   `gorm:"size:32;not null;default:product" json:"type"`

	LikesCount    int `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount int `gorm:"not null;default:0" json:"comments_count"`
	SharesCount   int `gorm:"not null;default:0" json:"shares_count"`
	// VotesCount mirrors the number of live_session votes and is only written alongside a vote insert.
	VotesCount int  `gorm:"not null;default:0" json:"votes_count"`
	IsActive   bool `gorm:"not null;default:true;index" json:"is_active"`

	// ThresholdNotifiedAt latches the threshold-crossed notification until the post's session finishes.
	ThresholdNotifiedAt *time.Time `json:"threshold_notified_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
