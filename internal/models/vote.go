package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VoteType distinguishes independent ballots on the same post.
type VoteType string

const (
	// VoteTypeLiveSession requests a live shopping session and feeds Post.VotesCount.
	VoteTypeLiveSession    VoteType = "live_session"
	VoteTypeProductFeature VoteType = "product_feature"
	VoteTypeGeneral        VoteType = "general"
)

// Valid reports whether t is a known vote kind.
func (t VoteType) Valid() bool {
	switch t {
	case VoteTypeLiveSession, VoteTypeProductFeature, VoteTypeGeneral:
		return true
	}
	return false
}

// Vote is one ballot. The unique index makes (user, post, kind) single-use.
type Vote struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_post_type,priority:1" json:"user_id"`
	User     *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	PostID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_post_type,priority:2;index:idx_votes_post_type_voted_at,priority:1" json:"post_id"`
	Post     *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	VoteType VoteType  `gorm:"size:32;not null;default:live_session;uniqueIndex:idx_votes_user_post_type,priority:3;index:idx_votes_post_type_voted_at,priority:2" json:"vote_type"`
	Metadata RawJSON   `json:"metadata,omitempty"`
	VotedAt  time.Time `gorm:"not null;index:idx_votes_post_type_voted_at,priority:3" json:"voted_at"`
}

// BeforeCreate assigns a UUID and vote time when the caller did not.
func (v *Vote) BeforeCreate(_ *gorm.DB) error {
	ensureID(&v.ID)
	if v.VotedAt.IsZero() {
		v.VotedAt = time.Now().UTC()
	}
	return nil
}

// Voter is one row of a post's voter listing.
type Voter struct {
	UserID          uuid.UUID `json:"user_id"`
	Username        string    `json:"username"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	VotedAt         time.Time `json:"voted_at"`
	VoteID          uuid.UUID `json:"-"`
}

// VoteResult is returned to the caller of a successful cast.
type VoteResult struct {
	TotalVotes       int  `json:"totalVotes"`
	ThresholdReached bool `json:"thresholdReached"`
	// ThresholdCrossed is true only for the cast that claimed the post's notification latch.
	ThresholdCrossed bool `json:"-"`
}
