package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LiveSessionStatus is a state of the live session lifecycle.
type LiveSessionStatus string

const (
	// LiveSessionScheduled is the initial state of every session.
	LiveSessionScheduled LiveSessionStatus = "scheduled"
	// LiveSessionLive means the seller is broadcasting.
	LiveSessionLive LiveSessionStatus = "live"
	// LiveSessionEnded is terminal.
	LiveSessionEnded LiveSessionStatus = "ended"
	// LiveSessionCancelled is terminal.
	LiveSessionCancelled LiveSessionStatus = "cancelled"
)

var liveSessionTransitions = map[LiveSessionStatus][]LiveSessionStatus{
	LiveSessionScheduled: {LiveSessionLive, LiveSessionCancelled},
	LiveSessionLive:      {LiveSessionEnded, LiveSessionCancelled},
}

// Valid reports whether s is a known status.
func (s LiveSessionStatus) Valid() bool {
	switch s {
	case LiveSessionScheduled, LiveSessionLive, LiveSessionEnded, LiveSessionCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s LiveSessionStatus) IsTerminal() bool {
	return len(liveSessionTransitions[s]) == 0
}

// IsActive reports whether a session in s blocks a new threshold notification for its post.
func (s LiveSessionStatus) IsActive() bool {
	return s == LiveSessionScheduled || s == LiveSessionLive
}

// CanTransitionTo reports whether the lifecycle allows s -> next.
func (s LiveSessionStatus) CanTransitionTo(next LiveSessionStatus) bool {
	for _, allowed := range liveSessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SourcesFor lists the states from which next may be entered.
func SourcesFor(next LiveSessionStatus) []LiveSessionStatus {
	var out []LiveSessionStatus
	for _, from := range []LiveSessionStatus{LiveSessionScheduled, LiveSessionLive} {
		if from.CanTransitionTo(next) {
			out = append(out, from)
		}
	}
	return out
}

// LiveSession is one live shopping event for a seller's post.
type LiveSession struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_live_sessions_seller_status,priority:1" json:"seller_id"`
	Seller      *User             `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"seller,omitempty"`
	PostID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_live_sessions_post_status,priority:1" json:"post_id"`
	Post        *Post             `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description,omitempty"`
	Status      LiveSessionStatus `gorm:"size:20;not null;default:scheduled;index:idx_live_sessions_seller_status,priority:2;index:idx_live_sessions_post_status,priority:2" json:"status"`

	ScheduledStartTime time.Time  `gorm:"not null" json:"scheduled_start_time"`
	ActualStartTime    *time.Time `json:"actual_start_time,omitempty"`
	EndTime            *time.Time `json:"end_time,omitempty"`

	// VotesRequired is fixed at creation.
	VotesRequired int `gorm:"not null;default:10" json:"votes_required"`
	// TotalVotes is the post tally when the session was created.
	TotalVotes int `gorm:"not null;default:0" json:"total_votes"`

	ViewersCount int     `gorm:"not null;default:0" json:"viewers_count"`
	PeakViewers  int     `gorm:"not null;default:0" json:"peak_viewers"`
	TotalOrders  int     `gorm:"not null;default:0" json:"total_orders"`
	TotalRevenue float64 `gorm:"type:decimal(12,2);not null;default:0" json:"total_revenue"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (s *LiveSession) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// LiveSessionSummary is a listing row joined with seller and post display fields.
type LiveSessionSummary struct {
	LiveSession
	SellerUsername string  `json:"seller_username"`
	SellerImage    string  `json:"seller_image,omitempty"`
	Caption        string  `json:"caption"`
	Media          RawJSON `json:"media,omitempty"`
}
