package friend

import (
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Friendship is one relation between two users. A pair has at most one row,
// whichever direction the request went.
type Friendship struct {
	common.BaseModel
	RequesterID uuid.UUID `gorm:"type:uuid;not null;index" json:"requester_id"`
	AddresseeID uuid.UUID `gorm:"type:uuid;not null;index" json:"addressee_id"`
	Status      string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
}

func (Friendship) TableName() string {
	return "friendships"
}

// Other returns the participant that is not userID.
func (f *Friendship) Other(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// SendRequest is the body of POST /friends/requests.
type SendRequest struct {
	Username string `json:"username" binding:"required"`
}

// Entry is one row of the friends overview.
type Entry struct {
	FriendshipID uuid.UUID          `json:"friendship_id"`
	User         shared.UserSummary `json:"user"`
	Status       string             `json:"status"`
	Since        string             `json:"since"`
}

// Overview is the response of GET /friends.
type Overview struct {
	Friends  []Entry `json:"friends"`
	Incoming []Entry `json:"incoming"`
	Outgoing []Entry `json:"outgoing"`
}
