package models

import (
	"fmt"
	"time"
)

// RequestKind distinguishes the three request flavours sharing one lifecycle.
type RequestKind string

const (
	RequestConnection  RequestKind = "connection"
	RequestGroupJoin   RequestKind = "group_join"
	RequestGroupInvite RequestKind = "group_invite"
)

// Valid reports whether the kind is known.
func (k RequestKind) Valid() bool {
	switch k {
	case RequestConnection, RequestGroupJoin, RequestGroupInvite:
		return true
	}
	return false
}

// RequestStatus is the lifecycle state of a request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
	RequestExpired   RequestStatus = "expired"
)

// Terminal reports whether the status is final. Terminal states are immutable.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestApproved, RequestRejected, RequestCancelled, RequestExpired:
		return true
	}
	return false
}

// Request is a generic pending-approval record: a connection request, a group
// join request, or a group invitation. Created PENDING, it takes exactly one
// terminal transition.
type Request struct {
	BaseModel

	Kind        RequestKind `gorm:"type:varchar(32);not null;index" json:"kind"`
	RequesterID string      `gorm:"type:uuid;not null;index" json:"requester_id"`

	// TargetUserID is set for connection requests and invitations; GroupID
	// for join requests and invitations.
	TargetUserID *string `gorm:"type:uuid;index" json:"target_user_id,omitempty"`
	GroupID      *string `gorm:"type:uuid;index" json:"group_id,omitempty"`

	Message string        `json:"message"`
	Status  RequestStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	// PendingKey holds the canonical pair key while the request is PENDING
	// and is cleared on any terminal transition. The unique index on it is
	// what makes at-most-one-pending per pair hold under concurrent writers.
	PendingKey *string `gorm:"uniqueIndex" json:"-"`

	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`

	ReviewedBy *string    `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewNote string     `json:"review_note"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	Requester *User  `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Target    *User  `gorm:"foreignKey:TargetUserID" json:"target,omitempty"`
	Group     *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

// PairKey derives the canonical pending-uniqueness key for the request.
// Connection pairs are order-independent so crossing requests collide too.
func (r *Request) PairKey() string {
	switch r.Kind {
	case RequestConnection:
		if r.TargetUserID == nil {
			return ""
		}
		a, b := CanonicalPair(r.RequesterID, *r.TargetUserID)
		return fmt.Sprintf("%s:%s:%s", r.Kind, a, b)
	case RequestGroupJoin:
		if r.GroupID == nil {
			return ""
		}
		return fmt.Sprintf("%s:%s:%s", r.Kind, r.RequesterID, *r.GroupID)
	case RequestGroupInvite:
		if r.GroupID == nil || r.TargetUserID == nil {
			return ""
		}
		return fmt.Sprintf("%s:%s:%s", r.Kind, *r.TargetUserID, *r.GroupID)
	}
	return ""
}
