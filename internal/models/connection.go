package models

// UserConnection records an accepted connection between two users. Exactly
// one row exists per connected pair; UserID always holds the
// lexicographically lower id so the pair key is canonical.
type UserConnection struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_connection_pair" json:"user_id"`
	PeerID string `gorm:"type:uuid;not null;uniqueIndex:idx_connection_pair" json:"peer_id"`

	RequestID *string `gorm:"type:uuid" json:"request_id,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Peer *User `gorm:"foreignKey:PeerID" json:"peer,omitempty"`
}

// CanonicalPair orders two user ids so (a,b) and (b,a) map to one row.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
