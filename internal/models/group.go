package models

// GroupPrivacy controls who can discover and join a group.
type GroupPrivacy string

const (
	GroupPublic  GroupPrivacy = "public"
	GroupPrivate GroupPrivacy = "private"
)

// Group is a community space users join via approved requests or invitations.
type Group struct {
	BaseModel

	Name        string       `gorm:"not null;uniqueIndex" json:"name"`
	Description string       `json:"description"`
	Privacy     GroupPrivacy `gorm:"type:varchar(16);not null;default:'public'" json:"privacy"`

	CategoryID *string   `gorm:"type:uuid;index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	CreatedBy string `gorm:"type:uuid" json:"created_by"`

	Members []GroupMembership `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

// Category classifies groups. Sensitive categories force member privacy
// defaults through the ForceHide flags when a membership is created.
type Category struct {
	BaseModel

	Name      string `gorm:"not null;uniqueIndex" json:"name"`
	Sensitive bool   `gorm:"default:false" json:"sensitive"`

	ForceHideEmail    bool `gorm:"default:false" json:"force_hide_email"`
	ForceHidePhone    bool `gorm:"default:false" json:"force_hide_phone"`
	ForceHideEmployer bool `gorm:"default:false" json:"force_hide_employer"`
}

// MembershipRole distinguishes plain members from group admins.
type MembershipRole string

const (
	MembershipMember MembershipRole = "member"
	MembershipAdmin  MembershipRole = "admin"
)

// GroupMembership links a user to a group. The Hide flags are set from the
// group's category at approval time and never relaxed automatically.
type GroupMembership struct {
	BaseModel

	GroupID string         `gorm:"type:uuid;not null;uniqueIndex:idx_group_member" json:"group_id"`
	UserID  string         `gorm:"type:uuid;not null;uniqueIndex:idx_group_member" json:"user_id"`
	Role    MembershipRole `gorm:"type:varchar(16);not null;default:'member'" json:"role"`

	HideEmail    bool `gorm:"default:false" json:"hide_email"`
	HidePhone    bool `gorm:"default:false" json:"hide_phone"`
	HideEmployer bool `gorm:"default:false" json:"hide_employer"`

	Group *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
