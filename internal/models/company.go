package models

// CompanyStatus tracks whether a partner company account is live.
type CompanyStatus string

const (
	CompanyStatusActive CompanyStatus = "active"
	CompanyStatusClosed CompanyStatus = "closed"
)

// Terminal reports whether the company no longer counts toward workload.
func (s CompanyStatus) Terminal() bool {
	return s == CompanyStatusClosed
}

// Company is a partner company account. Active companies count toward their
// manager's workload alongside leads.
type Company struct {
	BaseModel

	Name   string        `gorm:"not null;uniqueIndex" json:"name"`
	CIF    string        `json:"cif"`
	Sector string        `json:"sector"`
	Status CompanyStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`

	AssignedToID *string `gorm:"type:uuid;index" json:"assigned_to_id"`
	AssignedTo   *User   `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`

	Leads []Lead `gorm:"foreignKey:CompanyID" json:"leads,omitempty"`
}
