package models

import (
	"time"
)

// LeadPriority reflects how important a lead is to the sales pipeline.
type LeadPriority string

const (
	PriorityLow    LeadPriority = "low"
	PriorityMedium LeadPriority = "medium"
	PriorityHigh   LeadPriority = "high"
)

// Valid reports whether the priority is one of the known tiers.
func (p LeadPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// LeadStatus is the pipeline stage of a lead.
type LeadStatus string

const (
	LeadStatusNew           LeadStatus = "new"
	LeadStatusContacted     LeadStatus = "contacted"
	LeadStatusQualified     LeadStatus = "qualified"
	LeadStatusNegotiation   LeadStatus = "negotiation"
	LeadStatusProposal      LeadStatus = "proposal"
	LeadStatusDocumentation LeadStatus = "documentation"
	LeadStatusWon           LeadStatus = "won"
	LeadStatusLost          LeadStatus = "lost"
)

// leadTransitions is the explicit pipeline transition table. A lead may be
// lost from any live stage; won only after documentation.
var leadTransitions = map[LeadStatus][]LeadStatus{
	LeadStatusNew:           {LeadStatusContacted, LeadStatusLost},
	LeadStatusContacted:     {LeadStatusQualified, LeadStatusLost},
	LeadStatusQualified:     {LeadStatusNegotiation, LeadStatusLost},
	LeadStatusNegotiation:   {LeadStatusProposal, LeadStatusLost},
	LeadStatusProposal:      {LeadStatusDocumentation, LeadStatusLost},
	LeadStatusDocumentation: {LeadStatusWon, LeadStatusLost},
	LeadStatusWon:           {},
	LeadStatusLost:          {},
}

// Valid reports whether the status is a known pipeline stage.
func (s LeadStatus) Valid() bool {
	_, ok := leadTransitions[s]
	return ok
}

// Terminal reports whether the stage closes the lead.
func (s LeadStatus) Terminal() bool {
	return s == LeadStatusWon || s == LeadStatusLost
}

// CanTransitionTo reports whether moving to the target stage is allowed.
func (s LeadStatus) CanTransitionTo(target LeadStatus) bool {
	for _, next := range leadTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Lead is a prospective client company tracked through the sales pipeline.
// At most one manager owns a lead at any time; reassignment is a single
// atomic swap of AssignedToID.
type Lead struct {
	BaseModel

	Name         string `gorm:"not null;index" json:"name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`

	Priority LeadPriority `gorm:"type:varchar(16);not null;default:'medium';index" json:"priority"`
	Status   LeadStatus   `gorm:"type:varchar(32);not null;default:'new';index" json:"status"`

	EstimatedValue  float64    `json:"estimated_value"`
	EstimatedEffort float64    `json:"estimated_effort"`
	DueDate         *time.Time `gorm:"index" json:"due_date,omitempty"`

	AssignedToID *string `gorm:"type:uuid;index" json:"assigned_to_id"`
	AssignedTo   *User   `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`

	CompanyID *string  `gorm:"type:uuid;index" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	// UrgencyScore is derived from priority, due date, status, and effort.
	// It is recomputed and persisted atomically with any edit that touches
	// those fields.
	UrgencyScore float64 `gorm:"index" json:"urgency_score"`
}
