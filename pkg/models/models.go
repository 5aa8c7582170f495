package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* =============================== Enums ================================== */

// Role defines the type of user in the system.
type Role string

const (
	RoleAgent   Role = "agent"
	RoleManager Role = "manager"
)

// IndustrySegment is the business vertical a lead belongs to.
// Fixed at creation, never changed afterwards.
type IndustrySegment string

const (
	IndustryRealEstate       IndustrySegment = "real_estate"
	IndustryStockBroking     IndustrySegment = "stock_broking"
	IndustryBrokingFranchise IndustrySegment = "broking_franchise"
	IndustryInsurance        IndustrySegment = "insurance"
	IndustryLoans            IndustrySegment = "loans"
	IndustryEdutech          IndustrySegment = "edutech"
)

// LeadSource identifies the channel a lead came from.
type LeadSource string

const (
	SourceWebsite           LeadSource = "website"
	SourceGoogleAds         LeadSource = "google_ads"
	SourceFacebook          LeadSource = "facebook"
	SourceWhatsApp          LeadSource = "whatsapp"
	SourceReferral          LeadSource = "referral"
	SourcePortal99Acres     LeadSource = "portal_99acres"
	SourcePortalMagicbricks LeadSource = "portal_magicbricks"
	SourceOther             LeadSource = "other"
)

// LeadStatus defines funnel states for a lead.
type LeadStatus string

const (
	LeadNew           LeadStatus = "new"
	LeadContacted     LeadStatus = "contacted"
	LeadQualified     LeadStatus = "qualified"
	LeadDemoScheduled LeadStatus = "demo_scheduled"
	LeadProposalSent  LeadStatus = "proposal_sent"
	LeadConverted     LeadStatus = "converted"
	LeadNotInterested LeadStatus = "not_interested"
	LeadInvalid       LeadStatus = "invalid"
	LeadNurturing     LeadStatus = "nurturing"
)

// Terminal reports whether the lead can no longer move through the funnel.
func (s LeadStatus) Terminal() bool {
	return s == LeadConverted || s == LeadNotInterested || s == LeadInvalid
}

// BuyerIntent is a qualitative urgency classification, independent of status.
type BuyerIntent string

const (
	IntentHot  BuyerIntent = "hot"
	IntentWarm BuyerIntent = "warm"
	IntentCold BuyerIntent = "cold"
)

// LeadPriority orders leads inside an agent's queue.
type LeadPriority string

const (
	PriorityHigh   LeadPriority = "high"
	PriorityMedium LeadPriority = "medium"
	PriorityLow    LeadPriority = "low"
)

// CallOutcome is the agent-recorded result of a single call attempt.
type CallOutcome string

const (
	OutcomeInterested       CallOutcome = "interested"
	OutcomeNotInterested    CallOutcome = "not_interested"
	OutcomeFollowUpRequired CallOutcome = "follow_up_required"
	OutcomeDemoScheduled    CallOutcome = "demo_scheduled"
	OutcomeInvalidLead      CallOutcome = "invalid_lead"
)

// TaskStatus defines lifecycle states for a follow-up task.
// "overdue" is derived at read time and never persisted.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskOverdue    TaskStatus = "overdue"
)

/* =============================== Entities =============================== */

// Agent represents a sales agent or manager.
type Agent struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null" json:"role"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Lead is a prospective customer tracked through the sales funnel.
type Lead struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string          `gorm:"not null" json:"name"`
	Email      string          `json:"email"`
	Phone      string          `gorm:"not null;index" json:"phone"`
	Industry   IndustrySegment `gorm:"type:varchar(30);not null" json:"industry"`
	Source     LeadSource      `gorm:"type:varchar(30);default:'other'" json:"source"`
	Status     LeadStatus      `gorm:"type:varchar(20);default:'new';index" json:"status"`
	Intent     BuyerIntent     `gorm:"type:varchar(10);default:'warm'" json:"buyer_intent"`
	Priority   LeadPriority    `gorm:"type:varchar(10);default:'medium'" json:"priority"`
	Tags       []string        `gorm:"serializer:json" json:"tags"`
	Notes      string          `gorm:"type:text" json:"notes"`
	AssignedTo uuid.UUID       `gorm:"type:uuid;index" json:"assigned_to"`

	// Written by call logging only. FirstContactAt is set at most once.
	FirstContactAt *time.Time `json:"first_contact_at"`
	LastContactAt  *time.Time `json:"last_contact_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Details  []LeadDetail `json:"details,omitempty"`
	Tasks    []Task       `json:"tasks,omitempty"`
	CallLogs []CallLog    `json:"call_logs,omitempty"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// LeadDetail is a key/value sidecar for industry-specific intake fields
// (e.g. "budget_range" for real estate, "risk_appetite" for broking).
// Duplicated field names resolve as last write wins.
type LeadDetail struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID     uuid.UUID `gorm:"type:uuid;not null;index" json:"lead_id"`
	FieldName  string    `gorm:"type:varchar(60);not null" json:"field_name"`
	FieldValue string    `gorm:"type:text" json:"field_value"`
	CreatedAt  time.Time `json:"created_at"`
}

func (d *LeadDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Task is a scheduled follow-up owned by exactly one agent for one lead.
type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"lead_id"`
	AssignedTo  uuid.UUID  `gorm:"type:uuid;not null;index" json:"assigned_to"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	DueDate     *time.Time `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// EffectiveStatus returns the status as presented at read time: a task past
// its due date that isn't completed reads as "overdue" while the stored
// status stays whatever it was until an agent acts.
func (t Task) EffectiveStatus(now time.Time) TaskStatus {
	if t.Status != TaskCompleted && t.DueDate != nil && t.DueDate.Before(now) {
		return TaskOverdue
	}
	return t.Status
}

// CallLog is an append-only record of one call attempt. Once written it is
// never updated or deleted; the only later writes touch recording_url
// (attaching or removing the audio).
type CallLog struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID            uuid.UUID    `gorm:"type:uuid;not null;index" json:"lead_id"`
	AgentID           uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	CallDuration      int          `gorm:"not null" json:"call_duration"`   // seconds
	Outcome           *CallOutcome `gorm:"type:varchar(30)" json:"outcome"` // nil if call abandoned
	Notes             string       `gorm:"type:text" json:"notes"`
	RecordingURL      *string      `json:"recording_url"`
	ScheduledFollowUp *time.Time   `json:"scheduled_follow_up"`
	CreatedAt         time.Time    `json:"created_at"`
}

func (cl *CallLog) BeforeCreate(tx *gorm.DB) error {
	if cl.ID == uuid.Nil {
		cl.ID = uuid.New()
	}
	return nil
}

// CallScript is read-only reference data rendered per lead.
type CallScript struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Industry   IndustrySegment `gorm:"type:varchar(30);not null;index" json:"industry"`
	ScriptType string          `gorm:"type:varchar(30);not null" json:"script_type"`
	Title      string          `gorm:"not null" json:"title"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	IsActive   bool            `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (s *CallScript) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// LeadHistory is an audit log entry for important lead changes.
type LeadHistory struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	LeadID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActorID   uuid.UUID  `gorm:"type:uuid;not null;index"`  // who performed the action (agent/system)
	Action    string     `gorm:"type:varchar(50);not null"` // e.g. created, call_logged, status_changed
	OldStatus LeadStatus `gorm:"type:varchar(20)"`
	NewStatus LeadStatus `gorm:"type:varchar(20)"`
	Reason    string     `gorm:"type:text"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

func (h *LeadHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
