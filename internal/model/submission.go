package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionKind identifies the notification use case behind a submission.
type SubmissionKind string

const (
	KindContactMessage SubmissionKind = "contact_message"
	KindWelcomeNotice  SubmissionKind = "welcome_notice"
)

// SubmissionStatus is the delivery state of a submission. A record starts
// pending and transitions exactly once to one of the terminal states.
type SubmissionStatus string

const (
	StatusPending        SubmissionStatus = "pending"
	StatusDelivered      SubmissionStatus = "delivered"
	StatusManualRequired SubmissionStatus = "manual_required"
	StatusFailed         SubmissionStatus = "failed"
)

// IsTerminal reports whether s will never change again.
func (s SubmissionStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusManualRequired || s == StatusFailed
}

// Field names recognized on a submission. FieldOrder fixes the order in
// which required fields are reported missing, independent of input order.
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldEmail     = "email"
	FieldCompany   = "company"
	FieldService   = "service"
	FieldBudget    = "budget"
	FieldMessage   = "message"
)

var FieldOrder = []string{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldCompany,
	FieldService,
	FieldBudget,
	FieldMessage,
}

// Fields is the normalized field set of a submission. Optional fields that
// were absent are empty strings.
type Fields map[string]string

// Submission is the durable record of one inbound contact or welcome event
// and its final delivery outcome.
type Submission struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Kind         SubmissionKind   `json:"kind" db:"kind"`
	FirstName    string           `json:"first_name" db:"first_name"`
	LastName     string           `json:"last_name" db:"last_name"`
	Email        string           `json:"email" db:"email"`
	Company      string           `json:"company" db:"company"`
	Service      string           `json:"service" db:"service"`
	Budget       string           `json:"budget" db:"budget"`
	Message      string           `json:"message" db:"message"`
	Status       SubmissionStatus `json:"status" db:"status"`
	DeliveredVia string           `json:"delivered_via,omitempty" db:"delivered_via"`
	StatusNote   string           `json:"status_note,omitempty" db:"status_note"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// NewSubmission builds a pending submission from normalized fields.
func NewSubmission(kind SubmissionKind, fields Fields) *Submission {
	return &Submission{
		Kind:      kind,
		FirstName: fields[FieldFirstName],
		LastName:  fields[FieldLastName],
		Email:     fields[FieldEmail],
		Company:   fields[FieldCompany],
		Service:   fields[FieldService],
		Budget:    fields[FieldBudget],
		Message:   fields[FieldMessage],
		Status:    StatusPending,
	}
}

// FullName joins first and last name for display in notification bodies.
func (s *Submission) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Fields returns the submission's fields as the normalized mapping.
func (s *Submission) Fields() Fields {
	return Fields{
		FieldFirstName: s.FirstName,
		FieldLastName:  s.LastName,
		FieldEmail:     s.Email,
		FieldCompany:   s.Company,
		FieldService:   s.Service,
		FieldBudget:    s.Budget,
		FieldMessage:   s.Message,
	}
}

// ContactRequest is the POST /contact body.
type ContactRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Service   string `json:"service"`
	Budget    string `json:"budget"`
	Message   string `json:"message"`
}

// Raw converts the request into the raw field mapping the validation gate
// consumes.
func (r *ContactRequest) Raw() map[string]string {
	return map[string]string{
		FieldFirstName: r.FirstName,
		FieldLastName:  r.LastName,
		FieldEmail:     r.Email,
		FieldCompany:   r.Company,
		FieldService:   r.Service,
		FieldBudget:    r.Budget,
		FieldMessage:   r.Message,
	}
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	Kind   SubmissionKind `form:"kind"`
	Limit  int            `form:"limit"`
	Offset int            `form:"offset"`
}
