package repository

import "time"

// ── Domain types for the provident-fund request lifecycle ────────────────────

// Status is the closed set of lifecycle states a request moves through.
type Status string

const (
	StatusSubmitted      Status = "submitted"
	StatusIncomplete     Status = "incomplete"
	StatusReadyForReview Status = "ready_for_review"
	StatusOfficerReview  Status = "officer_review"
	StatusApproved       Status = "approved"
	StatusRejected       Status = "rejected"
	StatusReleased       Status = "released"
	StatusCancelled      Status = "cancelled"
)

// Valid reports whether s is one of the defined lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusIncomplete, StatusReadyForReview,
		StatusOfficerReview, StatusApproved, StatusRejected,
		StatusReleased, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusReleased, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// RequestType classifies what the employee is asking for.
type RequestType string

const (
	TypePartialWithdrawal RequestType = "partial_withdrawal"
	TypeFullWithdrawal    RequestType = "full_withdrawal"
	TypeHousingLoan       RequestType = "housing_loan"
	TypeEducationLoan     RequestType = "education_loan"
	TypeEmergencyLoan     RequestType = "emergency_loan"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case TypePartialWithdrawal, TypeFullWithdrawal, TypeHousingLoan,
		TypeEducationLoan, TypeEmergencyLoan:
		return true
	}
	return false
}

// Request is a withdrawal or loan application moving through the approval
// pipeline. payment_reference is set if and only if status is released.
type Request struct {
	ID               string      `json:"id"`
	EmployeeID       string      `json:"employee_id"`
	Type             RequestType `json:"type"`
	Amount           int64       `json:"amount"` // cents
	Purpose          *string     `json:"purpose,omitempty"`
	Status           Status      `json:"status"`
	AssistantID      *string     `json:"assistant_id,omitempty"`
	OfficerID        *string     `json:"officer_id,omitempty"`
	ApproverID       *string     `json:"approver_id,omitempty"`
	PaymentReference *string     `json:"payment_reference,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	ProcessedAt      *time.Time  `json:"processed_at,omitempty"`
}

// HistoryEntry is one immutable record of a successful transition. Entries
// are totally ordered per request by Seq; CreatedAt is server-assigned.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	RequestID string    `json:"request_id"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id"`
	Remarks   *string   `json:"remarks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TransitionUpdate describes a conditional status write. The row is mutated
// only if its status still equals From when the write lands; assignment and
// payout fields are applied in the same write, and nil pointer fields leave
// the stored value untouched.
type TransitionUpdate struct {
	From             Status
	To               Status
	AssistantID      *string
	OfficerID        *string
	ApproverID       *string
	PaymentReference *string
	SetProcessedAt   bool
}

// RequestFilter narrows List results. Search matches employee id and purpose.
// FromDate/ToDate bound created_at and use YYYY-MM-DD.
type RequestFilter struct {
	Status   *Status
	Search   *string
	FromDate *string
	ToDate   *string
	Limit    int
	Offset   int
}
