// Package access computes the capability set an actor holds over a specific
// request. Resolve is a pure function of its inputs: the engine re-runs it
// against freshly read state immediately before every conditional write, so
// it must not consult the clock or carry state between calls.
package access

import "github.com/meridian-hr/be-pf-requests/internal/repository"

// Role is an HR back-office role carried by an actor.
type Role string

const (
	RoleEmployee  Role = "EMPLOYEE"
	RoleAssistant Role = "HR_ASSISTANT"
	RoleOfficer   Role = "HR_OFFICER"
	RoleApprover  Role = "HR_APPROVER"
	RoleTreasury  Role = "TREASURY"
	RoleGeneralHR Role = "GENERAL_HR"
	RoleAdmin     Role = "ADMIN"
)

// Actor is the identified caller of a lifecycle operation.
type Actor struct {
	ID    string
	Roles []Role
}

// HasRole reports whether the actor holds any of the given roles.
func (a Actor) HasRole(roles ...Role) bool {
	for _, have := range a.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// blanket roles satisfy every role-membership and assignment check, but stay
// state-gated like everyone else.
func (a Actor) blanket() bool {
	return a.HasRole(RoleGeneralHR, RoleAdmin)
}

// hrStaff reports whether the actor holds any back-office HR privilege.
func (a Actor) hrStaff() bool {
	return a.HasRole(RoleAssistant, RoleOfficer, RoleApprover, RoleGeneralHR, RoleAdmin)
}

// CapabilitySet is the set of operations the actor may perform on one request
// right now. It is derived fresh on every resolution and never cached.
type CapabilitySet struct {
	CanMarkReady      bool `json:"can_mark_ready"`
	CanMarkIncomplete bool `json:"can_mark_incomplete"`
	CanMoveToReview   bool `json:"can_move_to_review"`
	CanApprove        bool `json:"can_approve"`
	CanRelease        bool `json:"can_release"`
	CanCancel         bool `json:"can_cancel"`
	CanResubmit       bool `json:"can_resubmit"`
}

// Resolve computes the actor's capabilities over req. Each capability is the
// AND of role membership, assignment match and state gate.
func Resolve(actor Actor, req *repository.Request) CapabilitySet {
	blanket := actor.blanket()

	// Assignment matches. An unset slot matches anyone holding the role so
	// the first eligible actor can claim it by acting.
	assistantMatch := blanket ||
		(actor.HasRole(RoleAssistant) && matchesOrUnset(req.AssistantID, actor.ID))
	approverMatch := blanket ||
		(actor.HasRole(RoleApprover) && matchesOrUnset(req.ApproverID, actor.ID))
	officerMatch := blanket || actor.HasRole(RoleOfficer)
	releaseMatch := blanket || actor.HasRole(RoleTreasury, RoleOfficer)

	owner := actor.ID == req.EmployeeID

	return CapabilitySet{
		CanMarkReady:      assistantMatch && req.Status == repository.StatusSubmitted,
		CanMarkIncomplete: assistantMatch && req.Status == repository.StatusSubmitted,
		CanMoveToReview:   officerMatch && req.Status == repository.StatusReadyForReview,
		CanApprove:        approverMatch && req.Status == repository.StatusOfficerReview,
		CanRelease:        releaseMatch && req.Status == repository.StatusApproved,
		CanCancel:         (owner || actor.hrStaff()) && !req.Status.Terminal(),
		CanResubmit:       (owner || blanket) && req.Status == repository.StatusIncomplete,
	}
}

func matchesOrUnset(assigned *string, actorID string) bool {
	return assigned == nil || *assigned == actorID
}
