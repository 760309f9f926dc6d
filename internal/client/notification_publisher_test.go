package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-hr/be-pf-requests/internal/repository"
)

func TestRecipientsForExcludesActorAndDedupes(t *testing.T) {
	assistant := "asst-1"
	officer := "off-1"

	req := &repository.Request{
		ID:          "req-1",
		EmployeeID:  "emp-1",
		AssistantID: &assistant,
		OfficerID:   &officer,
	}

	// The acting assistant is not notified about their own action.
	assert.ElementsMatch(t, []string{"emp-1", "off-1"}, recipientsFor(req, "asst-1"))

	// An outside actor notifies everyone with a stake.
	assert.ElementsMatch(t, []string{"emp-1", "asst-1", "off-1"}, recipientsFor(req, "adm-1"))

	// The employee acting on their own request skips themselves.
	assert.ElementsMatch(t, []string{"asst-1", "off-1"}, recipientsFor(req, "emp-1"))
}

func TestRecipientsForEmptyWhenActorIsOnlyStakeholder(t *testing.T) {
	req := &repository.Request{ID: "req-1", EmployeeID: "emp-1"}
	assert.Empty(t, recipientsFor(req, "emp-1"))
}
