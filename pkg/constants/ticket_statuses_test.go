package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	statuses := []string{TicketStatusOpen, TicketStatusResolved, TicketStatusClosed}
	allowed := map[[2]string]bool{
		{TicketStatusOpen, TicketStatusResolved}:   true,
		{TicketStatusResolved, TicketStatusClosed}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]string{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition("unknown", TicketStatusResolved))
	assert.True(t, IsFinalStatus(TicketStatusClosed))
}

func TestRoleValid(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid())
	}
	assert.False(t, Role("superuser").Valid())
}
