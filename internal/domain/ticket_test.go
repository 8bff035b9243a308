package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransition(t *testing.T) {
	assert.True(t, ValidTransition(TicketStatusOpen, TicketStatusInProgress))
	assert.True(t, ValidTransition(TicketStatusInProgress, TicketStatusClosed))

	assert.False(t, ValidTransition(TicketStatusOpen, TicketStatusClosed), "no shortcut past arrival")
	assert.False(t, ValidTransition(TicketStatusInProgress, TicketStatusOpen), "no going back")
	assert.False(t, ValidTransition(TicketStatusClosed, TicketStatusOpen))
	assert.False(t, ValidTransition(TicketStatusClosed, TicketStatusInProgress))
	assert.False(t, ValidTransition(TicketStatusOpen, TicketStatusOpen))
}

func TestTerminal(t *testing.T) {
	assert.False(t, (&Ticket{Status: TicketStatusOpen}).Terminal())
	assert.False(t, (&Ticket{Status: TicketStatusInProgress}).Terminal())
	assert.True(t, (&Ticket{Status: TicketStatusClosed}).Terminal())
}

func TestValidPriority(t *testing.T) {
	for _, p := range []TicketPriority{TicketPriorityBaja, TicketPriorityMedia, TicketPriorityAlta, TicketPriorityCritica} {
		assert.True(t, ValidPriority(p))
	}
	assert.False(t, ValidPriority(TicketPriority("URGENTE")))
	assert.False(t, ValidPriority(TicketPriority("")))
}
