package events

import (
	"equipment-compliance/internal/entities"
)

const (
	TicketCreated  = "ticket.created"
	TicketResolved = "ticket.resolved"
	TicketClosed   = "ticket.closed"
)

// TicketCreatedEvent публикуется после коммита создания заявки.
type TicketCreatedEvent struct {
	Ticket entities.Ticket
}

func (e TicketCreatedEvent) Name() string { return TicketCreated }

// TicketResolvedEvent несёт заявку после решения и, для заявок на обслуживание,
// оборудование с уже обновлённым графиком.
type TicketResolvedEvent struct {
	Ticket    entities.Ticket
	Equipment *entities.Equipment
}

func (e TicketResolvedEvent) Name() string { return TicketResolved }

type TicketClosedEvent struct {
	Ticket entities.Ticket
}

func (e TicketClosedEvent) Name() string { return TicketClosed }
