package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	metricsx "github.com/tanpawarit/Chative-Shop-Assistant/agent/metrics"
	qstashx "github.com/tanpawarit/Chative-Shop-Assistant/pkg/qstash"
)

// Ticket is a request for a human agent to follow up.
type Ticket struct {
	TicketID  string    `json:"ticket_id"`
	Email     string    `json:"email"`
	Reason    string    `json:"reason,omitempty"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

type TicketSink interface {
	Name() string
	Submit(ctx context.Context, ticket Ticket) error
}

func submitTicket(ctx context.Context, sink TicketSink, ticket Ticket) error {
	if err := sink.Submit(ctx, ticket); err != nil {
		return fmt.Errorf("submit ticket %s via %s: %w", ticket.TicketID, sink.Name(), err)
	}
	metricsx.HandoffTickets.WithLabelValues(sink.Name()).Inc()
	return nil
}

// LogTicketSink only records the ticket in the structured log.
type LogTicketSink struct{}

func (LogTicketSink) Name() string { return "log" }

func (LogTicketSink) Submit(ctx context.Context, ticket Ticket) error {
	log.Ctx(ctx).Info().
		Str("ticket_id", ticket.TicketID).
		Str("email", ticket.Email).
		Str("reason", ticket.Reason).
		Str("summary", ticket.Summary).
		Msg("human handoff requested")
	return nil
}

type ticketPublisher interface {
	PublishJSON(ctx context.Context, destination string, payload any) (qstashx.PublishResponse, error)
}

// QStashTicketSink enqueues tickets for asynchronous delivery to a
// helpdesk webhook.
type QStashTicketSink struct {
	client      ticketPublisher
	destination string
}

func NewQStashTicketSink(client *qstashx.Client, destination string) (*QStashTicketSink, error) {
	if client == nil {
		return nil, fmt.Errorf("qstash client is nil")
	}
	return newQStashTicketSink(client, destination)
}

func newQStashTicketSink(client ticketPublisher, destination string) (*QStashTicketSink, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, fmt.Errorf("qstash destination is required")
	}
	return &QStashTicketSink{client: client, destination: destination}, nil
}

func (s *QStashTicketSink) Name() string { return "qstash" }

func (s *QStashTicketSink) Submit(ctx context.Context, ticket Ticket) error {
	resp, err := s.client.PublishJSON(ctx, s.destination, ticket)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Debug().
		Str("ticket_id", ticket.TicketID).
		Str("message_id", resp.MessageID).
		Msg("handoff ticket published")
	return nil
}

type handoffTicketModel struct {
	bun.BaseModel `bun:"table:handoff_tickets"`

	TicketID  string    `bun:"ticket_id,pk"`
	Email     string    `bun:"email,notnull"`
	Reason    string    `bun:"reason"`
	Summary   string    `bun:"summary"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// PostgresTicketSink stores tickets in the handoff_tickets table.
type PostgresTicketSink struct {
	db bun.IDB
}

func NewPostgresTicketSink(db bun.IDB) *PostgresTicketSink {
	return &PostgresTicketSink{db: db}
}

func (s *PostgresTicketSink) Name() string { return "postgres" }

func (s *PostgresTicketSink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*handoffTicketModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *PostgresTicketSink) Submit(ctx context.Context, ticket Ticket) error {
	row := &handoffTicketModel{
		TicketID:  ticket.TicketID,
		Email:     ticket.Email,
		Reason:    ticket.Reason,
		Summary:   ticket.Summary,
		CreatedAt: ticket.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return err
}
