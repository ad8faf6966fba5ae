package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"raffle/internal/models"

	"github.com/google/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys on the raffle topic exchange.
const (
	RKDrawCreated    = "raffle.draw.created"
	RKMembersEntered = "raffle.members.entered"
	RKDrawClosed     = "raffle.draw.closed"
)

type DrawCreated struct {
	DrawID    string    `json:"draw_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type MembersEntered struct {
	DrawID    string   `json:"draw_id"`
	DrawName  string   `json:"draw_name"`
	MemberIDs []string `json:"member_ids"`
	Count     int      `json:"count"`
}

type DrawClosed struct {
	DrawID      string    `json:"draw_id"`
	DrawName    string    `json:"draw_name"`
	WinnerID    string    `json:"winner_id"`
	WinnerEmail string    `json:"winner_email"`
	ClosedAt    time.Time `json:"closed_at"`
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends raffle lifecycle events to a RabbitMQ topic exchange.
// Publish failures are logged and otherwise ignored.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) DrawCreated(ctx context.Context, draw *models.RaffleDraw) {
	p.publish(ctx, RKDrawCreated, DrawCreated{
		DrawID:    draw.ID,
		Name:      draw.Name,
		CreatedAt: draw.CreatedAt,
	})
}

func (p *Publisher) MembersEntered(ctx context.Context, draw *models.RaffleDraw, members []*models.Member) {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	p.publish(ctx, RKMembersEntered, MembersEntered{
		DrawID:    draw.ID,
		DrawName:  draw.Name,
		MemberIDs: ids,
		Count:     len(ids),
	})
}

func (p *Publisher) DrawClosed(ctx context.Context, draw *models.RaffleDraw, winner *models.Member) {
	ev := DrawClosed{
		DrawID:      draw.ID,
		DrawName:    draw.Name,
		WinnerID:    winner.ID,
		WinnerEmail: winner.Email,
	}
	if draw.ClosedAt != nil {
		ev.ClosedAt = *draw.ClosedAt
	}
	p.publish(ctx, RKDrawClosed, ev)
}

// PublishJSON marshals v and publishes it under key.
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

func (p *Publisher) publish(ctx context.Context, key string, v any) {
	if err := p.PublishJSON(ctx, key, v); err != nil {
		logger.Warningf("publish %s: %v", key, err)
	}
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
