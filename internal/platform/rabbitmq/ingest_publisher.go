package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"docuchat/internal/model"
)

// IngestPublisher enqueues uploaded documents for the background
// ingestion worker. Deliveries are persistent and the queue is durable,
// already declared by New at startup, so a broker restart does not lose
// pending documents.
//
// A fresh channel is opened per publish: amqp channels are not safe for
// concurrent use and uploads arrive from many HTTP handlers at once.
type IngestPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewIngestPublisher(conn *amqp.Connection, queueName string) *IngestPublisher {
	return &IngestPublisher{conn: conn, queueName: queueName}
}

func (p *IngestPublisher) Publish(ctx context.Context, task model.IngestTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal ingest task failed: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, msg); err != nil {
		return fmt.Errorf("publish ingest task failed: %w", err)
	}
	return nil
}
