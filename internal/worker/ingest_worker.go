package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docuchat/internal/app"
	"docuchat/internal/model"
)

// IngestWorker consumes ingest tasks off the durable queue and runs the
// ingestion pipeline one document at a time. Undecodable payloads are
// dropped; pipeline errors requeue the task so a document is never
// stranded in processing by a transient outage.
type IngestWorker struct {
	conn      *amqp.Connection
	ingest    *app.IngestService
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, ingest *app.IngestService, queueName string) *IngestWorker {
	return &IngestWorker{conn: conn, ingest: ingest, queueName: queueName}
}

// Start begins consuming in a background goroutine. Calling Start on a
// running worker is a no-op.
func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, deliveries, err := w.openConsume()
	if err != nil {
		return err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handleDelivery(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) openConsume() (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := w.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("declare worker queue failed: %w", err)
	}

	// One unacked delivery at a time; the embedding calls dominate the
	// pipeline anyway.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume queue failed: %w", err)
	}
	return ch, deliveries, nil
}

func (w *IngestWorker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var task model.IngestTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		log.Printf("worker decode ingest task failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.ingest.Process(ctx, task.DocumentID); err != nil {
		log.Printf("worker ingest document %d failed: %v", task.DocumentID, err)
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
}

// Close stops the consume loop and waits for an in-flight document to
// finish or abort.
func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
