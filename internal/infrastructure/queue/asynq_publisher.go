// Package queue publica los eventos de órdenes de trabajo como tareas asynq. Los consume el servicio
// de notificaciones (push, correo, sockets), que vive fuera de este repositorio.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/mantenimiento-api/internal/application/workorder"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

var _ workorder.EventPublisher = (*AsynqPublisher)(nil)

// DefaultQueue cola por defecto de eventos.
const DefaultQueue = "workorders"

// NewEventTask construye la tarea; el tipo de tarea es el tipo de evento (workorder:*).
func NewEventTask(ev entity.WorkOrderEvent) (*asynq.Task, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(ev.Type, data), nil
}

// ParseEventTask decodifica el payload (lado consumidor y tests).
func ParseEventTask(t *asynq.Task) (entity.WorkOrderEvent, error) {
	var ev entity.WorkOrderEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return ev, fmt.Errorf("payload inválido: %w", err)
	}
	return ev, nil
}

// AsynqPublisher encola eventos en Redis.
type AsynqPublisher struct {
	client *asynq.Client
	queue  string
}

// NewAsynqPublisher construye el publicador sobre la conexión Redis indicada.
func NewAsynqPublisher(opts asynq.RedisClientOpt, queue string) *AsynqPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AsynqPublisher{client: asynq.NewClient(opts), queue: queue}
}

// Publish encola el evento con reintentos acotados del lado consumidor.
func (p *AsynqPublisher) Publish(ctx context.Context, ev entity.WorkOrderEvent) error {
	task, err := NewEventTask(ev)
	if err != nil {
		return err
	}
	_, err = p.client.EnqueueContext(ctx, task,
		asynq.Queue(p.queue),
		asynq.MaxRetry(5),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("encolar %s: %w", ev.Type, err)
	}
	return nil
}

// Close libera la conexión.
func (p *AsynqPublisher) Close() error {
	return p.client.Close()
}
