package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

func sampleEvent() entity.WorkOrderEvent {
	from := entity.StateIniciado
	return entity.WorkOrderEvent{
		Type: entity.EventWorkOrderTransitioned, OrgID: "org1", WorkOrderID: "wo-1", OrgSeq: 7,
		From: &from, To: entity.StateEnRevision, AssigneeID: "tec-1", UserID: "tec-1",
		At: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewEventTask_IdaYVuelta(t *testing.T) {
	task, err := NewEventTask(sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, entity.EventWorkOrderTransitioned, task.Type())

	ev, err := ParseEventTask(task)
	require.NoError(t, err)
	assert.Equal(t, "wo-1", ev.WorkOrderID)
	require.NotNil(t, ev.From)
	assert.Equal(t, entity.StateIniciado, *ev.From)
}

func TestParseEventTask_PayloadInvalido(t *testing.T) {
	_, err := ParseEventTask(asynq.NewTask(entity.EventWorkOrderCreated, []byte("{")))
	assert.Error(t, err)
}

func TestPublish_EncolaEnLaColaConfigurada(t *testing.T) {
	mr := miniredis.RunT(t)
	pub := NewAsynqPublisher(asynq.RedisClientOpt{Addr: mr.Addr()}, "")
	t.Cleanup(func() { _ = pub.Close() })

	require.NoError(t, pub.Publish(context.Background(), sampleEvent()))

	pending, err := mr.List("asynq:{" + DefaultQueue + "}:pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
