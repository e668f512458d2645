package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

func TestWorkOrderPDF_GeneraDocumento(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	from := entity.StateAsignado
	wo := &entity.WorkOrder{
		ID: "7f1c1f0e-3b7a-4c55-9d59-1f3f7b8a2c11", OrgID: "org1", OrgSeq: 42,
		State: entity.StateIniciado, AssigneeID: "tec-1", Title: "Cambio de correa",
		Data: map[string]any{"horometro": 1520, "observacion": "desgaste lateral"},
		History: []entity.HistoryEntry{
			{UserID: "sup-1", To: entity.StateAsignado, Note: "orden creada y asignada", At: now},
			{UserID: "tec-1", From: &from, To: entity.StateIniciado, At: now.Add(time.Hour)},
		},
		Dates: entity.WorkOrderDates{Created: now, AssignedAt: &now},
	}

	out, err := NewMarotoPDFGenerator(nil).WorkOrderPDF(wo)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "debe ser un PDF")
}

func TestWorkOrderPDF_OrdenNil(t *testing.T) {
	_, err := NewMarotoPDFGenerator(nil).WorkOrderPDF(nil)
	assert.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	g := NewMarotoPDFGenerator(time.UTC)
	assert.Equal(t, "—", g.formatTime(nil))
	ts := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	assert.Equal(t, "02/01/2026 03:04", g.formatTime(&ts))
}
