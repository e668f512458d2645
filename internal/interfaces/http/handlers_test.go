package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/mantenimiento-api/internal/application/inventory"
	"github.com/jhoicas/mantenimiento-api/internal/application/workorder"
	"github.com/jhoicas/mantenimiento-api/internal/domain"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
	"github.com/jhoicas/mantenimiento-api/pkg/jwt"
)

const (
	handlerSecret = "handler-secret"
	testOrg       = "org1"
)

// stubLedger responde lo que el test configure; registra la última entrada recibida.
type stubLedger struct {
	line      *entity.StockLine
	err       error
	lastIn    inventory.MovementInput
	lastTr    inventory.TransferInput
	lastLimit int
	listed    bool
}

func (s *stubLedger) GetStock(_ context.Context, org, item, wh string) (*entity.StockLine, error) {
	if s.err != nil {
		return nil, s.err
	}
	return entity.NewStockLine(org, item, wh, time.Now()), nil
}

func (s *stubLedger) ListStock(context.Context, string, entity.StockFilter) ([]*entity.StockLine, error) {
	s.listed = true
	return []*entity.StockLine{s.line}, s.err
}

func (s *stubLedger) op(in inventory.MovementInput) (*entity.StockLine, error) {
	s.lastIn = in
	if s.err != nil {
		return nil, s.err
	}
	return s.line, nil
}

func (s *stubLedger) ReservePart(_ context.Context, in inventory.MovementInput) (*entity.StockLine, error) {
	return s.op(in)
}

func (s *stubLedger) ConsumePart(_ context.Context, in inventory.MovementInput) (*entity.StockLine, error) {
	return s.op(in)
}

func (s *stubLedger) ReleaseReservation(_ context.Context, in inventory.MovementInput) (*entity.StockLine, error) {
	return s.op(in)
}

func (s *stubLedger) AdjustStock(_ context.Context, in inventory.MovementInput) (*entity.StockLine, error) {
	return s.op(in)
}

func (s *stubLedger) TransferStock(_ context.Context, in inventory.TransferInput) (*entity.StockLine, *entity.StockLine, error) {
	s.lastTr = in
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.line, s.line, nil
}

func (s *stubLedger) ListMovements(_ context.Context, _ string, _ entity.MovementFilter, limit int) ([]*entity.StockMovement, error) {
	s.lastLimit = limit
	return nil, s.err
}

// stubLifecycle devuelve siempre la misma orden.
type stubLifecycle struct {
	wo        *entity.WorkOrder
	err       error
	started   bool
	assigned  string
	lastState entity.WorkOrderState
}

func (s *stubLifecycle) result() (*entity.WorkOrder, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.wo, nil
}

func (s *stubLifecycle) Create(context.Context, workorder.CreateInput) (*entity.WorkOrder, error) {
	return s.result()
}

func (s *stubLifecycle) FindByID(context.Context, string, string) (*entity.WorkOrder, error) {
	if s.wo == nil {
		return nil, domain.ErrNotFound
	}
	return s.wo, nil
}

func (s *stubLifecycle) List(_ context.Context, _ string, f entity.WorkOrderFilter) ([]*entity.WorkOrder, error) {
	s.lastState = f.State
	return []*entity.WorkOrder{s.wo}, s.err
}

func (s *stubLifecycle) Start(_ context.Context, _, _, userID, _ string) (*entity.WorkOrder, error) {
	if s.wo != nil && s.wo.AssigneeID != userID {
		return nil, fmt.Errorf("%w: solo el asignado puede iniciar la orden", domain.ErrForbidden)
	}
	s.started = true
	return s.result()
}

func (s *stubLifecycle) SubmitForReview(context.Context, string, string, string, string) (*entity.WorkOrder, error) {
	return s.result()
}

func (s *stubLifecycle) Approve(context.Context, string, string, string, string) (*entity.WorkOrder, error) {
	return s.result()
}

func (s *stubLifecycle) Reject(context.Context, string, string, string, string) (*entity.WorkOrder, error) {
	return s.result()
}

func (s *stubLifecycle) Assign(_ context.Context, _, _, assigneeID, _, _ string) (*entity.WorkOrder, error) {
	s.assigned = assigneeID
	return s.result()
}

func (s *stubLifecycle) PatchData(context.Context, string, string, entity.WorkOrderPatch) (*entity.WorkOrder, error) {
	return s.result()
}

func (s *stubLifecycle) SoftDelete(context.Context, string, string, string) error {
	return s.err
}

func (s *stubLifecycle) Report(context.Context, string, string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.3 fake"), nil
}

type stubMembers map[string]bool

func (m stubMembers) IsMember(_ context.Context, _, userID string) (bool, error) {
	return m[userID], nil
}

func newTestApp(ledger *stubLedger, lc *stubLifecycle) *fiber.App {
	app := fiber.New()
	Router(app, RouterDeps{
		Ledger:    ledger,
		Lifecycle: lc,
		Members:   stubMembers{"tec-1": true, "tec-2": true},
		JWTSecret: handlerSecret,
	})
	return app
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := jwt.Generate(handlerSecret, jwt.Identity{UserID: userID, OrgID: testOrg, Role: role}, "test", 60)
	require.NoError(t, err)
	return "Bearer " + tok
}

func call(t *testing.T, app *fiber.App, method, path, auth, body string) (int, []byte, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", auth)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw, resp.Header.Get("Content-Type")
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Code
}

func sampleLine() *entity.StockLine {
	l := entity.NewStockLine(testOrg, "filtro", "central", time.Now())
	l.Quantity = decimal.NewFromInt(10)
	l.Reserved = decimal.NewFromInt(3)
	return l
}

func sampleOrder(assignee string) *entity.WorkOrder {
	now := time.Now()
	return &entity.WorkOrder{
		ID: "wo-1", OrgID: testOrg, OrgSeq: 4, State: entity.StateAsignado, AssigneeID: assignee, Title: "Cambio de filtro",
		History: []entity.HistoryEntry{{To: entity.StateAsignado, At: now}},
		Dates:   entity.WorkOrderDates{Created: now},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Inventario
// ──────────────────────────────────────────────────────────────────────────────

func TestReserve_OK(t *testing.T) {
	ledger := &stubLedger{line: sampleLine()}
	app := newTestApp(ledger, &stubLifecycle{})

	status, raw, _ := call(t, app, fiber.MethodPost, "/api/inventory/reservations", bearer(t, "tec-1", RoleTecnico),
		`{"item_id":"filtro","warehouse_id":"central","qty":"3","reference_id":"wo-1"}`)

	require.Equal(t, fiber.StatusOK, status, string(raw))
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "7", body["available"])
	assert.Equal(t, testOrg, ledger.lastIn.OrgID)
	assert.Equal(t, "tec-1", ledger.lastIn.UserID)
	assert.True(t, decimal.NewFromInt(3).Equal(ledger.lastIn.Qty))
}

func TestReserve_ErroresDeDominio(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
		{domain.ErrInsufficientReserved, fiber.StatusConflict, "INSUFFICIENT_RESERVED"},
		{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
		{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
		{errors.New("db caída"), fiber.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			app := newTestApp(&stubLedger{err: tc.err}, &stubLifecycle{})
			status, raw, _ := call(t, app, fiber.MethodPost, "/api/inventory/reservations", bearer(t, "tec-1", RoleTecnico),
				`{"item_id":"filtro","warehouse_id":"central","qty":"3"}`)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, errorCode(t, raw))
		})
	}
}

func TestReserve_BodyInvalido(t *testing.T) {
	app := newTestApp(&stubLedger{}, &stubLifecycle{})
	status, raw, _ := call(t, app, fiber.MethodPost, "/api/inventory/reservations", bearer(t, "tec-1", RoleTecnico), `{"item_id":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_BODY", errorCode(t, raw))

	status, raw, _ = call(t, app, fiber.MethodPost, "/api/inventory/reservations", bearer(t, "tec-1", RoleTecnico), `{"qty":"1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(t, raw))
}

func TestAdjust_SoloSupervisores(t *testing.T) {
	app := newTestApp(&stubLedger{line: sampleLine()}, &stubLifecycle{})
	body := `{"item_id":"filtro","warehouse_id":"central","qty":"-2"}`

	status, _, _ := call(t, app, fiber.MethodPost, "/api/inventory/adjustments", bearer(t, "tec-1", RoleTecnico), body)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _, _ = call(t, app, fiber.MethodPost, "/api/inventory/adjustments", bearer(t, "sup-1", RoleSupervisor), body)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestTransfer_MismaBodegaRechazada(t *testing.T) {
	ledger := &stubLedger{line: sampleLine()}
	app := newTestApp(ledger, &stubLifecycle{})

	status, raw, _ := call(t, app, fiber.MethodPost, "/api/inventory/transfers", bearer(t, "adm", RoleAdmin),
		`{"item_id":"filtro","from_warehouse_id":"central","to_warehouse_id":"central","qty":"1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(t, raw))
	assert.Empty(t, ledger.lastTr.ItemID)

	status, raw, _ = call(t, app, fiber.MethodPost, "/api/inventory/transfers", bearer(t, "adm", RoleAdmin),
		`{"item_id":"filtro","from_warehouse_id":"central","to_warehouse_id":"norte","qty":"1"}`)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.Equal(t, "norte", ledger.lastTr.ToWarehouseID)
	assert.Contains(t, string(raw), `"from"`)
}

func TestGetStock_LineaOListado(t *testing.T) {
	ledger := &stubLedger{line: sampleLine()}
	app := newTestApp(ledger, &stubLifecycle{})
	auth := bearer(t, "tec-1", RoleTecnico)

	status, raw, _ := call(t, app, fiber.MethodGet, "/api/inventory/stock?item_id=filtro&warehouse_id=norte", auth, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), `"quantity":"0"`)
	assert.False(t, ledger.listed)

	status, _, _ = call(t, app, fiber.MethodGet, "/api/inventory/stock?item_id=filtro", auth, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, ledger.listed)
}

func TestListMovements_Parametros(t *testing.T) {
	ledger := &stubLedger{}
	app := newTestApp(ledger, &stubLifecycle{})
	auth := bearer(t, "tec-1", RoleTecnico)

	status, _, _ := call(t, app, fiber.MethodGet, "/api/inventory/movements?from=ayer", auth, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _, _ = call(t, app, fiber.MethodGet, "/api/inventory/movements?type=robo", auth, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _, _ = call(t, app, fiber.MethodGet, "/api/inventory/movements?type=reserve&limit=10&from=2026-01-01T00:00:00Z", auth, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 10, ledger.lastLimit)
}

func TestSinToken_Retorna401(t *testing.T) {
	app := newTestApp(&stubLedger{}, &stubLifecycle{})
	status, _, _ := call(t, app, fiber.MethodGet, "/api/inventory/stock", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Órdenes de trabajo
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_AsignadoYRolExcluyentes(t *testing.T) {
	app := newTestApp(&stubLedger{}, &stubLifecycle{wo: sampleOrder("tec-1")})
	auth := bearer(t, "sup-1", RoleSupervisor)

	status, raw, _ := call(t, app, fiber.MethodPost, "/api/work-orders", auth,
		`{"title":"Cambio de filtro","assignee_id":"tec-1","assignee_role":"tecnico"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(t, raw))

	status, raw, _ = call(t, app, fiber.MethodPost, "/api/work-orders", auth,
		`{"title":"Cambio de filtro","assignee_id":"tec-1"}`)
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	assert.Contains(t, string(raw), `"org_seq":4`)
}

func TestCreate_TecnicoNoPuedeCrear(t *testing.T) {
	app := newTestApp(&stubLedger{}, &stubLifecycle{wo: sampleOrder("tec-1")})
	status, _, _ := call(t, app, fiber.MethodPost, "/api/work-orders", bearer(t, "tec-1", RoleTecnico), `{"title":"x"}`)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestStart_SoloElAsignado(t *testing.T) {
	lc := &stubLifecycle{wo: sampleOrder("tec-1")}
	app := newTestApp(&stubLedger{}, lc)

	status, raw, _ := call(t, app, fiber.MethodPost, "/api/work-orders/wo-1/start", bearer(t, "tec-2", RoleTecnico), "")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(t, raw))
	assert.False(t, lc.started)

	status, _, _ = call(t, app, fiber.MethodPost, "/api/work-orders/wo-1/start", bearer(t, "tec-1", RoleTecnico), `{"note":"en sitio"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, lc.started)
}

func TestTransition_ErroresDeDominio(t *testing.T) {
	lc := &stubLifecycle{wo: sampleOrder("tec-1"), err: domain.ErrInvalidTransition}
	app := newTestApp(&stubLedger{}, lc)

	status, raw, _ := call(t, app, fiber.MethodPost, "/api/work-orders/wo-1/approve", bearer(t, "sup-1", RoleSupervisor), "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, raw))

	status, _, _ = call(t, app, fiber.MethodPost, "/api/work-orders/wo-1/approve", bearer(t, "tec-1", RoleTecnico), "")
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestGetByID_NoEncontrada(t *testing.T) {
	app := newTestApp(&stubLedger{}, &stubLifecycle{})
	status, raw, _ := call(t, app, fiber.MethodGet, "/api/work-orders/nada", bearer(t, "tec-1", RoleTecnico), "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, raw))
}

func TestAssign_RequiereMiembro(t *testing.T) {
	lc := &stubLifecycle{wo: sampleOrder("tec-1")}
	app := newTestApp(&stubLedger{}, lc)
	auth := bearer(t, "sup-1", RoleSupervisor)

	status, _, _ := call(t, app, fiber.MethodPost, "/api/work-orders/wo-1/assign", auth, `{"assignee_id":"extraño"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Empty(t, lc.assigned)

	status, _, _ = call(t, app, fiber.MethodPost, "/api/work-orders/wo-1/assign", auth, `{"assignee_id":"tec-2"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "tec-2", lc.assigned)
}

func TestList_EstadoDesconocido(t *testing.T) {
	lc := &stubLifecycle{wo: sampleOrder("tec-1")}
	app := newTestApp(&stubLedger{}, lc)
	auth := bearer(t, "tec-1", RoleTecnico)

	status, _, _ := call(t, app, fiber.MethodGet, "/api/work-orders?state=Perdido", auth, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _, _ = call(t, app, fiber.MethodGet, "/api/work-orders?state=Iniciado", auth, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, entity.StateIniciado, lc.lastState)
}

func TestDelete_SinContenido(t *testing.T) {
	app := newTestApp(&stubLedger{}, &stubLifecycle{wo: sampleOrder("tec-1")})
	status, _, _ := call(t, app, fiber.MethodDelete, "/api/work-orders/wo-1", bearer(t, "adm", RoleAdmin), "")
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestReport_PDF(t *testing.T) {
	app := newTestApp(&stubLedger{}, &stubLifecycle{wo: sampleOrder("tec-1")})
	status, raw, ctype := call(t, app, fiber.MethodGet, "/api/work-orders/wo-1/report", bearer(t, "tec-1", RoleTecnico), "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "application/pdf", ctype)
	assert.True(t, strings.HasPrefix(string(raw), "%PDF"))
}
