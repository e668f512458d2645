// Package pdf genera el reporte imprimible de una orden de trabajo.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: OT N° consecutivo + título   │  Estado + prioridad  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FECHAS: creada / asignada / inicio / fin / aprobada         │
//	│  DESCRIPCIÓN + asignado + activo                             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESPUESTAS DEL FORMULARIO (clave | valor)                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  HISTORIAL: Fecha | De | A | Usuario | Nota                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR con el id de la orden                            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"sort"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/mantenimiento-api/internal/application/workorder"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

var _ workorder.ReportGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

const dateLayout = "02/01/2006 15:04"

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa workorder.ReportGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	loc *time.Location
}

// NewMarotoPDFGenerator construye el generador; las fechas se imprimen en loc (UTC si es nil).
func NewMarotoPDFGenerator(loc *time.Location) *MarotoPDFGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &MarotoPDFGenerator{loc: loc}
}

// WorkOrderPDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) WorkOrderPDF(wo *entity.WorkOrder) ([]byte, error) {
	if wo == nil {
		return nil, fmt.Errorf("pdf: orden nil")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(fmt.Sprintf("Orden de trabajo %d", wo.OrgSeq), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(wo))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(g.datesRow(wo))
	m.AddRows(detailRow(wo))

	if len(wo.Data) > 0 {
		m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
		m.AddRows(sectionTitle("RESPUESTAS DEL FORMULARIO"))
		m.AddRows(dataRows(wo.Data)...)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(sectionTitle("HISTORIAL"))
	m.AddRows(historyHeaderRow())
	m.AddRows(g.historyRows(wo.History)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(wo))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: consecutivo + título (izq) y estado + prioridad (der).
func headerRow(wo *entity.WorkOrder) core.Row {
	return row.New(18).Add(
		col.New(8).Add(
			text.New(fmt.Sprintf("OT N° %d", wo.OrgSeq), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(wo.Title, "Sin título"), props.Text{
				Size: 10, Top: 9,
			}),
		),
		col.New(4).Add(
			text.New("ESTADO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(string(wo.State), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 6,
			}),
			text.New("Prioridad: "+nonEmpty(wo.Priority, "—"), props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

func (g *MarotoPDFGenerator) datesRow(wo *entity.WorkOrder) core.Row {
	d := wo.Dates
	return row.New(12).Add(
		col.New(12).Add(
			text.New("FECHAS", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(fmt.Sprintf("Creada: %s   |   Asignada: %s   |   Inicio: %s   |   Fin: %s   |   Aprobada: %s",
				g.formatTime(&d.Created), g.formatTime(d.AssignedAt), g.formatTime(d.Start),
				g.formatTime(d.End), g.formatTime(d.ApprovedAt),
			), props.Text{Size: 7.5, Top: 7, Color: colorGray}),
		),
	)
}

func detailRow(wo *entity.WorkOrder) core.Row {
	return row.New(16).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Asignado: %s   |   Activo: %s", nonEmpty(wo.AssigneeID, "—"), nonEmpty(wo.AssetID, "—")),
				props.Text{Style: fontstyle.Bold, Size: 8, Top: 1}),
			text.New(nonEmpty(wo.Description, "—"), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func sectionTitle(title string) core.Row {
	return row.New(6).Add(col.New(12).Add(
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
	))
}

// dataRows: una fila por respuesta, en orden alfabético de clave.
func dataRows(data map[string]any) []core.Row {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]core.Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, row.New(6).Add(
			col.New(4).Add(text.New(k, props.Text{Style: fontstyle.Bold, Size: 8, Top: 1, Left: 1})),
			col.New(8).Add(text.New(fmt.Sprint(data[k]), props.Text{Size: 8, Top: 1})),
		))
	}
	return rows
}

// historyHeaderRow: cabecera de la tabla de historial.
func historyHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 3, align.Left),
		h("De", 2, align.Left),
		h("A", 2, align.Left),
		h("Usuario", 2, align.Left),
		h("Nota", 3, align.Left),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// historyRows: una fila por entrada, en el orden en que ocurrieron.
func (g *MarotoPDFGenerator) historyRows(history []entity.HistoryEntry) []core.Row {
	result := make([]core.Row, 0, len(history))
	cell := func(s string, size int) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7.5, Top: 1, Left: 1}))
	}
	for _, h := range history {
		from := "—"
		if h.From != nil {
			from = string(*h.From)
		}
		at := h.At
		result = append(result, row.New(7).Add(
			cell(g.formatTime(&at), 3),
			cell(from, 2),
			cell(string(h.To), 2),
			cell(nonEmpty(h.UserID, "—"), 2),
			cell(h.Note, 3),
		))
	}
	return result
}

// footerRow: QR con el id de la orden para abrirla desde la app móvil.
func footerRow(wo *entity.WorkOrder) core.Row {
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(wo.ID, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Escanea el código para abrir la orden en la aplicación.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New(wo.ID, props.Text{Size: 7, Top: 12, Left: 3, Color: colorGray}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (g *MarotoPDFGenerator) formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "—"
	}
	return t.In(g.loc).Format(dateLayout)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
