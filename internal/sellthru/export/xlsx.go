package export

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/jegsons/sellthru/internal/sellthru"
)

// ContentType is the MIME type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	summaryHeaders = []string{
		"Week", "Sales Pack", "Product Code", "Opening inventory", "Goods Received",
		"Sell thru", "Adjustment", "Closing inventory", "In-transit", "Warehouse",
	}
	breakdownHeaders = []string{
		"Week", "POS-ID", "POS Name", "City", "Country", "Model", "Product Code", "Volume Sales",
	}
	serialHeaders = []string{"Retail store name", "Retail store ID", "IMEI"}
)

// sheetLayout places a table on a worksheet. Rows and columns are 1-based.
type sheetLayout struct {
	name      string
	headerRow int
	firstCol  int
	styled    bool
	headers   []string
	rows      [][]any
}

// Workbook renders a report into the three-sheet xlsx the vendor portal ingests.
type Workbook struct{}

// NewWorkbook constructs a Workbook renderer.
func NewWorkbook() *Workbook {
	return &Workbook{}
}

// Render builds the workbook in memory.
func (w *Workbook) Render(ctx context.Context, report sellthru.Report) (sellthru.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return sellthru.Artifact{}, err
	}
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return sellthru.Artifact{}, fmt.Errorf("export: header style: %w", err)
	}

	layouts := []sheetLayout{
		{name: sellthru.SheetSummary, headerRow: 1, firstCol: 1, styled: true, headers: summaryHeaders, rows: summaryRows(report.Summary)},
		{name: sellthru.SheetBreakdown, headerRow: 1, firstCol: 2, styled: true, headers: breakdownHeaders, rows: breakdownRows(report.Breakdown)},
		{name: sellthru.SheetSerials, headerRow: 2, firstCol: 1, headers: serialHeaders, rows: serialRows(report.Serials)},
	}
	for i, layout := range layouts {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", layout.name); err != nil {
				return sellthru.Artifact{}, fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(layout.name); err != nil {
			return sellthru.Artifact{}, fmt.Errorf("export: add sheet %q: %w", layout.name, err)
		}
		if err := writeSheet(f, layout, headerStyle); err != nil {
			return sellthru.Artifact{}, fmt.Errorf("export: sheet %q: %w", layout.name, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return sellthru.Artifact{}, fmt.Errorf("export: write workbook: %w", err)
	}
	return sellthru.Artifact{Data: buf.Bytes(), ContentType: ContentType}, nil
}

func writeSheet(f *excelize.File, layout sheetLayout, headerStyle int) error {
	widths := make(map[int]int)
	track := func(col int, v any) {
		if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[col] {
			widths[col] = n
		}
	}

	for i, h := range layout.headers {
		col := layout.firstCol + i
		cell, err := excelize.CoordinatesToCellName(col, layout.headerRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(layout.name, cell, h); err != nil {
			return err
		}
		if layout.styled {
			if err := f.SetCellStyle(layout.name, cell, cell, headerStyle); err != nil {
				return err
			}
		}
		track(col, h)
	}

	for r, values := range layout.rows {
		row := layout.headerRow + 1 + r
		for i, v := range values {
			if v == nil {
				continue
			}
			col := layout.firstCol + i
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(layout.name, cell, v); err != nil {
				return err
			}
			track(col, v)
		}
	}

	last := layout.firstCol + len(layout.headers) - 1
	for col := 1; col <= last; col++ {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(layout.name, name, name, float64(widths[col]+2)); err != nil {
			return err
		}
	}
	return nil
}

func summaryRows(rows []sellthru.SummaryRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.Week, r.SalesPack, r.ProductCode, r.OpeningInventory, r.GoodsReceived,
			r.SellThru, r.Adjustment, r.ClosingInventory, r.InTransit, r.Warehouse,
		}
	}
	return out
}

func breakdownRows(rows []sellthru.BreakdownRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.Week, r.CustomerID, optional(r.CustomerName), optional(r.City), optional(r.Country),
			r.Model, r.ProductCode, r.VolumeSales,
		}
	}
	return out
}

func serialRows(rows []sellthru.SerialRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{optional(r.StoreName), optional(r.StoreID), r.Serial}
	}
	return out
}

// optional turns a nil string pointer into an untyped nil so the cell is left blank.
func optional(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
