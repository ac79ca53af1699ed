package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter implements SheetWriter by saving a workbook to a local file.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer that saves to path, replacing any existing file.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write saves the rate card workbook.
func (w *XLSXWriter) Write(_ context.Context, card RateCard) error {
	f, err := Workbook(card)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving %s: %w", w.path, err)
	}
	return nil
}

// WriteWorkbook streams the rate card workbook to out.
func WriteWorkbook(out io.Writer, card RateCard) error {
	f, err := Workbook(card)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// Workbook builds an in-memory workbook with RATES and HISTORY sheets.
func Workbook(card RateCard) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", ratesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(historySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("adding %s sheet: %w", historySheet, err)
	}

	if err := writeRows(f, ratesSheet, rateValues(card)); err != nil {
		f.Close()
		return nil, err
	}
	history := [][]any{historyHeader, historyRow(card)}
	if err := writeRows(f, historySheet, history); err != nil {
		f.Close()
		return nil, err
	}

	if err := styleRates(f, len(card.Rows)); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing %s row %d: %w", sheet, i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// styleRates applies a bold header, unit number formats and a frozen header row.
func styleRates(f *excelize.File, rows int) error {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9EAD3"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	btc, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptr("0.00000000")})
	if err != nil {
		return fmt.Errorf("creating BTC style: %w", err)
	}
	usd, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptr("#,##0.00")})
	if err != nil {
		return fmt.Errorf("creating USD style: %w", err)
	}

	last := fmt.Sprint(rows + 1)
	if err := f.SetCellStyle(ratesSheet, "A1", "C1", header); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if rows > 0 {
		if err := f.SetCellStyle(ratesSheet, "B2", "B"+last, btc); err != nil {
			return fmt.Errorf("styling BTC column: %w", err)
		}
		if err := f.SetCellStyle(ratesSheet, "C2", "C"+last, usd); err != nil {
			return fmt.Errorf("styling USD column: %w", err)
		}
	}
	if err := f.SetColWidth(ratesSheet, "A", "C", 16); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	return f.SetPanes(ratesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func ptr[T any](v T) *T { return &v }
