package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet layout of the rendered document
const (
	xlsxSheetName = "Tax Report"
	xlsxTitleCell = "A1"
	// header lines start on row 3, the table header follows after one spare row
	xlsxHeaderLineRow = 3
)

// RenderXLSX renders doc as a single-sheet workbook: title, header lines,
// then the expense table with a styled header row.
func RenderXLSX(doc TableDocument) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 18},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create title style: %w", err)
	}
	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"64B5F6"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetCellValue(xlsxSheetName, xlsxTitleCell, doc.Title); err != nil {
		return nil, fmt.Errorf("failed to set title: %w", err)
	}
	if err := f.SetCellStyle(xlsxSheetName, xlsxTitleCell, xlsxTitleCell, titleStyle); err != nil {
		return nil, fmt.Errorf("failed to style title: %w", err)
	}

	row := xlsxHeaderLineRow
	for _, line := range doc.HeaderLines {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(xlsxSheetName, cell, line); err != nil {
			return nil, fmt.Errorf("failed to set header line: %w", err)
		}
		row++
	}
	row++

	tableStart := row
	if err := setRow(f, tableStart, doc.Columns); err != nil {
		return nil, err
	}
	first, _ := excelize.CoordinatesToCellName(1, tableStart)
	last, _ := excelize.CoordinatesToCellName(len(doc.Columns), tableStart)
	if err := f.SetCellStyle(xlsxSheetName, first, last, headStyle); err != nil {
		return nil, fmt.Errorf("failed to style table header: %w", err)
	}

	for i, values := range doc.Rows {
		if err := setRow(f, tableStart+1+i, values); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(xlsxSheetName, "A", "E", 22); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(xlsxSheetName, cell, &cells); err != nil {
		return fmt.Errorf("failed to set row %d: %w", row, err)
	}
	return nil
}
