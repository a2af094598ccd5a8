package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

const sheetName = "Tunggakan"

// WriteXLSX renders the same columns as WriteCSV into a single-sheet workbook.
func WriteXLSX(records []entity.TaxRecord, years entity.YearRange) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	index, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: 49})
	if err != nil {
		return nil, err
	}

	header := Header(years)
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	yearList := years.Years()
	for n, r := range records {
		row := n + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		write(1, r.TaxpayerName)
		nopCell, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellStr(sheetName, nopCell, r.ObjectID)
		_ = f.SetCellStyle(sheetName, nopCell, nopCell, textStyle)

		for i, y := range yearList {
			if amt, ok := r.Amount(y); ok {
				write(3+i, amt.InexactFloat64())
			}
		}
		write(3+len(yearList), r.Total.InexactFloat64())
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	_ = f.SetColWidth(sheetName, "A", "A", 32)
	_ = f.SetColWidth(sheetName, "B", "B", 28)
	_ = f.SetColWidth(sheetName, "C", lastCol, 14)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
