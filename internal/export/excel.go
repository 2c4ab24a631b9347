package export

import (
	"bytes"
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"spacecraft-telemetry-analyzer/internal/telemetry"
)

const sheetName = "Telemetry"

// ExcelReport формирует xlsx отчет: строка заголовка и все записи в порядке
// набора данных. Отчет только читает записи и ничего в них не меняет.
func ExcelReport(records []telemetry.Record) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	header := []interface{}{"timestamp"}
	for _, name := range telemetry.Parameters {
		header = append(header, name)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}

		row := []interface{}{rec.Timestamp.Format(telemetry.TimestampLayout)}
		for _, name := range telemetry.Parameters {
			v := rec.Value(name)
			if math.IsNaN(v) {
				row = append(row, "")
				continue
			}
			row = append(row, v)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}
