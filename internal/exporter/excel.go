package exporter

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"pdf-extractor/internal/models"
)

const (
	DefaultSheetName = "Dados Extraídos"
	DefaultFileName  = "dados_extraidos.xlsx"
)

var ErrNoTable = errors.New("nothing to export")

const defaultSheet = "Sheet1"

// ToXLSX writes the table to a single sheet workbook: header row first,
// data rows below, no styling.
func ToXLSX(table *models.Table, sheetName string) ([]byte, error) {
	if table == nil || len(table.Columns) == 0 {
		return nil, ErrNoTable
	}
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	if err := writeRow(f, sheetName, 1, table.Columns); err != nil {
		return nil, err
	}
	for i, row := range table.Rows {
		if err := writeRow(f, sheetName, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}
