package calificaciones

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"NuamCalifSaas/api/constants"
)

// ParseRows reads an uploaded tabular file into column-keyed rows. The first
// row is the header; header names are lowercased and trimmed. Rows with an
// empty codigo_instrumento are skipped silently (they are not counted as
// failures). maxRows guards against absurdly large uploads; crossing it
// aborts the parse rather than materializing the whole file.
func ParseRows(f io.ReadSeeker, filename string, maxRows int) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(f, maxRows)
	case ".xlsx":
		return parseXLSX(f, maxRows)
	case ".xls":
		return parseXLS(f, maxRows)
	default:
		return nil, errors.New(constants.ErrUnsupportedFormat)
	}
}

func parseCSV(f io.Reader, maxRows int) ([]Row, error) {
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New(constants.ErrEmptyUpload)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", constants.ErrUploadParse, err)
	}
	normalizeHeader(header)

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", constants.ErrUploadParse, err)
		}
		if row, ok := buildRow(header, record); ok {
			rows = append(rows, row)
			if len(rows) > maxRows {
				return nil, errors.New(constants.ErrTooManyRows)
			}
		}
	}
	return rows, nil
}

func parseXLSX(f io.Reader, maxRows int) ([]Row, error) {
	book, err := excelize.OpenReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", constants.ErrUploadParse, err)
	}
	defer book.Close()

	iter, err := book.Rows(book.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", constants.ErrUploadParse, err)
	}
	defer iter.Close()

	var (
		header []string
		rows   []Row
	)
	for iter.Next() {
		cells, err := iter.Columns()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", constants.ErrUploadParse, err)
		}
		if header == nil {
			header = cells
			normalizeHeader(header)
			continue
		}
		if row, ok := buildRow(header, cells); ok {
			rows = append(rows, row)
			if len(rows) > maxRows {
				return nil, errors.New(constants.ErrTooManyRows)
			}
		}
	}
	if header == nil {
		return nil, errors.New(constants.ErrEmptyUpload)
	}
	return rows, nil
}

func parseXLS(f io.ReadSeeker, maxRows int) ([]Row, error) {
	book, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", constants.ErrUploadParse, err)
	}
	sheet := book.GetSheet(0)
	if sheet == nil || sheet.MaxRow == 0 {
		return nil, errors.New(constants.ErrEmptyUpload)
	}

	var header []string
	first := sheet.Row(0)
	for c := first.FirstCol(); c < first.LastCol(); c++ {
		header = append(header, first.Col(c))
	}
	normalizeHeader(header)

	var rows []Row
	for i := 1; i <= int(sheet.MaxRow); i++ {
		sheetRow := sheet.Row(i)
		if sheetRow == nil {
			continue
		}
		cells := make([]string, len(header))
		for c := sheetRow.FirstCol(); c < sheetRow.LastCol() && c < len(header); c++ {
			cells[c] = sheetRow.Col(c)
		}
		if row, ok := buildRow(header, cells); ok {
			rows = append(rows, row)
			if len(rows) > maxRows {
				return nil, errors.New(constants.ErrTooManyRows)
			}
		}
	}
	return rows, nil
}

func normalizeHeader(header []string) {
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
}

// buildRow zips header and cells into a Row. Returns false for rows without
// an instrument code, which the pipeline ignores by contract.
func buildRow(header, cells []string) (Row, bool) {
	row := make(Row, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		if i < len(cells) {
			row[name] = strings.TrimSpace(cells[i])
		} else {
			row[name] = ""
		}
	}
	if row[constants.ColInstrumentCode] == "" {
		return nil, false
	}
	return row, true
}
