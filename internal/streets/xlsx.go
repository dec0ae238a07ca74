package streets

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/wahlkarte/wahlkarte/internal/model"
)

// ReadXLSX loads street records from a workbook sheet whose first row holds
// the CSV column names. An empty sheet name selects the first sheet.
func ReadXLSX(path, sheetName string) ([]model.StreetRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "streets: open workbook %s", path)
	}

	sheet, err := getSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	dec, err := csvutil.NewDecoder(&sheetReader{rows: sheet.Rows})
	if err != nil {
		if err == io.EOF {
			return nil, eris.Errorf("streets: sheet %q is empty", sheet.Name)
		}
		return nil, eris.Wrap(err, "streets: read sheet header")
	}
	dec.Map = numericCell

	var out []model.StreetRecord
	for {
		var rec model.StreetRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "streets: decode sheet %q", sheet.Name)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadTable loads a street table by extension: .xlsx workbooks (first
// sheet) or CSV otherwise.
func ReadTable(path string) ([]model.StreetRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path, "")
	}
	return ReadCSV(path)
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("streets: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("streets: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

// sheetReader feeds sheet rows to csvutil. Rows are padded to the header
// width since trailing empty cells are not stored.
type sheetReader struct {
	rows  []*xlsx.Row
	next  int
	width int
}

func (r *sheetReader) Read() ([]string, error) {
	for r.next < len(r.rows) {
		row := r.rows[r.next]
		r.next++

		cells := make([]string, 0, max(r.width, len(row.Cells)))
		blank := true
		for _, cell := range row.Cells {
			v := strings.TrimSpace(cell.String())
			if v != "" {
				blank = false
			}
			cells = append(cells, v)
		}
		if blank {
			continue
		}
		if r.width == 0 {
			for cells[len(cells)-1] == "" {
				cells = cells[:len(cells)-1]
			}
			r.width = len(cells)
		}
		for len(cells) < r.width {
			cells = append(cells, "")
		}
		return cells[:r.width], nil
	}
	return nil, io.EOF
}
