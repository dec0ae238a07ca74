package summary

import (
	"bytes"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// File names of the published summaries.
const (
	CandidatesFile = "kandidaten_uebersicht.csv"
	CountiesFile   = "kreistagskandidaten_statistik.csv"
	DistrictsFile  = "kandidaten_bezirke.csv"
	WorkbookFile   = "wahlkarte_statistik.xlsx"
)

// Sheet is one named table of a workbook.
type Sheet struct {
	Name string
	Rows any // slice of a csv-tagged struct
}

// WriteCSV writes rows, a slice of csv-tagged structs, to path.
func WriteCSV(path string, rows any) error {
	data, err := marshal(rows)
	if err != nil {
		return err
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "summary: write %s", path)
}

// WriteXLSX writes all sheets to one workbook. Integer cells are stored as
// numbers so spreadsheet sums work.
func WriteXLSX(path string, sheets []Sheet) error {
	f := xlsx.NewFile()
	for _, s := range sheets {
		table, err := toTable(s.Rows)
		if err != nil {
			return eris.Wrapf(err, "summary: sheet %s", s.Name)
		}
		sheet, err := f.AddSheet(s.Name)
		if err != nil {
			return eris.Wrapf(err, "summary: add sheet %s", s.Name)
		}
		for i, cells := range table {
			row := sheet.AddRow()
			for _, v := range cells {
				cell := row.AddCell()
				if n, err := strconv.Atoi(v); err == nil && i > 0 {
					cell.SetInt(n)
					continue
				}
				cell.SetString(v)
			}
		}
	}
	return eris.Wrapf(f.Save(path), "summary: save %s", path)
}

func marshal(rows any) ([]byte, error) {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return nil, eris.Wrap(err, "summary: marshal csv")
	}
	return data, nil
}

// toTable renders rows through the csv tags so the workbook and the CSV
// files share headers.
func toTable(rows any) ([][]string, error) {
	data, err := marshal(rows)
	if err != nil {
		return nil, err
	}
	table, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "summary: reparse csv")
	}
	return table, nil
}
