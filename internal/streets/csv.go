package streets

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/wahlkarte/wahlkarte/internal/model"
)

// ReadCSV loads street records from a CSV file with the canvassing column
// names. Unknown columns are ignored; missing ones stay zero.
func ReadCSV(path string) ([]model.StreetRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "streets: read %s", path)
	}
	// Spreadsheet exports sometimes carry a BOM.
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	records, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrapf(err, "streets: decode %s", path)
	}
	return records, nil
}

// Decode reads street records from r.
func Decode(r io.Reader) ([]model.StreetRecord, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if err == io.EOF {
			return nil, eris.New("streets: empty csv")
		}
		return nil, eris.Wrap(err, "streets: read header")
	}
	dec.Map = numericCell

	var out []model.StreetRecord
	for {
		var rec model.StreetRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "streets: decode row")
		}
		out = append(out, rec)
	}
	return out, nil
}

// numericCell maps blank and NaN cells of numeric columns to zero and
// accepts integral floats such as "1234.0" in int columns.
func numericCell(field, _ string, v any) string {
	switch v.(type) {
	case int:
		if blankNumber(field) {
			return "0"
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err == nil && f == math.Trunc(f) {
			return strconv.FormatInt(int64(f), 10)
		}
	case float64:
		if blankNumber(field) {
			return "0"
		}
	}
	return field
}

func blankNumber(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "nan")
}

// WriteCSV writes records to path, header first.
func WriteCSV(path string, records []model.StreetRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "streets: create %s", path)
	}
	if err := Encode(f, records); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "streets: close %s", path)
}

// Encode writes records as CSV to w. An empty slice still gets a header.
func Encode(w io.Writer, records []model.StreetRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(records) == 0 {
		if err := enc.EncodeHeader(model.StreetRecord{}); err != nil {
			return eris.Wrap(err, "streets: encode header")
		}
	}
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return eris.Wrapf(err, "streets: encode row %d", i)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "streets: flush csv")
}
