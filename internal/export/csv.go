package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

const utf8BOM = "\ufeff"

// Header returns the column titles: Nama, NOP, one column per year, Total.
func Header(years entity.YearRange) []string {
	out := []string{"Nama", "NOP"}
	for _, y := range years.Years() {
		out = append(out, strconv.Itoa(y))
	}
	return append(out, "Total")
}

// WriteCSV writes records as a BOM-prefixed, comma-separated table. The name
// is always quoted and the NOP carries a leading apostrophe so spreadsheets
// keep it as text; the NOP cell is quoted only when it contains a separator,
// a quote or a line break. A year with no data is an empty cell.
func WriteCSV(w io.Writer, records []entity.TaxRecord, years entity.YearRange) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM + strings.Join(Header(years), ",") + "\n"); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := bw.WriteString(csvRow(r, years) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func csvRow(r entity.TaxRecord, years entity.YearRange) string {
	cells := make([]string, 0, len(years.Years())+3)
	cells = append(cells, quote(r.TaxpayerName), quoteIfNeeded("'"+r.ObjectID))
	for _, y := range years.Years() {
		if amt, ok := r.Amount(y); ok {
			cells = append(cells, amt.String())
		} else {
			cells = append(cells, "")
		}
	}
	cells = append(cells, r.Total.String())
	return strings.Join(cells, ",")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// quoteIfNeeded quotes s only when it would otherwise break the row.
func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}
