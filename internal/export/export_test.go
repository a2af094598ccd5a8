package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/repository"
)

var years = entity.YearRange{Start: 2020, End: 2021}

func budi() entity.TaxRecord {
	arrears := entity.NewArrears(years)
	arrears[2021] = decimal.NewNullDecimal(decimal.NewFromInt(500))
	return entity.TaxRecord{
		TaxpayerName:  "Budi",
		ObjectID:      "123",
		ArrearsByYear: arrears,
		Total:         decimal.NewFromInt(500),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []entity.TaxRecord{budi()}, years))

	assert.Equal(t, "\ufeffNama,NOP,2020,2021,Total\n\"Budi\",'123,,500,500\n", buf.String())
}

func TestWriteCSV_ZeroAndQuotes(t *testing.T) {
	rec := budi()
	rec.TaxpayerName = `PT "Maju", Tbk`
	rec.ArrearsByYear[2020] = decimal.NewNullDecimal(decimal.Zero)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []entity.TaxRecord{rec}, years))
	assert.Contains(t, buf.String(), "\"PT \"\"Maju\"\", Tbk\",'123,0,500,500\n")
}

func TestWriteCSV_ObjectIDWithSeparators(t *testing.T) {
	tests := []struct {
		nop  string
		cell string
	}{
		{"14,06", `"'14,06"`},
		{`12"3`, `"'12""3"`},
		{"12\n3", "\"'12\n3\""},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			rec := budi()
			rec.ObjectID = tt.nop

			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, []entity.TaxRecord{rec}, years))
			assert.Contains(t, buf.String(), `"Budi",`+tt.cell+",,500,500\n")

			rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Len(t, rows[1], len(rows[0]))
			assert.Equal(t, "'"+tt.nop, rows[1][1])
		})
	}
}

func TestWriteCSV_NoRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, years))
	assert.Equal(t, "\ufeffNama,NOP,2020,2021,Total\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	data, err := WriteXLSX([]entity.TaxRecord{budi()}, years)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Nama", "NOP", "2020", "2021", "Total"}, rows[0])
	assert.Equal(t, "Budi", rows[1][0])
	assert.Equal(t, "123", rows[1][1])
	assert.Equal(t, "", rows[1][2])
	assert.Equal(t, "500", rows[1][3])
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "data_tunggakan_pbb_2026-10-19.csv", FileName(CSV, at))
	assert.Equal(t, "data_tunggakan_pbb_2026-10-19.xlsx", FileName(XLSX, at))
}

func TestService_Export(t *testing.T) {
	store := repository.NewMemoryStore(nil)
	require.NoError(t, store.Append(context.Background(), []entity.TaxRecord{budi()}))
	svc := NewService(store, years, nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) }

	name, data, err := svc.Export(context.Background(), CSV)
	require.NoError(t, err)
	assert.Equal(t, "data_tunggakan_pbb_2026-01-05.csv", name)
	assert.Contains(t, string(data), "'123,,500,500")

	_, _, err = svc.Export(context.Background(), Format("pdf"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Equal(t, "text/csv; charset=utf-8", CSV.ContentType())
}
