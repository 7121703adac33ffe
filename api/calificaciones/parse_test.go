package calificaciones

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NuamCalifSaas/api/constants"
)

func TestParseRowsCSV(t *testing.T) {
	csv := "Codigo_Instrumento, Fecha_Informe ,monto_8\n" +
		"COPEC,2024-12-31, 100 \n" +
		"BSAN,2024-06-30,200\n"

	rows, err := ParseRows(strings.NewReader(csv), "cartera.csv", 1000)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// headers lowercased and trimmed, cells trimmed
	assert.Equal(t, "COPEC", rows[0]["codigo_instrumento"])
	assert.Equal(t, "2024-12-31", rows[0]["fecha_informe"])
	assert.Equal(t, "100", rows[0]["monto_8"])
	assert.Equal(t, "BSAN", rows[1]["codigo_instrumento"])
}

func TestParseRowsSkipsRowsWithoutCode(t *testing.T) {
	csv := "codigo_instrumento,monto_8\n" +
		"COPEC,100\n" +
		",200\n" +
		"   ,300\n" +
		"BSAN,400\n"

	rows, err := ParseRows(strings.NewReader(csv), "cartera.csv", 1000)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "COPEC", rows[0]["codigo_instrumento"])
	assert.Equal(t, "BSAN", rows[1]["codigo_instrumento"])
}

func TestParseRowsRaggedCSV(t *testing.T) {
	csv := "codigo_instrumento,monto_8,monto_9\n" +
		"COPEC,100\n"

	rows, err := ParseRows(strings.NewReader(csv), "cartera.csv", 1000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "100", rows[0]["monto_8"])
	assert.Equal(t, "", rows[0]["monto_9"])
}

func TestParseRowsUnsupportedFormat(t *testing.T) {
	_, err := ParseRows(strings.NewReader("x"), "cartera.pdf", 1000)
	require.Error(t, err)
	assert.Equal(t, constants.ErrUnsupportedFormat, err.Error())
}

func TestParseRowsEmptyFile(t *testing.T) {
	_, err := ParseRows(strings.NewReader(""), "cartera.csv", 1000)
	require.Error(t, err)
	assert.Equal(t, constants.ErrEmptyUpload, err.Error())
}

func TestParseRowsEnforcesRowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("codigo_instrumento\n")
	for i := 0; i < 3; i++ {
		b.WriteString("COPEC\n")
	}

	_, err := ParseRows(strings.NewReader(b.String()), "cartera.csv", 2)
	require.Error(t, err)
	assert.Equal(t, constants.ErrTooManyRows, err.Error())
}
