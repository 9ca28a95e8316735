package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTodoWorkbook(t *testing.T) {
	data, err := TodoWorkbook("WG Sonnenhof", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), []TodoRow{
		{Was: "Fenster putzen", Wer: "Jane", Wann: "Freitag"},
		{Was: "Einkauf", Wer: "Max", Wann: ""},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Todos")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "WG Sonnenhof, 01.03.2024", rows[0][0])
	assert.Equal(t, []string{"Was", "Wer", "Wann"}, rows[1])
	assert.Equal(t, []string{"Fenster putzen", "Jane", "Freitag"}, rows[2])
	assert.Equal(t, []string{"Einkauf", "Max"}, rows[3])
}

func TestTodoWorkbook_Empty(t *testing.T) {
	data, err := TodoWorkbook("G", time.Now(), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Todos")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
