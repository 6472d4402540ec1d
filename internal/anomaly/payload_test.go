package anomaly

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/core"
)

func TestRowsAndSummary(t *testing.T) {
	res, err := Detect([]core.SalesObservation{
		{Period: "Jan", Amount: 0}, {Period: "Feb", Amount: 0}, {Period: "Mar", Amount: 0},
		{Period: "Apr", Amount: 0}, {Period: "May", Amount: 5},
	}, DefaultThreshold)
	require.NoError(t, err)

	rows := Rows(res)
	require.Len(t, rows, 5)
	assert.Equal(t, Row{Month: "May", Sales: 5, ZScore: 2, Anomaly: true}, rows[4])

	b, err := json.Marshal(rows[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"month":"Jan","sales":0,"z_score":-0.5,"anomaly":false}`, string(b))

	sum := Summarize(res)
	assert.Equal(t, Summary{Count: 5, Anomalies: 1, MeanSales: 1, Threshold: 2}, sum)
}

func TestRows_EmptyEncodesAsArray(t *testing.T) {
	b, err := json.Marshal(Rows(core.AnomalySeries{}))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}
