package anomaly

import "salesdash/internal/core"

// Row is one entry of the dashboard's "data" array.
type Row struct {
	Month   string  `json:"month"`
	Sales   float64 `json:"sales"`
	ZScore  float64 `json:"z_score"`
	Anomaly bool    `json:"anomaly"`
}

// Summary carries the aggregates shown next to the chart.
type Summary struct {
	Count     int     `json:"count"`
	Anomalies int     `json:"anomalies"`
	MeanSales float64 `json:"mean_sales"`
	Threshold float64 `json:"threshold"`
}

// Rows converts a scored series to wire rows, keeping order. The result is
// never nil so an empty series encodes as [].
func Rows(s core.AnomalySeries) []Row {
	out := make([]Row, len(s.Points))
	for i, p := range s.Points {
		out[i] = Row{Month: p.Period, Sales: p.Amount, ZScore: p.ZScore, Anomaly: p.IsAnomaly}
	}
	return out
}

func Summarize(s core.AnomalySeries) Summary {
	return Summary{
		Count:     s.Len(),
		Anomalies: s.AnomalyCount(),
		MeanSales: round(s.MeanAmount(), 2),
		Threshold: s.Threshold,
	}
}
