package weather

import (
	"math"
	"time"
)

// ColumnStats summarizes one numeric column. NaN values are skipped.
type ColumnStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// Summary is an aggregate view of a table.
type Summary struct {
	Location Location               `json:"location"`
	Rows     int                    `json:"rows"`
	From     time.Time              `json:"from"`
	To       time.Time              `json:"to"`
	Columns  map[string]ColumnStats `json:"columns"`
}

// Summarize computes per-column count/min/max/mean over the whole table.
func Summarize(loc Location, t *Table) Summary {
	s := Summary{
		Location: loc,
		Rows:     t.Len(),
		Columns:  make(map[string]ColumnStats, len(ColumnNames)-1),
	}
	if t.Len() > 0 {
		s.From = t.Time[0]
		s.To = t.Time[t.Len()-1]
	}

	for _, name := range ColumnNames[1:] {
		col, _ := t.Column(name)
		s.Columns[name] = columnStats(col)
	}
	return s
}

func columnStats(col []float64) ColumnStats {
	var (
		st  ColumnStats
		sum float64
	)
	st.Min = math.Inf(1)
	st.Max = math.Inf(-1)

	for _, v := range col {
		if math.IsNaN(v) {
			continue
		}
		st.Count++
		sum += v
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}

	if st.Count == 0 {
		return ColumnStats{}
	}
	st.Mean = sum / float64(st.Count)
	return st
}
