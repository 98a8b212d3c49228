package weather

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// TimeLayout is the civil timestamp format of the hourly time array.
const TimeLayout = "2006-01-02T15:04"

// Table column names, in column order.
const (
	ColTime             = "time"
	ColTemperature      = "temperature"
	ColPrecipitation    = "precipitation"
	ColRelativeHumidity = "relative_humidity"
	ColDewPoint         = "dew_point"
)

// ColumnNames lists the table columns in order.
var ColumnNames = []string{ColTime, ColTemperature, ColPrecipitation, ColRelativeHumidity, ColDewPoint}

// sourceColumns maps each numeric table column to the hourly variable it is copied from.
var sourceColumns = []struct {
	column   string
	variable string
}{
	{ColTemperature, VarTemperature},
	{ColPrecipitation, VarPrecipitation},
	{ColRelativeHumidity, VarRelativeHumidity},
	{ColDewPoint, VarDewPoint},
}

// Table is the column-oriented hourly weather table. All columns have the same
// length and Time is strictly increasing. A Table is not modified after NewTable.
type Table struct {
	Location         *time.Location
	Time             []time.Time
	Temperature      []float64
	Precipitation    []float64
	RelativeHumidity []float64
	DewPoint         []float64
}

// Row is one hour of the table.
type Row struct {
	Time             time.Time `json:"time"`
	Temperature      float64   `json:"temperature"`
	Precipitation    float64   `json:"precipitation"`
	RelativeHumidity float64   `json:"relative_humidity"`
	DewPoint         float64   `json:"dew_point"`
}

// NewTable assembles a table from already-typed columns and checks its invariants.
// Times are presented in loc; a nil loc means UTC.
func NewTable(loc *time.Location, times []time.Time, temperature, precipitation, humidity, dewPoint []float64) (*Table, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := make([]time.Time, len(times))
	for i, ts := range times {
		local[i] = ts.In(loc)
	}
	t := &Table{
		Location:         loc,
		Time:             local,
		Temperature:      temperature,
		Precipitation:    precipitation,
		RelativeHumidity: humidity,
		DewPoint:         dewPoint,
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) validate() error {
	n := len(t.Time)
	for _, name := range ColumnNames[1:] {
		col, _ := t.Column(name)
		if len(col) != n {
			return &IntegrityError{Column: name, Got: len(col), Expected: n}
		}
	}
	for i := 1; i < n; i++ {
		if !t.Time[i].After(t.Time[i-1]) {
			return &IntegrityError{
				Column: ColTime,
				Reason: fmt.Sprintf("not strictly increasing at row %d (%s after %s)", i, t.Time[i].Format(TimeLayout), t.Time[i-1].Format(TimeLayout)),
			}
		}
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Time)
}

// Column returns a numeric column by its exact name.
func (t *Table) Column(name string) ([]float64, error) {
	switch name {
	case ColTemperature:
		return t.Temperature, nil
	case ColPrecipitation:
		return t.Precipitation, nil
	case ColRelativeHumidity:
		return t.RelativeHumidity, nil
	case ColDewPoint:
		return t.DewPoint, nil
	default:
		return nil, schemaErrorf("no numeric column named %q", name)
	}
}

// Row returns row i.
func (t *Table) Row(i int) Row {
	return Row{
		Time:             t.Time[i],
		Temperature:      t.Temperature[i],
		Precipitation:    t.Precipitation[i],
		RelativeHumidity: t.RelativeHumidity[i],
		DewPoint:         t.DewPoint[i],
	}
}

// Rows returns the rows whose time falls in [from, to].
func (t *Table) Rows(from, to time.Time) []Row {
	var out []Row
	for i, ts := range t.Time {
		if ts.Before(from) || ts.After(to) {
			continue
		}
		out = append(out, t.Row(i))
	}
	return out
}

// BuildTable projects the hourly block into a Table. Only exact variable names
// are accepted; time strings are civil times in loc.
func BuildTable(hourly map[string]any, loc *time.Location) (*Table, error) {
	return buildTable(hourly, loc, newCivilClock(loc))
}

// BuildTableAtOffset is BuildTable for time strings written at a fixed UTC
// offset, as the archive API reports in utc_offset_seconds. The resulting
// times are presented in loc.
func BuildTableAtOffset(hourly map[string]any, loc *time.Location, offsetSeconds int) (*Table, error) {
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", offsetSeconds), offsetSeconds)
	return buildTable(hourly, loc, func(s string) (time.Time, error) {
		return time.ParseInLocation(TimeLayout, s, zone)
	})
}

func buildTable(hourly map[string]any, loc *time.Location, resolve func(string) (time.Time, error)) (*Table, error) {
	rawTimes, err := hourlyArray(hourly, VarTime)
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, len(rawTimes))
	for i, v := range rawTimes {
		s, ok := v.(string)
		if !ok {
			return nil, schemaErrorf("hourly.%s[%d] is %T, expected a string", VarTime, i, v)
		}
		ts, err := resolve(s)
		if err != nil {
			return nil, schemaErrorf("hourly.%s[%d]: %v", VarTime, i, err)
		}
		times[i] = ts
	}

	cols := make(map[string][]float64, len(sourceColumns))
	for _, src := range sourceColumns {
		raw, err := hourlyArray(hourly, src.variable)
		if err != nil {
			return nil, err
		}
		if len(raw) != len(times) {
			return nil, &IntegrityError{Column: src.variable, Got: len(raw), Expected: len(times)}
		}
		vals, err := numbers(src.variable, raw)
		if err != nil {
			return nil, err
		}
		cols[src.column] = vals
	}

	return NewTable(loc, times, cols[ColTemperature], cols[ColPrecipitation], cols[ColRelativeHumidity], cols[ColDewPoint])
}

// newCivilClock resolves civil times in loc one after another. A wall time
// that occurs twice when clocks fall back takes the first occurrence that is
// later than the previous timestamp. A wall time skipped when clocks spring
// forward lands halfway between its two readings, so it stays between its
// neighbours whether the series steps in wall-clock or elapsed hours.
func newCivilClock(loc *time.Location) func(string) (time.Time, error) {
	var prev time.Time
	return func(s string) (time.Time, error) {
		wall, err := time.Parse(TimeLayout, s)
		if err != nil {
			return time.Time{}, err
		}
		ts := resolveCivil(wall, loc, prev)
		prev = ts
		return ts, nil
	}
}

func resolveCivil(wall time.Time, loc *time.Location, prev time.Time) time.Time {
	// Offsets half a day either side cover any transition near wall.
	_, before := wall.Add(-12 * time.Hour).In(loc).Zone()
	_, after := wall.Add(12 * time.Hour).In(loc).Zone()

	readings := []time.Time{wall.Add(-time.Duration(before) * time.Second)}
	if after != before {
		readings = append(readings, wall.Add(-time.Duration(after)*time.Second))
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].Before(readings[j]) })

	var valid []time.Time
	for _, r := range readings {
		if sameWallClock(r.In(loc), wall) {
			valid = append(valid, r)
		}
	}

	switch len(valid) {
	case 0:
		first, last := readings[0], readings[len(readings)-1]
		return first.Add(last.Sub(first) / 2).In(loc)
	case 1:
		return valid[0].In(loc)
	}
	for _, v := range valid {
		if prev.IsZero() || v.After(prev) {
			return v.In(loc)
		}
	}
	return valid[0].In(loc)
}

func sameWallClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd && a.Hour() == b.Hour() && a.Minute() == b.Minute()
}

func hourlyArray(hourly map[string]any, name string) ([]any, error) {
	node, ok := hourly[name]
	if !ok {
		return nil, schemaErrorf("hourly block has no %q array", name)
	}
	arr, ok := node.([]any)
	if !ok {
		return nil, schemaErrorf("hourly.%s is %T, expected an array", name, node)
	}
	return arr, nil
}

// numbers copies a JSON number array; null becomes NaN.
func numbers(name string, raw []any) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, v := range raw {
		switch n := v.(type) {
		case float64:
			out[i] = n
		case nil:
			out[i] = math.NaN()
		default:
			return nil, schemaErrorf("hourly.%s[%d] is %T, expected a number", name, i, v)
		}
	}
	return out, nil
}
