// Package snapshot stores the weather table as an Apache Arrow IPC file.
package snapshot

import (
	"fmt"
	"os"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/i474232898/weather-history/internal/common"
	"github.com/i474232898/weather-history/internal/weather"
)

const unitKey = "unit"

var units = map[string]string{
	weather.ColTemperature:      "°F",
	weather.ColPrecipitation:    "mm",
	weather.ColRelativeHumidity: "%",
	weather.ColDewPoint:         "°F",
}

// Schema returns the snapshot schema for a table whose timestamps live in tz.
func Schema(tz string) *arrow.Schema {
	fields := []arrow.Field{
		{Name: weather.ColTime, Type: &arrow.TimestampType{Unit: arrow.Second, TimeZone: tz}},
	}
	for _, name := range weather.ColumnNames[1:] {
		fields = append(fields, arrow.Field{
			Name:     name,
			Type:     arrow.PrimitiveTypes.Float64,
			Metadata: arrow.NewMetadata([]string{unitKey}, []string{units[name]}),
		})
	}
	return arrow.NewSchema(fields, nil)
}

// Arrow implements weather.Persister.
type Arrow struct {
	pool memory.Allocator
}

func NewArrow() *Arrow {
	return &Arrow{pool: memory.NewGoAllocator()}
}

// Save writes t to path as a single-record Arrow IPC file.
func (a *Arrow) Save(t *weather.Table, path string) error {
	schema := Schema(t.Location.String())

	b := array.NewRecordBuilder(a.pool, schema)
	defer b.Release()

	tb := b.Field(0).(*array.TimestampBuilder)
	tb.Reserve(t.Len())
	for _, ts := range t.Time {
		tb.Append(arrow.Timestamp(ts.Unix()))
	}
	for i, name := range weather.ColumnNames[1:] {
		col, err := t.Column(name)
		if err != nil {
			return err
		}
		b.Field(i+1).(*array.Float64Builder).AppendValues(col, nil)
	}

	rec := b.NewRecord()
	defer rec.Release()

	return common.WriteAtomic(path, func(f *os.File) error {
		w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(a.pool))
		if err != nil {
			return fmt.Errorf("open arrow writer: %w", err)
		}
		if err := w.Write(rec); err != nil {
			_ = w.Close()
			return fmt.Errorf("write record: %w", err)
		}
		return w.Close()
	})
}

// Load reads a snapshot written by Save.
func (a *Arrow) Load(path string) (*weather.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(a.pool))
	if err != nil {
		return nil, fmt.Errorf("open arrow reader: %w", err)
	}
	defer r.Close()

	schema := r.Schema()
	if err := checkSchema(schema); err != nil {
		return nil, err
	}
	tsType := schema.Field(0).Type.(*arrow.TimestampType)
	loc, err := time.LoadLocation(tsType.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("snapshot timezone %q: %w", tsType.TimeZone, err)
	}

	var (
		times []time.Time
		cols  = make([][]float64, len(weather.ColumnNames)-1)
	)
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", i, err)
		}

		tsCol := rec.Column(0).(*array.Timestamp)
		for j := 0; j < tsCol.Len(); j++ {
			times = append(times, time.Unix(int64(tsCol.Value(j)), 0).In(loc))
		}
		for c := range cols {
			cols[c] = append(cols[c], rec.Column(c+1).(*array.Float64).Float64Values()...)
		}
	}

	return weather.NewTable(loc, times, cols[0], cols[1], cols[2], cols[3])
}

func checkSchema(schema *arrow.Schema) error {
	if schema.NumFields() != len(weather.ColumnNames) {
		return &weather.SchemaError{Reason: fmt.Sprintf("snapshot has %d columns, expected %d", schema.NumFields(), len(weather.ColumnNames))}
	}
	for i, name := range weather.ColumnNames {
		f := schema.Field(i)
		if f.Name != name {
			return &weather.SchemaError{Reason: fmt.Sprintf("snapshot column %d is %q, expected %q", i, f.Name, name)}
		}
		want := arrow.FLOAT64
		if i == 0 {
			want = arrow.TIMESTAMP
		}
		if f.Type.ID() != want {
			return &weather.SchemaError{Reason: fmt.Sprintf("snapshot column %q has type %s", name, f.Type)}
		}
	}
	return nil
}
