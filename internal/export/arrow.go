// Package export writes recorded runs to portable files: an Arrow IPC
// file of flattened samples for columnar tools, and a checksummed gzip
// JSONL archive of a whole run.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/nvandessel/selfwatch/internal/store"
)

// BatchSize is the number of rows per Arrow record batch.
const BatchSize = 1024

// metric columns in schema order, after run_id, tick and recorded_at
var metricColumns = []struct {
	name string
	get  func(*store.Sample) float64
	set  func(*store.Sample, float64)
}{
	{"entropy", func(s *store.Sample) float64 { return s.Entropy }, func(s *store.Sample, v float64) { s.Entropy = v }},
	{"trend", func(s *store.Sample) float64 { return s.Trend }, func(s *store.Sample, v float64) { s.Trend = v }},
	{"meta_entropy", func(s *store.Sample) float64 { return s.MetaEntropy }, func(s *store.Sample, v float64) { s.MetaEntropy = v }},
	{"complexity", func(s *store.Sample) float64 { return s.Complexity }, func(s *store.Sample, v float64) { s.Complexity = v }},
	{"meta_complexity", func(s *store.Sample) float64 { return s.MetaComplexity }, func(s *store.Sample, v float64) { s.MetaComplexity = v }},
	{"familiarity", func(s *store.Sample) float64 { return s.Familiarity }, func(s *store.Sample, v float64) { s.Familiarity = v }},
	{"mutual_information", func(s *store.Sample) float64 { return s.MutualInformation }, func(s *store.Sample, v float64) { s.MutualInformation = v }},
	{"causal_flow", func(s *store.Sample) float64 { return s.CausalFlow }, func(s *store.Sample, v float64) { s.CausalFlow = v }},
	{"compression_ratio", func(s *store.Sample) float64 { return s.CompressionRatio }, func(s *store.Sample, v float64) { s.CompressionRatio = v }},
	{"resonance", func(s *store.Sample) float64 { return s.Resonance }, func(s *store.Sample, v float64) { s.Resonance = v }},
	{"strange_loop", func(s *store.Sample) float64 { return s.StrangeLoop }, func(s *store.Sample, v float64) { s.StrangeLoop = v }},
	{"model_confidence", func(s *store.Sample) float64 { return s.ModelConfidence }, func(s *store.Sample, v float64) { s.ModelConfidence = v }},
}

const fixedColumns = 3 // run_id, tick, recorded_at

var timestampType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

// Schema returns the Arrow schema for flattened samples.
func Schema() *arrow.Schema {
	fields := []arrow.Field{
		{Name: "run_id", Type: arrow.BinaryTypes.String},
		{Name: "tick", Type: arrow.PrimitiveTypes.Int64},
		{Name: "recorded_at", Type: timestampType},
	}
	for _, c := range metricColumns {
		fields = append(fields, arrow.Field{Name: c.name, Type: arrow.PrimitiveTypes.Float64})
	}
	fields = append(fields, arrow.Field{Name: "invariants", Type: arrow.PrimitiveTypes.Int64})
	md := arrow.NewMetadata([]string{"format"}, []string{"selfwatch-samples"})
	return arrow.NewSchema(fields, &md)
}

// WriteArrow writes samples to w as an Arrow IPC file in batches. The
// Arrow file format needs a seekable writer.
func WriteArrow(w io.WriteSeeker, samples []store.Sample) error {
	mem := memory.NewGoAllocator()
	schema := Schema()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("creating arrow writer: %w", err)
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for start := 0; start < len(samples); start += BatchSize {
		batch := samples[start:min(start+BatchSize, len(samples))]
		for i := range batch {
			s := &batch[i]
			b.Field(0).(*array.StringBuilder).Append(s.RunID)
			b.Field(1).(*array.Int64Builder).Append(s.Tick)
			b.Field(2).(*array.TimestampBuilder).Append(arrow.Timestamp(s.RecordedAt.UnixNano()))
			for j, c := range metricColumns {
				b.Field(fixedColumns + j).(*array.Float64Builder).Append(c.get(s))
			}
			b.Field(fixedColumns + len(metricColumns)).(*array.Int64Builder).Append(int64(s.Invariants))
		}
		rec := b.NewRecord()
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			fw.Close()
			return fmt.Errorf("writing record batch: %w", err)
		}
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("closing arrow writer: %w", err)
	}
	return nil
}

// WriteArrowFile writes samples to path, creating parent directories.
func WriteArrowFile(path string, samples []store.Sample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := WriteArrow(f, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadArrowFile reads samples written by WriteArrowFile. Payloads are not
// part of the columnar format and come back empty.
func ReadArrowFile(path string) ([]store.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	fr, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("creating arrow reader: %w", err)
	}
	defer fr.Close()

	if !fr.Schema().Equal(Schema()) {
		return nil, fmt.Errorf("unexpected schema: %s", fr.Schema())
	}

	var samples []store.Sample
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("reading record batch %d: %w", i, err)
		}
		samples = appendRecord(samples, rec)
	}
	return samples, nil
}

func appendRecord(dst []store.Sample, rec arrow.Record) []store.Sample {
	runs := rec.Column(0).(*array.String)
	ticks := rec.Column(1).(*array.Int64)
	times := rec.Column(2).(*array.Timestamp)
	metrics := make([]*array.Float64, len(metricColumns))
	for j := range metricColumns {
		metrics[j] = rec.Column(fixedColumns + j).(*array.Float64)
	}
	invs := rec.Column(fixedColumns + len(metricColumns)).(*array.Int64)

	for r := 0; r < int(rec.NumRows()); r++ {
		s := store.Sample{
			RunID:      runs.Value(r),
			Tick:       ticks.Value(r),
			RecordedAt: time.Unix(0, int64(times.Value(r))).UTC(),
			Invariants: int(invs.Value(r)),
		}
		for j, c := range metricColumns {
			c.set(&s, metrics[j].Value(r))
		}
		dst = append(dst, s)
	}
	return dst
}
