package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/selfwatch/internal/store"
)

func samples(n int) []store.Sample {
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	out := make([]store.Sample, n)
	for i := range out {
		out[i] = store.Sample{
			RunID:            "run-1",
			Tick:             int64(i * 30),
			RecordedAt:       base.Add(time.Duration(i) * 500 * time.Millisecond),
			Entropy:          float64(i%10) / 10,
			Complexity:       0.25,
			StrangeLoop:      float64(i) / float64(n),
			ModelConfidence:  0.5,
			CompressionRatio: 0.125,
			Invariants:       i % 4,
		}
	}
	return out
}

func TestArrow_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"empty", 0},
		{"single batch", 10},
		{"several batches", BatchSize*2 + 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", "samples.arrow")
			in := samples(tt.n)
			if err := WriteArrowFile(path, in); err != nil {
				t.Fatalf("WriteArrowFile() error = %v", err)
			}
			out, err := ReadArrowFile(path)
			if err != nil {
				t.Fatalf("ReadArrowFile() error = %v", err)
			}
			if len(out) != len(in) {
				t.Fatalf("read %d samples, want %d", len(out), len(in))
			}
			for i := range in {
				if !sameColumns(out[i], in[i]) {
					t.Fatalf("sample %d = %+v, want %+v", i, out[i], in[i])
				}
			}
		})
	}
}

// sameColumns compares the fields the columnar format carries.
func sameColumns(a, b store.Sample) bool {
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return false
	}
	a.RecordedAt, b.RecordedAt = time.Time{}, time.Time{}
	a.Payload, b.Payload = nil, nil
	return reflect.DeepEqual(a, b)
}

func TestArrow_SchemaColumns(t *testing.T) {
	s := Schema()
	if s.NumFields() != fixedColumns+len(metricColumns)+1 {
		t.Errorf("NumFields() = %d", s.NumFields())
	}
	for _, name := range []string{"run_id", "tick", "recorded_at", "entropy", "strange_loop", "invariants"} {
		if len(s.FieldIndices(name)) != 1 {
			t.Errorf("schema missing column %q", name)
		}
	}
}

func TestArchive_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.swa")
	in := &Archive{
		Run:     store.Run{ID: "run-1", Entities: 128, TickRate: 60, Ticks: 900, Source: "sim"},
		Samples: samples(5),
		Events: []store.EventRecord{
			{RunID: "run-1", Tick: 10, Kind: "inflection", Value: 0.4, Fields: map[string]any{"direction": "chaos-to-order"}},
		},
	}
	in.Samples[0].Payload = json.RawMessage(`{"tick":0}`)

	if err := WriteArchive(path, in); err != nil {
		t.Fatalf("WriteArchive() error = %v", err)
	}

	header, err := ReadArchiveHeader(path)
	if err != nil {
		t.Fatalf("ReadArchiveHeader() error = %v", err)
	}
	if header.RunID != "run-1" || header.Samples != 5 || header.Events != 1 || !header.Compressed {
		t.Errorf("header = %+v", header)
	}
	if err := VerifyArchive(path); err != nil {
		t.Errorf("VerifyArchive() error = %v", err)
	}

	out, err := ReadArchive(path)
	if err != nil {
		t.Fatalf("ReadArchive() error = %v", err)
	}
	if out.Run.ID != "run-1" || out.Run.Ticks != 900 {
		t.Errorf("Run = %+v", out.Run)
	}
	if len(out.Samples) != 5 || string(out.Samples[0].Payload) != `{"tick":0}` {
		t.Errorf("Samples = %+v", out.Samples)
	}
	if len(out.Events) != 1 || out.Events[0].Fields["direction"] != "chaos-to-order" {
		t.Errorf("Events = %+v", out.Events)
	}
}

func TestArchive_DetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.swa")
	if err := WriteArchive(path, &Archive{Run: store.Run{ID: "x"}, Samples: samples(3)}); err != nil {
		t.Fatalf("WriteArchive() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	if err := VerifyArchive(path); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("VerifyArchive() error = %v, want checksum mismatch", err)
	}
	if _, err := ReadArchive(path); err == nil {
		t.Error("ReadArchive() should fail on a corrupted file")
	}
}

func TestArchive_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.swa")
	if err := os.WriteFile(path, []byte(`{"version":9}`+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadArchiveHeader(path); err == nil {
		t.Error("ReadArchiveHeader() should reject version 9")
	}
}

func TestReadSeries(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []float64
		wantErr bool
	}{
		{"plain", "0.1\n0.2\n\n0.3\n", []float64{0.1, 0.2, 0.3}, false},
		{"comments", "# entropy\n0.5\n# done\n", []float64{0.5}, false},
		{"csv with header", "tick,entropy\n0,0.4\n1,0.6\n", []float64{0.4, 0.6}, false},
		{"bad line", "0.1\nabc\n", nil, true},
		{"empty", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadSeries(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadSeries() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ReadSeries() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ReadSeries()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
