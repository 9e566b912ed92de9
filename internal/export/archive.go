package export

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/selfwatch/internal/store"
)

// ArchiveVersion is the current archive format version.
const ArchiveVersion = 1

// MaxDecompressedSize caps the decompressed payload of an archive (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// ArchiveHeader is the plain-text first line of an archive file.
type ArchiveHeader struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Checksum   string    `json:"checksum"`
	RunID      string    `json:"run_id"`
	Samples    int       `json:"samples"`
	Events     int       `json:"events"`
	Compressed bool      `json:"compressed"`
}

// Archive is a complete recorded run.
type Archive struct {
	Run     store.Run           `json:"run"`
	Samples []store.Sample      `json:"samples"`
	Events  []store.EventRecord `json:"events"`
}

// line is one JSONL record of the compressed payload.
type line struct {
	Run    *store.Run         `json:"run,omitempty"`
	Sample *store.Sample      `json:"sample,omitempty"`
	Event  *store.EventRecord `json:"event,omitempty"`
}

// WriteArchive writes a header line followed by the gzip-compressed JSONL
// payload: the run, then every sample, then every event.
func WriteArchive(path string, a *Archive) error {
	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	enc := json.NewEncoder(gzw)
	if err := enc.Encode(line{Run: &a.Run}); err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}
	for i := range a.Samples {
		if err := enc.Encode(line{Sample: &a.Samples[i]}); err != nil {
			return fmt.Errorf("encoding sample: %w", err)
		}
	}
	for i := range a.Events {
		if err := enc.Encode(line{Event: &a.Events[i]}); err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header := ArchiveHeader{
		Version:    ArchiveVersion,
		CreatedAt:  time.Now().UTC(),
		Checksum:   checksum(compressed.Bytes()),
		RunID:      a.Run.ID,
		Samples:    len(a.Samples),
		Events:     len(a.Events),
		Compressed: true,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(headerBytes, '\n')); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(compressed.Bytes()); err != nil {
		return fmt.Errorf("writing compressed payload: %w", err)
	}
	return f.Sync()
}

// ReadArchive reads an archive, verifies its checksum and decodes it.
func ReadArchive(path string) (*Archive, error) {
	header, payload, err := readVerified(path)
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	limited := &io.LimitedReader{R: gzr, N: MaxDecompressedSize + 1}
	dec := json.NewDecoder(limited)
	a := &Archive{}
	for {
		var l line
		err := dec.Decode(&l)
		if err == io.EOF {
			break
		}
		if limited.N <= 0 {
			return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding payload: %w", err)
		}
		switch {
		case l.Run != nil:
			a.Run = *l.Run
		case l.Sample != nil:
			a.Samples = append(a.Samples, *l.Sample)
		case l.Event != nil:
			a.Events = append(a.Events, *l.Event)
		}
	}

	if len(a.Samples) != header.Samples || len(a.Events) != header.Events {
		return nil, fmt.Errorf("archive holds %d samples and %d events, header says %d and %d",
			len(a.Samples), len(a.Events), header.Samples, header.Events)
	}
	return a, nil
}

// ReadArchiveHeader reads only the header line.
func ReadArchiveHeader(path string) (*ArchiveHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header, _, err := readHeader(bufio.NewReader(f))
	return header, err
}

// VerifyArchive checks an archive's checksum without decompressing it.
func VerifyArchive(path string) error {
	_, _, err := readVerified(path)
	return err
}

func readHeader(r *bufio.Reader) (*ArchiveHeader, *bufio.Reader, error) {
	headerLine, err := r.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header line: %w", err)
	}
	var header ArchiveHeader
	if err := json.Unmarshal(bytes.TrimSpace(headerLine), &header); err != nil {
		return nil, nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != ArchiveVersion {
		return nil, nil, fmt.Errorf("unsupported archive version %d", header.Version)
	}
	return &header, r, nil
}

func readVerified(path string) (*ArchiveHeader, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header, r, err := readHeader(bufio.NewReader(f))
	if err != nil {
		return nil, nil, err
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	if actual := checksum(payload); actual != header.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return header, payload, nil
}

func checksum(b []byte) string {
	hash := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(hash[:])
}
