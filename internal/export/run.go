package export

import (
	"context"
	"fmt"

	"github.com/nvandessel/selfwatch/internal/store"
)

// Paths names the files WriteRun produces. Empty fields are skipped.
type Paths struct {
	Arrow   string
	Archive string
}

// WriteRun loads a recorded run from rec and writes it to the requested files.
func WriteRun(ctx context.Context, rec store.Recorder, runID string, paths Paths) error {
	if paths.Arrow == "" && paths.Archive == "" {
		return nil
	}

	run, err := rec.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	samples, err := rec.Samples(ctx, runID, 0)
	if err != nil {
		return fmt.Errorf("failed to load samples: %w", err)
	}

	if paths.Arrow != "" {
		if err := WriteArrowFile(paths.Arrow, samples); err != nil {
			return fmt.Errorf("failed to write arrow file: %w", err)
		}
	}
	if paths.Archive != "" {
		events, err := rec.Events(ctx, runID, 0)
		if err != nil {
			return fmt.Errorf("failed to load events: %w", err)
		}
		if err := WriteArchive(paths.Archive, &Archive{Run: *run, Samples: samples, Events: events}); err != nil {
			return fmt.Errorf("failed to write archive: %w", err)
		}
	}
	return nil
}
