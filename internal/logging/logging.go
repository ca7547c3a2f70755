// Package logging creates the file-backed loggers used by the pipeline.
// New opens a "<stage>.log" file under a given directory; the CLI creates
// one such logger ("intertext.log" in the run's output directory) and
// every pipeline stage writes to it, matching the one-logger-per-process
// convention of the tool this package was adapted from.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// New creates (or truncates) a log file named "<stage>.log" under logDir
// and returns a *log.Logger writing to it with time-only timestamps.
func New(logDir, stage string) (*log.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	fid, err := os.Create(filepath.Join(logDir, stage+".log"))
	if err != nil {
		return nil, fmt.Errorf("creating log file for stage %q: %w", stage, err)
	}
	return log.New(fid, "", log.Ltime), nil
}
