package store

import (
	"fmt"
	"path/filepath"

	"github.com/kshedden/intertext/internal/config"
)

// Open constructs the Store selected by rc.Backend, rooted under
// rc.OutputDir, matching the "Backend choice is a configuration enum"
// re-architecture called for by the pipeline design.
func Open(rc *config.RunConfig) (Store, error) {
	switch rc.Backend {
	case config.BackendSQLite:
		return OpenSQLite(filepath.Join(rc.OutputDir, "db.sqlite"))
	case config.BackendFileTree:
		return OpenFileTree(filepath.Join(rc.OutputDir, "db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %v", rc.Backend)
	}
}
