// Package runtime implements the embedded task runtime (C8): the
// scheduler, cancellation, and boot sequence that ship inside each
// compiled binary. Grounded on a teacher executor's
// level-fan-out-with-sync.WaitGroup pattern, generalized from "DAG levels
// across one shared host" to "per-host dependency-ready queue honoring
// play strategy", and on a teacher registry cache's atomic
// write-then-rename idiom for static-file materialization.
package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rustle-deploy/rustle-deploy/internal/plan"
)

// Boot materializes every embedded static file to its target path with
// the declared permission bits, atomically (§4.8 step 1: "open
// static-file payloads into the expected target paths (atomic write +
// permission set)"). It must run once, before the task loop starts;
// afterward the embedded-file set is read-only (§5 "Shared resources").
func Boot(files []plan.StaticFile, payloads map[string][]byte) error {
	for _, f := range files {
		data, ok := payloads[f.SourcePath]
		if !ok {
			return fmt.Errorf("boot: missing embedded payload for %s", f.SourcePath)
		}

		if dir := filepath.Dir(f.TargetPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("boot: create parent dir for %s: %w", f.TargetPath, err)
			}
		}

		perm := os.FileMode(f.Permission)
		if perm == 0 {
			perm = 0o644
		}

		tmp := f.TargetPath + ".tmp"
		if err := os.WriteFile(tmp, data, perm); err != nil {
			return fmt.Errorf("boot: write %s: %w", f.TargetPath, err)
		}
		if err := os.Chmod(tmp, perm); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("boot: chmod %s: %w", f.TargetPath, err)
		}
		if err := os.Rename(tmp, f.TargetPath); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("boot: place %s: %w", f.TargetPath, err)
		}
	}
	return nil
}
