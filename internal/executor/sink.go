package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirSink writes artifact content under a run's artifacts directory, one
// file per (item, artifact), namespaced by item ID.
type DirSink struct {
	root string
}

// NewDirSink creates a sink rooted at dir (.foreman/runs/<id>/artifacts).
func NewDirSink(dir string) *DirSink {
	return &DirSink{root: dir}
}

// Write implements Sink. Artifact names may carry path separators; they are
// flattened so content never escapes the sink root.
func (s *DirSink) Write(itemID, artifact, content string) error {
	name := strings.NewReplacer("/", "__", string(os.PathSeparator), "__", "..", "_").Replace(artifact)
	dir := filepath.Join(s.root, itemID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("executor: ensure artifact dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("executor: write %s: %w", path, err)
	}
	return nil
}
