package funnel

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/chunk"
	"github.com/sells-group/disclosure-cli/internal/model"
)

// DumpForwarded writes the stage's forwarded segments to
// dir/<entity>_<period>_<task>_forwarded.txt in segment-file format and
// returns the path. Stages that forward nothing write nothing.
func DumpForwarded(dir, entity, period string, r *model.FunnelResult) (string, error) {
	if r == nil || len(r.Forwarded) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "funnel: create dump dir %s", dir)
	}

	name := entity
	if period != "" {
		name += "_" + period
	}
	path := filepath.Join(dir, name+"_"+string(r.Task)+"_forwarded.txt")

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "funnel: create %s", path)
	}
	if err := chunk.WriteSegments(f, r.Forwarded); err != nil {
		f.Close() //nolint:errcheck
		return "", err
	}
	return path, eris.Wrapf(f.Close(), "funnel: close %s", path)
}
