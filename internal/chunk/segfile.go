package chunk

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/model"
)

// chunkFileSuffix marks per-entity segment files: <TICKER>_<YEAR>_chunks.txt.
// The ticker may itself contain underscores; the period may not.
const chunkFileSuffix = "_chunks.txt"

var chunkFileRe = regexp.MustCompile(`^(.+)_([^_]+)_chunks\.txt$`)

// maxLineBytes bounds a single persisted line. Segments are at most a few
// KB but files written by other tools may carry longer lines.
const maxLineBytes = 4 * 1024 * 1024

// WriteSegments writes one delimited segment per line.
func WriteSegments(w io.Writer, segs []model.Segment) error {
	bw := bufio.NewWriter(w)
	for _, s := range segs {
		if _, err := bw.WriteString(s.Quoted() + "\n"); err != nil {
			return eris.Wrap(err, "chunk: write segment")
		}
	}
	return eris.Wrap(bw.Flush(), "chunk: flush segments")
}

// WriteGroups writes each group's segments followed by one blank line.
func WriteGroups(w io.Writer, groups [][]model.Segment) error {
	bw := bufio.NewWriter(w)
	for _, g := range groups {
		for _, s := range g {
			if _, err := bw.WriteString(s.Quoted() + "\n"); err != nil {
				return eris.Wrap(err, "chunk: write segment")
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return eris.Wrap(err, "chunk: write group separator")
		}
	}
	return eris.Wrap(bw.Flush(), "chunk: flush groups")
}

// ReadGroups parses the persisted format. Blank lines separate groups; the
// enclosing delimiters are stripped from every line. Segment indexes restart
// at zero in each group. Entity and Period are left empty.
func ReadGroups(r io.Reader) ([][]model.Segment, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var groups [][]model.Segment
	var cur []model.Segment
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				groups = append(groups, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, model.Segment{
			Index:   len(cur),
			Content: Unquote(line),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "chunk: scan segments")
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups, nil
}

// ReadFile reads a segment file and returns every segment in file order,
// ignoring group boundaries.
func ReadFile(path string) ([]model.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "chunk: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	groups, err := ReadGroups(f)
	if err != nil {
		return nil, eris.Wrapf(err, "chunk: read %s", path)
	}

	var segs []model.Segment
	for _, g := range groups {
		for _, s := range g {
			s.Index = len(segs)
			segs = append(segs, s)
		}
	}
	return segs, nil
}

// ChunkFileName returns the canonical per-entity file name. Underscores in
// period become hyphens so the name parses back unambiguously.
func ChunkFileName(entity, period string) string {
	return entity + "_" + strings.ReplaceAll(period, "_", "-") + chunkFileSuffix
}

// ParseChunkFileName extracts the entity and period from a chunk file name.
func ParseChunkFileName(name string) (entity, period string, ok bool) {
	m := chunkFileRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// WriteChunkFile writes a single entity's segments to dir using the
// canonical file name and returns the path.
func WriteChunkFile(dir string, doc model.Document) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "chunk: create dir %s", dir)
	}
	path := filepath.Join(dir, ChunkFileName(doc.Entity, doc.Period))
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "chunk: create %s", path)
	}
	if err := WriteSegments(f, doc.Segments); err != nil {
		f.Close() //nolint:errcheck
		return "", err
	}
	return path, eris.Wrapf(f.Close(), "chunk: close %s", path)
}

// LoadDir reads every chunk file in dir into a Document, ordered by file
// name. Files that do not follow the naming pattern are skipped.
func LoadDir(dir string) ([]model.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "chunk: read dir %s", dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), chunkFileSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]model.Document, 0, len(names))
	for _, name := range names {
		entity, period, ok := ParseChunkFileName(name)
		if !ok {
			zap.L().Warn("chunk: skipping file with unexpected name", zap.String("file", name))
			continue
		}

		path := filepath.Join(dir, name)
		segs, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		for i := range segs {
			segs[i].Entity = entity
			segs[i].Period = period
		}

		docs = append(docs, model.Document{
			Entity:   entity,
			Period:   period,
			Source:   path,
			Segments: segs,
		})
	}

	zap.L().Debug("chunk: loaded dataset",
		zap.String("dir", dir),
		zap.Int("documents", len(docs)),
	)
	return docs, nil
}
