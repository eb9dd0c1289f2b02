// Package checkpoint writes periodic snapshot files next to the mirror
// database and prunes old ones.
package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/martinsuchenak/netcanvas/internal/codec"
	"github.com/martinsuchenak/netcanvas/internal/log"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

const (
	// Dir is the checkpoint directory under the data directory.
	Dir = "checkpoints"
	// DefaultKeep is how many checkpoints survive pruning.
	DefaultKeep = 24

	prefix     = "snapshot-"
	timeLayout = "20060102T150405.000Z"
)

// Source produces the snapshot to write
type Source interface {
	Snapshot() model.Snapshot
}

// Writer writes snapshot files into a directory
type Writer struct {
	dir    string
	format codec.Format
	keep   int
	now    func() time.Time
}

// NewWriter returns a writer for dataDir/checkpoints. keep < 1 means DefaultKeep.
func NewWriter(dataDir string, format codec.Format, keep int) *Writer {
	if keep < 1 {
		keep = DefaultKeep
	}
	return &Writer{
		dir:    filepath.Join(dataDir, Dir),
		format: format,
		keep:   keep,
		now:    time.Now,
	}
}

// Dir returns the directory checkpoints are written to
func (w *Writer) Dir() string { return w.dir }

// Write encodes snap into a new timestamped file and prunes old files.
// Readers never observe a partially written file.
func (w *Writer) Write(snap model.Snapshot) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating checkpoint directory: %w", err)
	}
	data, err := codec.Marshal(w.format, snap)
	if err != nil {
		return "", err
	}

	name := prefix + w.now().UTC().Format(timeLayout) + "." + w.format.Extension()
	path := filepath.Join(w.dir, name)
	tmp, err := os.CreateTemp(w.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating checkpoint: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("renaming checkpoint: %w", err)
	}

	log.Info("Checkpoint written", "path", path, "size", humanize.Bytes(uint64(len(data))))
	if err := w.prune(); err != nil {
		log.Warn("Checkpoint pruning failed", "error", err)
	}
	return path, nil
}

// Task adapts the writer to a scheduler task over src
func (w *Writer) Task(src Source) func(ctx context.Context, taskID string) error {
	return func(ctx context.Context, taskID string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := w.Write(src.Snapshot())
		return err
	}
}

// List returns the checkpoint paths, oldest first
func (w *Writer) List() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		out = append(out, filepath.Join(w.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Latest returns the newest checkpoint, or "" if there is none
func (w *Writer) Latest() (string, error) {
	paths, err := w.List()
	if err != nil || len(paths) == 0 {
		return "", err
	}
	return paths[len(paths)-1], nil
}

// Read decodes a checkpoint file, picking the format from its extension
func Read(path string) (model.Snapshot, error) {
	format, err := codec.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return model.Snapshot{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer f.Close()
	return codec.Decode(f, format)
}

func (w *Writer) prune() error {
	paths, err := w.List()
	if err != nil {
		return err
	}
	for len(paths) > w.keep {
		if err := os.Remove(paths[0]); err != nil {
			return err
		}
		log.Debug("Checkpoint pruned", "path", paths[0])
		paths = paths[1:]
	}
	return nil
}
