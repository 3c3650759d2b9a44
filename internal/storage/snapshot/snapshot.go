package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Licron11/TaskList-Project/internal/core"
)

type LoadOutcome int

const (
	// LoadOK means the file was read and parsed.
	LoadOK LoadOutcome = iota
	// LoadEmpty means there was no file yet.
	LoadEmpty
	// LoadFailed means the file exists but could not be read or parsed.
	LoadFailed
)

func (o LoadOutcome) String() string {
	switch o {
	case LoadOK:
		return "ok"
	case LoadEmpty:
		return "empty"
	case LoadFailed:
		return "failed"
	}
	return "unknown"
}

// LoadResult is what Read found on disk. Tasks is never nil;
// on LoadFailed it is empty and Err holds the cause.
type LoadResult struct {
	Tasks   []*core.Task
	Outcome LoadOutcome
	Err     error
}

// Write replaces the file at path with tasks as an indented JSON array.
func Write(ctx context.Context, path string, tasks []*core.Task) error {
	if path == "" {
		return errors.New("snapshot: required path")
	} else if err := ctx.Err(); err != nil {
		return err
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}
	if tasks == nil {
		tasks = []*core.Task{}
	}

	buf := bytes.Buffer{}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(
		tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC,
		0o644,
	)
	if err != nil {
		return fmt.Errorf("snapshot: open tmp: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write: %w", err)
	} else if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("snapshot: fsync: %w", err)
	} else if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close: %w", err)
	} else if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename tmp: %w", err)
	}
	return nil
}

// Read loads the task list from path.
// Only a missing path or a done ctx give an error; everything that goes wrong
// with the file itself is reported as LoadFailed.
func Read(ctx context.Context, path string) (*LoadResult, error) {
	if path == "" {
		return nil, errors.New("snapshot: required path")
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &LoadResult{Tasks: []*core.Task{}, Outcome: LoadEmpty}, nil
		}
		return failed(fmt.Errorf("snapshot: read: %w", err)), nil
	}

	var tasks []*core.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return failed(fmt.Errorf("snapshot: decode: %w", err)), nil
	}
	return &LoadResult{Tasks: core.CloneTasks(tasks), Outcome: LoadOK}, nil
}

func failed(err error) *LoadResult {
	return &LoadResult{Tasks: []*core.Task{}, Outcome: LoadFailed, Err: err}
}
