// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ManuGH/zonewatch/internal/derived"
)

// KindFile builds a FileCheck.
const KindFile = "file"

// FileCheck verifies that a file exists and is not empty.
type FileCheck struct {
	path string
}

// NewFileCheck returns a FileCheck for path.
func NewFileCheck(path string) (*FileCheck, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file check needs a path", ErrInvalidParams)
	}
	return &FileCheck{path: path}, nil
}

// Perform implements Check.
func (c *FileCheck) Perform(_ context.Context, l *Listener) derived.Result {
	res, msg := statFile(c.path)
	if res.IsWorseThan(derived.Success) {
		l.Errorf("%s: %s", c.path, msg)
	}
	return res
}

// statFile classifies path: missing, unreadable or a directory is a
// Failure; an empty file is Unstable.
func statFile(path string) (derived.Result, string) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return derived.Failure, "file not found"
		}
		return derived.Failure, err.Error()
	}
	if info.IsDir() {
		return derived.Failure, "expected file, got directory"
	}
	if info.Size() == 0 {
		return derived.Unstable, "file is empty"
	}
	return derived.Success, "file exists and readable"
}

// Describe implements Check.
func (c *FileCheck) Describe() derived.ComponentSpec {
	return derived.ComponentSpec{Kind: KindFile, Params: derived.Params{"path": c.path}}
}

func (c *FileCheck) String() string {
	return fmt.Sprintf("FileCheck [%s]", c.path)
}

type fileParams struct {
	Path string `yaml:"path"`
}

func newFileCheck(p derived.Params) (Check, error) {
	var fp fileParams
	if err := p.Decode(&fp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	c, err := NewFileCheck(fp.Path)
	if err != nil {
		return nil, err
	}
	return c, nil
}
