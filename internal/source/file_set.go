package source

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// FileID identifies a front-end source file. 0 is reserved for "unknown".
type FileID uint32

const NoFileID FileID = 0

// FileSet keeps the file paths referenced by spans of a whole program.
// The partitioner never reads file contents; paths are only used for rendering.
type FileSet struct {
	paths []string
	index map[string]FileID // path -> id
}

// NewFileSet creates an empty FileSet with the unknown file reserved.
func NewFileSet() *FileSet {
	return &FileSet{
		paths: []string{"<unknown>"},
		index: make(map[string]FileID),
	}
}

// Intern returns the FileID for path, registering it when seen for the first time.
func (fs *FileSet) Intern(path string) FileID {
	path = normalizePath(path)
	if path == "" {
		return NoFileID
	}
	if id, ok := fs.index[path]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(fs.paths))
	if err != nil {
		panic(fmt.Errorf("file id overflow: %w", err))
	}
	id := FileID(n)
	fs.paths = append(fs.paths, path)
	fs.index[path] = id
	return id
}

// Path returns the path registered for id.
func (fs *FileSet) Path(id FileID) string {
	if fs == nil || int(id) >= len(fs.paths) {
		return "<unknown>"
	}
	return fs.paths[id]
}

// Paths returns registered paths in id order, excluding the unknown slot.
func (fs *FileSet) Paths() []string {
	if fs == nil {
		return nil
	}
	return append([]string(nil), fs.paths[1:]...)
}

// Len returns the number of registered files, excluding the unknown slot.
func (fs *FileSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.paths) - 1
}

// Format renders span as path:line:col.
func (fs *FileSet) Format(sp Span) string {
	if sp.Empty() {
		return fs.Path(sp.File)
	}
	return fmt.Sprintf("%s:%d:%d", fs.Path(sp.File), sp.Line, sp.Col)
}

// ParseLocation parses "path:line:col" (line and col optional) into a Span,
// interning the path.
func (fs *FileSet) ParseLocation(loc string) (Span, error) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return Span{}, nil
	}
	parts := strings.Split(loc, ":")
	var nums []uint32
	// с конца забираем числовые сегменты (не больше двух)
	for len(parts) > 1 && len(nums) < 2 {
		n, err := strconv.ParseUint(parts[len(parts)-1], 10, 32)
		if err != nil {
			break
		}
		nums = append([]uint32{uint32(n)}, nums...)
		parts = parts[:len(parts)-1]
	}
	path := strings.Join(parts, ":")
	if strings.TrimSpace(path) == "" {
		return Span{}, fmt.Errorf("invalid location %q", loc)
	}
	sp := Span{File: fs.Intern(path)}
	if len(nums) > 0 {
		sp.Line = nums[0]
	}
	if len(nums) > 1 {
		sp.Col = nums[1]
	}
	return sp, nil
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(path))
}
