package source

import (
	"fmt"
)

// Span points at a declaration or reference site inside a front-end file.
// Positions are 1-based; a zero Line means the front end did not supply one.
type Span struct {
	File FileID
	Line uint32
	Col  uint32
}

func (s Span) Empty() bool {
	return s.Line == 0
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d:%d", s.File, s.Line, s.Col)
}

// Less orders spans by file, line, column.
func (s Span) Less(other Span) bool {
	if s.File != other.File {
		return s.File < other.File
	}
	if s.Line != other.Line {
		return s.Line < other.Line
	}
	return s.Col < other.Col
}
