package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Ошибки I/O и входного контракта
	IOLoadFileError     Code = 4001
	IODecodeProgram     Code = 4002
	IOUnknownAnnotation Code = 4003
	IOUnknownCapability Code = 4004

	// Observability
	ObsInfo     Code = 6000
	ObsTimings  Code = 6001
	ObsCacheHit Code = 6002

	// Placement / partition (9000-9099)
	PlcInfo                        Code = 9000
	PlcConflictingAnnotation       Code = 9001
	PlcAmbiguousPlacement          Code = 9002
	PlcInvalidBoundaryDirection    Code = 9003
	PlcNonSerializableBoundaryType Code = 9004
	PlcDeadCode                    Code = 9005
	PlcBoundaryCall                Code = 9006 // info: call turned into RPC
)

var codeDescription = map[Code]string{
	UnknownCode:                    "Unknown error",
	IOLoadFileError:                "I/O load file error",
	IODecodeProgram:                "Malformed program document",
	IOUnknownAnnotation:            "Unknown placement annotation",
	IOUnknownCapability:            "Unknown capability tag",
	ObsInfo:                        "Observability info",
	ObsTimings:                     "Phase timings",
	ObsCacheHit:                    "Result served from cache",
	PlcInfo:                        "Placement info",
	PlcConflictingAnnotation:       "Conflicting placement annotations",
	PlcAmbiguousPlacement:          "Ambiguous placement",
	PlcInvalidBoundaryDirection:    "Invalid boundary direction",
	PlcNonSerializableBoundaryType: "Non-serializable boundary type",
	PlcDeadCode:                    "Declaration unreachable from any placement seed",
	PlcBoundaryCall:                "Call crosses the client/server boundary",
}

// ID returns the stable short identifier, e.g. PLC9001.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	case ic >= 9000 && ic < 10000:
		return fmt.Sprintf("PLC%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Fatal reports whether the code blocks emission when reported as an error.
// DeadCode is always a warning.
func (c Code) Fatal() bool {
	switch c {
	case PlcConflictingAnnotation, PlcAmbiguousPlacement,
		PlcInvalidBoundaryDirection, PlcNonSerializableBoundaryType:
		return true
	}
	return false
}
