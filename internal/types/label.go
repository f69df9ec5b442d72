package types

import (
	"strings"
)

// Label returns a user-friendly label for a TypeID. Labels use the same
// grammar ParseExpr accepts, so they round-trip.
func Label(in *Interner, id TypeID) string {
	return labelDepth(in, id, 0)
}

func labelDepth(in *Interner, id TypeID, depth int) string {
	if id == NoTypeID || in == nil {
		return "?"
	}
	if depth > 8 {
		return "..."
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return "?"
	}
	switch tt.Kind {
	case KindUnit, KindBool, KindInt, KindNumber, KindString:
		return tt.Kind.String()
	case KindArray:
		return "[" + labelDepth(in, tt.Elem, depth+1) + "]"
	case KindMap:
		return "{" + labelDepth(in, tt.Key, depth+1) + ": " + labelDepth(in, tt.Elem, depth+1) + "}"
	case KindOptional:
		return labelDepth(in, tt.Elem, depth+1) + "?"
	case KindStruct:
		return in.Name(id)
	case KindHandle:
		return "handle " + in.Name(id)
	case KindParam:
		return "'" + in.Name(id)
	case KindFn:
		info, ok := in.FnInfo(id)
		if !ok {
			return "fn(?)"
		}
		parts := make([]string, len(info.Params))
		for i, p := range info.Params {
			parts[i] = labelDepth(in, p, depth+1)
		}
		out := "fn(" + strings.Join(parts, ", ") + ")"
		if info.Result != NoTypeID && info.Result != in.builtins.Unit {
			out += " -> " + labelDepth(in, info.Result, depth+1)
		}
		return out
	}
	return "?"
}
