package partition

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"
	"golang.org/x/text/unicode/norm"

	"ravens/internal/program"
	"ravens/internal/types"
)

var (
	// ErrMissingServerDecl means a validated boundary call points at a
	// declaration that is not a server declaration.
	ErrMissingServerDecl = errors.New("boundary call without a server declaration")
	// ErrStubTable means the synthesized table broke its ordering or
	// uniqueness guarantees.
	ErrStubTable = errors.New("malformed stub table")
)

// RpcStub is the call contract for one server declaration reachable from the
// client. Emitters register the handler and generate the proxy by StableName.
type RpcStub struct {
	StableName   string             `json:"stable_name" msgpack:"stable_name"`
	ServerDecl   program.DeclID     `json:"server_decl" msgpack:"server_decl"`
	Path         string             `json:"path" msgpack:"path"`
	ArgNames     []string           `json:"arg_names" msgpack:"arg_names"`
	ArgSchema    []types.Descriptor `json:"arg_schema" msgpack:"arg_schema"`
	ReturnSchema types.Descriptor   `json:"return_schema" msgpack:"return_schema"`
	Callers      []program.DeclID   `json:"callers" msgpack:"callers"`
	Handler      HandlerDescriptor  `json:"handler" msgpack:"handler"`
	Proxy        ProxyDescriptor    `json:"proxy" msgpack:"proxy"`
}

// HandlerDescriptor is the server half: decode positional arguments, invoke
// the original declaration, wrap the outcome into an Envelope.
type HandlerDescriptor struct {
	Symbol   string   `json:"symbol" msgpack:"symbol"`
	Register string   `json:"register" msgpack:"register"`
	Invoke   string   `json:"invoke" msgpack:"invoke"`
	Envelope Envelope `json:"envelope" msgpack:"envelope"`
}

// Envelope is the tagged result every handler answers with: exactly one of
// ok (the return value) or err.
type Envelope struct {
	Ok  types.Descriptor `json:"ok" msgpack:"ok"`
	Err types.Descriptor `json:"err" msgpack:"err"`
}

// ProxyDescriptor is the client half. The proxy keeps no state between
// calls; it returns a handle the caller awaits, and a server-side err
// surfaces as an error value at the call site.
type ProxyDescriptor struct {
	Symbol    string                  `json:"symbol" msgpack:"symbol"`
	Params    []types.FieldDescriptor `json:"params" msgpack:"params"`
	Returns   string                  `json:"returns" msgpack:"returns"`
	Async     bool                    `json:"async" msgpack:"async"`
	Stateless bool                    `json:"stateless" msgpack:"stateless"`
}

// RemoteError is the err payload shape of every Envelope.
var RemoteError = types.Descriptor{
	Kind: types.DescStruct,
	Name: "RpcError",
	Fields: []types.FieldDescriptor{
		{Name: "code", Type: types.Descriptor{Kind: types.DescString}},
		{Name: "message", Type: types.Descriptor{Kind: types.DescString}},
	},
}

// StableName derives the stub name from a qualified path: NFC-normalized,
// "::" replaced by ".".
func StableName(path string) string {
	return strings.ReplaceAll(norm.NFC.String(path), "::", ".")
}

// SynthesizeStubs builds one stub per distinct callee of the given legal,
// validated calls, sorted by stable name.
func SynthesizeStubs(prog *program.Program, calls []BoundaryCall, pm *PlacementMap) ([]RpcStub, error) {
	callers := make(map[program.DeclID][]program.DeclID)
	var callees []program.DeclID
	for _, c := range calls {
		if !c.Legal() {
			continue
		}
		if _, ok := callers[c.Callee]; !ok {
			callees = append(callees, c.Callee)
		}
		if !slices.Contains(callers[c.Callee], c.Caller) {
			callers[c.Callee] = append(callers[c.Callee], c.Caller)
		}
	}

	stubs := make([]RpcStub, 0, len(callees))
	for _, id := range callees {
		d := prog.Decl(id)
		if d == nil || !d.Callable() || pm.Get(id) != Server {
			return nil, fmt.Errorf("%w: #%d %s (placement %s)", ErrMissingServerDecl, id, prog.Path(id), pm.Get(id))
		}
		cs := callers[id]
		slices.Sort(cs)
		stubs = append(stubs, buildStub(prog.Types, d, cs))
	}
	slices.SortFunc(stubs, func(a, b RpcStub) int { return strings.Compare(a.StableName, b.StableName) })
	if err := VerifyTable(stubs); err != nil {
		return nil, err
	}
	return stubs, nil
}

func buildStub(in *types.Interner, d *program.Decl, callers []program.DeclID) RpcStub {
	name := StableName(d.Path)
	symbol := strings.ReplaceAll(name, ".", "_")

	stub := RpcStub{
		StableName:   name,
		ServerDecl:   d.ID,
		Path:         d.Path,
		ArgNames:     make([]string, len(d.Params)),
		ArgSchema:    make([]types.Descriptor, len(d.Params)),
		ReturnSchema: in.Describe(d.Result),
		Callers:      callers,
	}
	params := make([]types.FieldDescriptor, len(d.Params))
	for i, p := range d.Params {
		stub.ArgNames[i] = p.Name
		stub.ArgSchema[i] = in.Describe(p.Type)
		params[i] = types.FieldDescriptor{Name: p.Name, Type: stub.ArgSchema[i]}
	}
	stub.Handler = HandlerDescriptor{
		Symbol:   "handle" + strcase.ToCamel(symbol),
		Register: name,
		Invoke:   d.Path,
		Envelope: Envelope{Ok: stub.ReturnSchema, Err: RemoteError},
	}
	stub.Proxy = ProxyDescriptor{
		Symbol:    strcase.ToLowerCamel(symbol),
		Params:    params,
		Returns:   "Async<Envelope<" + stub.ReturnSchema.String() + ">>",
		Async:     true,
		Stateless: true,
	}
	return stub
}

// VerifyTable checks that stable names are unique and strictly ascending.
func VerifyTable(stubs []RpcStub) error {
	for i := 1; i < len(stubs); i++ {
		prev, cur := stubs[i-1].StableName, stubs[i].StableName
		switch {
		case prev == cur:
			return fmt.Errorf("%w: duplicate stable name %q (%s, %s)", ErrStubTable, cur, stubs[i-1].Path, stubs[i].Path)
		case prev > cur:
			return fmt.Errorf("%w: %q sorted before %q", ErrStubTable, prev, cur)
		}
	}
	return nil
}
