package program

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"ravens/internal/diag"
	"ravens/internal/source"
	"ravens/internal/types"
)

// Format selects the interchange encoding of a program document.
type Format uint8

const (
	FormatAuto Format = iota
	FormatYAML        // also accepts JSON
	FormatMsgpack
)

// ParseFormat converts a flag value to Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "yaml", "yml", "json":
		return FormatYAML, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	}
	return FormatAuto, fmt.Errorf("unknown program format %q (expected: auto|yaml|json|msgpack)", s)
}

// FormatForPath guesses the format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp", ".msgpack", ".rvp":
		return FormatMsgpack
	}
	return FormatYAML
}

// DocError reports problems found while turning a document into a Program.
// The diagnostics carry spans whenever the document supplied locations.
type DocError struct {
	Bag   *diag.Bag
	Files *source.FileSet
}

func (e *DocError) Error() string {
	if e == nil || e.Bag.Len() == 0 {
		return "invalid program document"
	}
	first := e.Bag.Items()[0]
	if e.Bag.Len() == 1 {
		return fmt.Sprintf("invalid program document: %s", first.Message)
	}
	return fmt.Sprintf("invalid program document: %s (and %d more)", first.Message, e.Bag.Len()-1)
}

// Load reads and decodes a program document from disk.
func Load(path string, format Format) (*Program, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program %s: %w", path, err)
	}
	if format == FormatAuto {
		format = FormatForPath(path)
	}
	prog, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// Decode parses document bytes and builds the Program.
func Decode(data []byte, format Format) (*Program, error) {
	doc, err := DecodeDocument(data, format)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// DecodeDocument parses document bytes without building a Program.
func DecodeDocument(data []byte, format Format) (Document, error) {
	var doc Document
	switch format {
	case FormatMsgpack:
		if err := msgpack.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("decode msgpack program: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("decode program: %w", err)
		}
	}
	return doc, nil
}

// EncodeDocument writes doc as msgpack with sorted map keys, the canonical
// byte form used for hashing and by the front end.
func EncodeDocument(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromDocument validates doc and builds the immutable Program. Declarations
// receive ids in qualified-path order, so the order of entries in the
// document does not influence any later result.
func FromDocument(doc Document) (*Program, error) {
	canon := canonicalize(doc)
	prog := newProgram(canon.Program, len(canon.Decls))
	prog.doc = canon
	l := &loader{
		prog: prog,
		bag:  diag.NewBag(0),
	}
	l.load(canon.Decls)
	if l.bag.Len() > 0 {
		l.bag.Sort()
		return nil, &DocError{Bag: l.bag, Files: prog.Files}
	}
	return prog, nil
}

func canonicalize(doc Document) Document {
	out := Document{Program: doc.Program, Decls: slices.Clone(doc.Decls)}
	sort.SliceStable(out.Decls, func(i, j int) bool {
		return out.Decls[i].Path < out.Decls[j].Path
	})
	return out
}

type loader struct {
	prog *Program
	bag  *diag.Bag
}

func (l *loader) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	l.bag.Add(diag.NewError(code, sp, fmt.Sprintf(format, args...)))
}

func (l *loader) span(at string) source.Span {
	sp, err := l.prog.Files.ParseLocation(at)
	if err != nil {
		l.errorf(diag.IODecodeProgram, source.Span{}, "%v", err)
	}
	return sp
}

func (l *loader) load(docs []DeclDoc) {
	in := l.prog.Types
	decls := make([]Decl, len(docs))

	// 1. identities and kinds; aggregates are registered before any type
	// expression is parsed so fields may reference each other.
	seen := make(map[string]bool, len(docs))
	for i := range docs {
		dd := &docs[i]
		d := &decls[i]
		d.Path = strings.TrimSpace(dd.Path)
		d.Span = l.span(dd.At)
		if d.Path == "" {
			l.errorf(diag.IODecodeProgram, d.Span, "declaration #%d has no path", i+1)
			continue
		}
		if seen[d.Path] {
			l.errorf(diag.IODecodeProgram, d.Span, "duplicate declaration %q", d.Path)
			continue
		}
		seen[d.Path] = true
		kind, err := ParseDeclKind(dd.Kind)
		if err != nil {
			l.errorf(diag.IODecodeProgram, d.Span, "%s: %v", d.Path, err)
		}
		d.Kind = kind
		if kind == KindType {
			d.Type = in.RegisterStruct(d.Path, d.Span)
		}
	}
	if l.bag.HasErrors() {
		return
	}

	// 2. signatures
	for i := range docs {
		l.signature(&docs[i], &decls[i])
	}

	// 3. annotations, capabilities, references
	for i := range docs {
		l.tags(&docs[i], &decls[i])
	}
	for i := range decls {
		l.prog.add(decls[i])
	}
	// ссылки резолвим после того, как все id розданы
	for i := range docs {
		d := l.prog.decls.Get(uint32(i + 1)) //nolint:gosec // bounded by len(docs)
		d.Refs = l.refs(&docs[i], d)
	}
}

func (l *loader) signature(dd *DeclDoc, d *Decl) {
	in := l.prog.Types
	parse := func(what, expr string) types.TypeID {
		id, err := in.ParseExpr(expr)
		if err != nil {
			l.errorf(diag.IODecodeProgram, d.Span, "%s: %s: %v", d.Path, what, err)
			return types.NoTypeID
		}
		return id
	}
	if d.Kind == KindType {
		if len(dd.Params) > 0 || dd.Result != "" {
			l.errorf(diag.IODecodeProgram, d.Span, "%s: type declarations take fields, not params/result", d.Path)
		}
		fields := make([]types.StructField, 0, len(dd.Fields))
		for _, f := range dd.Fields {
			fields = append(fields, types.StructField{Name: f.Name, Type: parse("field "+f.Name, f.Type)})
		}
		in.SetStructFields(d.Type, fields)
		return
	}
	if len(dd.Fields) > 0 {
		l.errorf(diag.IODecodeProgram, d.Span, "%s: only type declarations have fields", d.Path)
	}
	params := make([]types.TypeID, 0, len(dd.Params))
	for i, p := range dd.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i+1)
		}
		id := parse("param "+name, p.Type)
		d.Params = append(d.Params, Param{Name: name, Type: id})
		params = append(params, id)
	}
	d.Result = in.Builtins().Unit
	if strings.TrimSpace(dd.Result) != "" {
		d.Result = parse("result", dd.Result)
	}
	d.Type = in.RegisterFn(params, d.Result)
}

func (l *loader) tags(dd *DeclDoc, d *Decl) {
	for _, raw := range dd.Placement {
		tag, err := ParseTag(raw)
		if err != nil {
			l.errorf(diag.IOUnknownAnnotation, d.Span, "%s: %v", d.Path, err)
			continue
		}
		d.Annotations = append(d.Annotations, Annotation{Tag: tag, Span: d.Span})
	}
	for _, raw := range dd.Capabilities {
		c, err := ParseCapability(raw)
		if err != nil {
			l.errorf(diag.IOUnknownCapability, d.Span, "%s: %v", d.Path, err)
			continue
		}
		d.Capabilities = append(d.Capabilities, CapabilityUse{Cap: c, Span: d.Span})
	}
}

func (l *loader) refs(dd *DeclDoc, d *Decl) []Ref {
	refs := make([]Ref, 0, len(dd.Calls)+len(dd.Types)+len(dd.Reads))
	add := func(kind RefKind, rd RefDoc, target string) {
		sp := d.Span
		if rd.At != "" {
			sp = l.span(rd.At)
		}
		id, _ := l.prog.Lookup(target)
		refs = append(refs, Ref{Kind: kind, Target: target, Resolved: id, Span: sp})
	}
	for _, rd := range dd.Calls {
		add(RefCall, rd, strings.TrimSpace(rd.Target))
	}
	for _, rd := range dd.Types {
		add(RefType, rd, strings.TrimSpace(rd.Target))
	}
	for _, rd := range dd.Reads {
		// "User.name" читает поле агрегата User
		target := strings.TrimSpace(rd.Target)
		if i := strings.LastIndex(target, "."); i > 0 {
			target = target[:i]
		}
		add(RefField, rd, target)
	}
	return append(refs, l.signatureRefs(d)...)
}

// signatureRefs derives type references for every aggregate mentioned by the
// declaration's signature (params, result, or fields for type declarations).
func (l *loader) signatureRefs(d *Decl) []Ref {
	in := l.prog.Types
	var roots []types.TypeID
	if d.Kind == KindType {
		if info, ok := in.StructInfo(d.Type); ok {
			for _, f := range info.Fields {
				roots = append(roots, f.Type)
			}
		}
	} else {
		for _, p := range d.Params {
			roots = append(roots, p.Type)
		}
		roots = append(roots, d.Result)
	}

	found := make(map[types.TypeID]bool)
	var walk func(id types.TypeID)
	walk = func(id types.TypeID) {
		tt, ok := in.Lookup(id)
		if !ok {
			return
		}
		switch tt.Kind {
		case types.KindArray, types.KindOptional:
			walk(tt.Elem)
		case types.KindMap:
			walk(tt.Key)
			walk(tt.Elem)
		case types.KindFn:
			if info, ok := in.FnInfo(id); ok {
				for _, p := range info.Params {
					walk(p)
				}
				walk(info.Result)
			}
		case types.KindStruct:
			// поля агрегата - его собственные рёбра, здесь не раскрываем
			found[id] = true
		}
	}
	for _, r := range roots {
		walk(r)
	}

	names := make([]string, 0, len(found))
	for id := range found {
		name := in.Name(id)
		if name == d.Path {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	refs := make([]Ref, 0, len(names))
	for _, name := range names {
		id, _ := l.prog.Lookup(name)
		refs = append(refs, Ref{Kind: RefType, Target: name, Resolved: id, Span: d.Span, Signature: true})
	}
	return refs
}

// IsDocError reports whether err carries document diagnostics.
func IsDocError(err error) (*DocError, bool) {
	var de *DocError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
