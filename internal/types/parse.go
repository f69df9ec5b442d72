package types

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseExpr parses a textual type expression as written in program documents:
//
//	void | Boolean | Int | Number | String
//	[T]            ordered sequence
//	{K: V}         mapping
//	T?             optional
//	fn(A, B) -> R  function value (result defaults to void)
//	handle Name    runtime resource handle
//	'T             unresolved generic parameter
//	Name           nominal aggregate, registered beforehand
//
// Aggregates must already be registered via RegisterStruct; unknown names are
// reported as errors.
func (in *Interner) ParseExpr(src string) (TypeID, error) {
	p := &exprParser{in: in, src: src}
	id, err := p.parseType()
	if err != nil {
		return NoTypeID, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return NoTypeID, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return id, nil
}

type exprParser struct {
	in  *Interner
	src string
	pos int
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) expect(ch byte) error {
	if p.peek() != ch {
		return p.errorf("expected %q", ch)
	}
	p.pos++
	return nil
}

func (p *exprParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		// qualified names: models::User
		if p.pos > start && strings.HasPrefix(p.src[p.pos:], "::") && p.pos+2 < len(p.src) && isIdentByte(p.src[p.pos+2]) {
			p.pos += 2
			continue
		}
		r := rune(p.src[p.pos])
		if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *exprParser) parseType() (TypeID, error) {
	id, err := p.parseBase()
	if err != nil {
		return NoTypeID, err
	}
	for p.peek() == '?' {
		p.pos++
		id = p.in.Intern(MakeOptional(id))
	}
	return id, nil
}

func (p *exprParser) parseBase() (TypeID, error) {
	switch p.peek() {
	case 0:
		return NoTypeID, p.errorf("expected type")
	case '[':
		p.pos++
		elem, err := p.parseType()
		if err != nil {
			return NoTypeID, err
		}
		if err := p.expect(']'); err != nil {
			return NoTypeID, err
		}
		return p.in.Intern(MakeArray(elem)), nil
	case '{':
		p.pos++
		key, err := p.parseType()
		if err != nil {
			return NoTypeID, err
		}
		if err := p.expect(':'); err != nil {
			return NoTypeID, err
		}
		value, err := p.parseType()
		if err != nil {
			return NoTypeID, err
		}
		if err := p.expect('}'); err != nil {
			return NoTypeID, err
		}
		return p.in.Intern(MakeMap(key, value)), nil
	case '\'':
		p.pos++
		name := p.ident()
		if name == "" {
			return NoTypeID, p.errorf("expected generic parameter name")
		}
		return p.in.Param(name), nil
	}

	name := p.ident()
	switch name {
	case "":
		return NoTypeID, p.errorf("unexpected %q", p.src[p.pos:])
	case "void":
		return p.in.builtins.Unit, nil
	case "Boolean", "Bool", "bool":
		return p.in.builtins.Bool, nil
	case "Int", "i64", "i32":
		return p.in.builtins.Int, nil
	case "Number", "f64", "f32":
		return p.in.builtins.Number, nil
	case "String", "string":
		return p.in.builtins.String, nil
	case "handle":
		res := p.ident()
		if res == "" {
			return NoTypeID, p.errorf("expected resource name after handle")
		}
		return p.in.Handle(res), nil
	case "fn":
		return p.parseFn()
	}
	if id, ok := p.in.StructByName(name); ok {
		return id, nil
	}
	return NoTypeID, p.errorf("unknown type %q", name)
}

func (p *exprParser) parseFn() (TypeID, error) {
	if err := p.expect('('); err != nil {
		return NoTypeID, err
	}
	var params []TypeID
	if p.peek() != ')' {
		for {
			param, err := p.parseType()
			if err != nil {
				return NoTypeID, err
			}
			params = append(params, param)
			if p.peek() != ',' {
				break
			}
			p.pos++
		}
	}
	if err := p.expect(')'); err != nil {
		return NoTypeID, err
	}
	result := p.in.builtins.Unit
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "->") {
		p.pos += 2
		var err error
		result, err = p.parseType()
		if err != nil {
			return NoTypeID, err
		}
	}
	return p.in.RegisterFn(params, result), nil
}

func isIdentByte(b byte) bool {
	return b == '_' || unicode.IsLetter(rune(b))
}
