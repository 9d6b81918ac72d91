package tsigkey

import (
	"errors"
	"fmt"
	"strings"
)

// KeyNotFoundInFileError reports that a key file has no block with the
// requested name.
type KeyNotFoundInFileError struct {
	File string
	Name string
}

func (e *KeyNotFoundInFileError) Error() string {
	return fmt.Sprintf("key %q not found in %s", e.Name, e.File)
}

// IsKeyNotFoundInFile returns true if err is or wraps a KeyNotFoundInFileError.
func IsKeyNotFoundInFile(err error) bool {
	var target *KeyNotFoundInFileError
	return errors.As(err, &target)
}

// FindKey returns the key called name. Names compare case-insensitively
// and without regard to a trailing dot.
func FindKey(keys []Material, name string) (Material, bool) {
	want := canonicalName(name)
	for _, k := range keys {
		if k.Name == want {
			return k, true
		}
	}
	return Material{}, false
}

// ParseKeyFile extracts every key block from a BIND key file:
//
//	key "ddns-key" {
//		algorithm hmac-sha256;
//		secret "c2VjcmV0";
//	};
//
// Comments in #, // and /* */ style are ignored, as are statements other than
// key. Names and values may be quoted or bare.
func ParseKeyFile(data []byte) ([]Material, error) {
	toks, err := tokenize(string(data))
	if err != nil {
		return nil, err
	}

	p := &keyParser{toks: toks}
	var keys []Material
	for !p.done() {
		t := p.next()
		if t.keyword("key") {
			key, err := p.keyBlock()
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
			continue
		}
		if err := p.skipStatement(t); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

type token struct {
	text   string
	quoted bool
	line   int
}

func (t token) punct(c string) bool {
	return !t.quoted && t.text == c
}

func (t token) keyword(w string) bool {
	return !t.quoted && strings.EqualFold(t.text, w)
}

func tokenize(s string) ([]token, error) {
	var toks []token
	line := 1

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#' || strings.HasPrefix(s[i:], "//"):
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("line %d: unterminated comment", line)
			}
			line += strings.Count(s[i:i+2+end], "\n")
			i += end + 4
		case c == '"':
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("line %d: unterminated string", line)
			}
			toks = append(toks, token{text: s[i+1 : i+1+end], quoted: true, line: line})
			line += strings.Count(s[i+1:i+1+end], "\n")
			i += end + 2
		case c == '{' || c == '}' || c == ';':
			toks = append(toks, token{text: string(c), line: line})
			i++
		default:
			start := i
			for i < len(s) && !strings.ContainsRune(" \t\r\n{};\"#", rune(s[i])) && !strings.HasPrefix(s[i:], "//") && !strings.HasPrefix(s[i:], "/*") {
				i++
			}
			toks = append(toks, token{text: s[start:i], line: line})
		}
	}
	return toks, nil
}

type keyParser struct {
	toks []token
	pos  int
}

func (p *keyParser) done() bool { return p.pos >= len(p.toks) }

func (p *keyParser) next() token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *keyParser) lastLine() int {
	if len(p.toks) == 0 {
		return 1
	}
	return p.toks[len(p.toks)-1].line
}

func (p *keyParser) expect(c string) error {
	if p.done() {
		return fmt.Errorf("line %d: expected %q, got end of file", p.lastLine(), c)
	}
	if t := p.next(); !t.punct(c) {
		return fmt.Errorf("line %d: expected %q, got %q", t.line, c, t.text)
	}
	return nil
}

// keyBlock parses `<name> { <clauses> };` after the key keyword.
func (p *keyParser) keyBlock() (Material, error) {
	if p.done() {
		return Material{}, fmt.Errorf("line %d: key statement without a name", p.lastLine())
	}
	nameTok := p.next()
	if nameTok.punct("{") || nameTok.punct("}") || nameTok.punct(";") {
		return Material{}, fmt.Errorf("line %d: key statement without a name", nameTok.line)
	}
	if err := p.expect("{"); err != nil {
		return Material{}, err
	}

	var algorithm, secret string
	for {
		if p.done() {
			return Material{}, fmt.Errorf("key %q: unterminated block", nameTok.text)
		}
		t := p.next()
		if t.punct("}") {
			break
		}
		if t.punct(";") {
			continue
		}

		values, err := p.clauseValues()
		if err != nil {
			return Material{}, fmt.Errorf("key %q: %w", nameTok.text, err)
		}
		switch {
		case t.keyword("algorithm"):
			if len(values) != 1 {
				return Material{}, fmt.Errorf("key %q: line %d: algorithm takes one value", nameTok.text, t.line)
			}
			algorithm = values[0]
		case t.keyword("secret"):
			if len(values) != 1 {
				return Material{}, fmt.Errorf("key %q: line %d: secret takes one value", nameTok.text, t.line)
			}
			secret = values[0]
		}
	}
	if err := p.expect(";"); err != nil {
		return Material{}, fmt.Errorf("key %q: %w", nameTok.text, err)
	}

	if algorithm == "" {
		return Material{}, fmt.Errorf("key %q: missing algorithm", nameTok.text)
	}
	if secret == "" {
		return Material{}, fmt.Errorf("key %q: missing secret", nameTok.text)
	}
	return newMaterial(nameTok.text, algorithm, secret), nil
}

// clauseValues reads the values of a clause up to its terminating ';'.
func (p *keyParser) clauseValues() ([]string, error) {
	var values []string
	for {
		if p.done() {
			return nil, fmt.Errorf("line %d: missing ';'", p.lastLine())
		}
		t := p.next()
		switch {
		case t.punct(";"):
			return values, nil
		case t.punct("{") || t.punct("}"):
			return nil, fmt.Errorf("line %d: unexpected %q", t.line, t.text)
		default:
			values = append(values, t.text)
		}
	}
}

// skipStatement consumes a non-key statement, including any nested blocks,
// through its terminating ';'.
func (p *keyParser) skipStatement(first token) error {
	depth := 0
	t := first
	for {
		switch {
		case t.punct("{"):
			depth++
		case t.punct("}"):
			depth--
			if depth < 0 {
				return fmt.Errorf("line %d: unexpected '}'", t.line)
			}
		case t.punct(";") && depth == 0:
			return nil
		}
		if p.done() {
			if depth > 0 {
				return fmt.Errorf("line %d: unterminated block", p.lastLine())
			}
			// A final statement without ';' is tolerated.
			return nil
		}
		t = p.next()
	}
}
