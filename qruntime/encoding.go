package qruntime

import (
	"sync"
	"unicode/utf16"
	"unicode/utf8"
)

// Encoding names a registered character encoding (§3: String is "Bytes +
// encoding tag"). Two Encoding values are the same encoding iff they are
// the same pointer — all lookups go through the registry below so two
// Strs tagged "UTF-8" always share one *Encoding.
type Encoding struct {
	Name string
}

func (e *Encoding) String() string {
	if e == nil {
		return ""
	}
	return e.Name
}

var (
	encodingMu sync.Mutex
	encodings  = map[string]*Encoding{}
	defaultEnc *Encoding
)

func init() {
	for _, name := range []string{"UTF-8", "ASCII", "ISO-8859-1", "UTF-16LE"} {
		encodings[name] = &Encoding{Name: name}
	}
	defaultEnc = encodings["UTF-8"]
}

// RegisterEncoding adds name to the process-wide encoding registry (§5:
// "a process-wide encoding registry ... initialized once at startup"),
// returning the existing Encoding if already registered.
func RegisterEncoding(name string) *Encoding {
	encodingMu.Lock()
	defer encodingMu.Unlock()
	if e, ok := encodings[name]; ok {
		return e
	}
	e := &Encoding{Name: name}
	encodings[name] = e
	return e
}

// LookupEncoding returns the named encoding, if registered.
func LookupEncoding(name string) (*Encoding, bool) {
	encodingMu.Lock()
	defer encodingMu.Unlock()
	e, ok := encodings[name]
	return e, ok
}

// DefaultEncoding is the encoding new Strings get when none is given
// explicitly.
func DefaultEncoding() *Encoding {
	return defaultEnc
}

// Encode renders s as bytes in enc, failing if s has a codepoint enc
// cannot represent. This is the encode half of §8's "for every encoding E
// and string s representable in E: decode(encode(s, E), E) == s" law.
func Encode(s string, enc *Encoding) ([]byte, bool) {
	if enc == nil {
		enc = defaultEnc
	}
	switch enc.Name {
	case "UTF-8":
		if !utf8.ValidString(s) {
			return nil, false
		}
		return []byte(s), true
	case "ASCII":
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r > 0x7F {
				return nil, false
			}
			out = append(out, byte(r))
		}
		return out, true
	case "ISO-8859-1":
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r > 0xFF {
				return nil, false
			}
			out = append(out, byte(r))
		}
		return out, true
	case "UTF-16LE":
		units := utf16.Encode([]rune(s))
		out := make([]byte, 0, len(units)*2)
		for _, u := range units {
			out = append(out, byte(u), byte(u>>8))
		}
		return out, true
	default:
		return nil, false
	}
}

// Decode is Encode's inverse, reconstructing a string from bytes tagged
// as enc.
func Decode(b []byte, enc *Encoding) (string, bool) {
	if enc == nil {
		enc = defaultEnc
	}
	switch enc.Name {
	case "UTF-8":
		if !utf8.Valid(b) {
			return "", false
		}
		return string(b), true
	case "ASCII":
		for _, c := range b {
			if c > 0x7F {
				return "", false
			}
		}
		return string(b), true
	case "ISO-8859-1":
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}
		return string(runes), true
	case "UTF-16LE":
		if len(b)%2 != 0 {
			return "", false
		}
		units := make([]uint16, len(b)/2)
		for i := range units {
			units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
		}
		return string(utf16.Decode(units)), true
	default:
		return "", false
	}
}

// Convert re-tags s from one encoding to another, validating that every
// codepoint in s survives the round trip through to. Equal encodings are
// always a no-op success.
func Convert(s string, from, to *Encoding) (string, bool) {
	if from == to || (from != nil && to != nil && from.Name == to.Name) {
		return s, true
	}
	encoded, ok := Encode(s, to)
	if !ok {
		return "", false
	}
	return Decode(encoded, to)
}
