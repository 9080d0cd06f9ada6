package source

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrInvalidUTF8 is returned by text sources when UTF-8 input holds a byte
// sequence that does not decode.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// decodeCharset returns a UTF-8 view of r. UTF-8 input is validated as it
// streams; anything else goes through a transform reader. A byte order
// mark always overrides the declared charset.
func decodeCharset(r io.Reader, name string) (io.Reader, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return newUTF8Reader(r), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// utf8Reader passes bytes through until the first invalid sequence. The
// valid prefix before it is still delivered; the next Read fails with
// ErrInvalidUTF8. A rune split across reads is held back until complete.
// Callers must read with buffers of at least utf8.UTFMax bytes, which every
// bufio based reader does.
type utf8Reader struct {
	r     io.Reader
	carry []byte
	off   int64
	err   error
}

func newUTF8Reader(r io.Reader) *utf8Reader {
	return &utf8Reader{r: r, carry: make([]byte, 0, utf8.UTFMax)}
}

func (v *utf8Reader) Read(p []byte) (int, error) {
	if v.err != nil {
		return 0, v.err
	}

	n := copy(p, v.carry)
	v.carry = v.carry[:0]
	m, err := v.r.Read(p[n:])
	n += m

	valid := validUTF8Prefix(p[:n])
	if valid == n {
		v.off += int64(n)
		return n, err
	}

	rest := p[valid:n]
	if err == nil && !utf8.FullRune(rest) {
		v.carry = append(v.carry, rest...)
		v.off += int64(valid)
		return valid, nil
	}

	v.err = fmt.Errorf("%w at byte offset %d", ErrInvalidUTF8, v.off+int64(valid))
	v.off += int64(valid)
	if valid == 0 {
		return 0, v.err
	}
	return valid, nil
}

// validUTF8Prefix returns the length of the longest valid UTF-8 prefix of b.
func validUTF8Prefix(b []byte) int {
	i := 0
	for i < len(b) {
		if b[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return i
}
