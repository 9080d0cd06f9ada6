package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"csvprofiler/internal/profile"
)

// JSONOptions controls how JSON input is interpreted.
type JSONOptions struct {
	// Lines treats the input as newline-delimited objects only; a root
	// object is then never scanned for an envelope array.
	Lines bool
	// ArrayJoinSeparator joins arrays of strings into one value (default ",").
	ArrayJoinSeparator string
}

type jsonState uint8

const (
	jsonStart jsonState = iota
	jsonArray
	jsonTrailing
	jsonDone
)

// JSON streams objects as rows. Accepted layouts:
//   - a root array of objects
//   - a root object whose first array-of-objects field holds the records
//     (envelope); the other fields of the root are skipped
//   - a single root object, optionally followed by more objects (NDJSON)
//
// The column set is the key order of the first object. Later keys that are
// not in that set are ignored; missing keys are absent. Scalars are kept in
// their JSON text form (numbers are never reformatted), null is absent and
// nested values become compact JSON.
type JSON struct {
	name string
	src  io.Closer
	dec  *json.Decoder
	opt  JSONOptions

	state    jsonState
	envelope bool
	pending  *orderedObject

	cols  []string
	colIx map[string]int
	vals  []string
	line  int
}

type orderedObject struct {
	keys []string
	vals []string
}

func (o *orderedObject) set(k, v string) {
	for i, have := range o.keys {
		if have == k {
			o.vals[i] = v
			return
		}
	}
	o.keys = append(o.keys, k)
	o.vals = append(o.vals, v)
}

// NewJSON wraps r. The returned source owns r and closes it on Close.
// Input must be UTF-8; an invalid sequence fails the read with
// ErrInvalidUTF8 instead of being replaced.
func NewJSON(name string, r io.ReadCloser, opt JSONOptions) *JSON {
	if strings.TrimSpace(opt.ArrayJoinSeparator) == "" {
		opt.ArrayJoinSeparator = ","
	}
	br := bufio.NewReader(newUTF8Reader(r))
	if b, err := br.Peek(3); err == nil && string(b) == "\xEF\xBB\xBF" {
		_, _ = br.Discard(3)
	}
	dec := json.NewDecoder(br)
	dec.UseNumber()
	return &JSON{name: name, src: r, dec: dec, opt: opt}
}

func (j *JSON) Name() string { return j.name }

func (j *JSON) Close() error { return j.src.Close() }

// Columns decodes the first object to fix the column set.
func (j *JSON) Columns(ctx context.Context) ([]string, error) {
	if j.cols != nil {
		return j.cols, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	obj, err := j.nextObject()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: no JSON objects", profile.ErrNotTabular, j.name)
	}
	if err != nil {
		return nil, err
	}
	if len(obj.keys) == 0 {
		return nil, fmt.Errorf("%w: %s: first object has no keys", profile.ErrNotTabular, j.name)
	}

	j.pending = obj
	j.cols = obj.keys
	j.colIx = make(map[string]int, len(obj.keys))
	for i, k := range obj.keys {
		j.colIx[k] = i
	}
	j.vals = make([]string, len(j.cols))
	return j.cols, nil
}

// Next returns the next object aligned to Columns. The Values slice is reused.
func (j *JSON) Next(ctx context.Context) (profile.Row, error) {
	if j.cols == nil {
		if _, err := j.Columns(ctx); err != nil {
			return profile.Row{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return profile.Row{}, err
	}

	obj := j.pending
	j.pending = nil
	if obj == nil {
		var err error
		if obj, err = j.nextObject(); err != nil {
			return profile.Row{}, err
		}
	}

	clear(j.vals)
	for i, k := range obj.keys {
		if ix, ok := j.colIx[k]; ok {
			j.vals[ix] = obj.vals[i]
		}
	}
	j.line++
	return profile.Row{Values: j.vals, Line: j.line}, nil
}

func (j *JSON) unreadable(what string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %s: json: %s: %w", profile.ErrSourceUnreadable, j.name, what, err)
}

func (j *JSON) notTabular(format string, args ...any) error {
	return fmt.Errorf("%w: %s: json: %s", profile.ErrNotTabular, j.name, fmt.Sprintf(format, args...))
}

// nextObject advances the layout state machine to the next record object.
func (j *JSON) nextObject() (*orderedObject, error) {
	for {
		switch j.state {
		case jsonStart:
			tok, err := j.dec.Token()
			if errors.Is(err, io.EOF) {
				j.state = jsonDone
				return nil, io.EOF
			}
			if err != nil {
				return nil, j.unreadable("read first token", err)
			}
			switch tok {
			case json.Delim('['):
				j.state = jsonArray
			case json.Delim('{'):
				obj, envelope, err := j.readRootObject()
				if err != nil {
					return nil, err
				}
				if envelope {
					j.envelope = true
					j.state = jsonArray
				} else {
					j.state = jsonTrailing
				}
				if obj != nil {
					return obj, nil
				}
			default:
				return nil, j.notTabular("unsupported root token %v (want object or array)", tok)
			}

		case jsonArray:
			if j.dec.More() {
				tok, err := j.dec.Token()
				if err != nil {
					return nil, j.unreadable("read array element", err)
				}
				if tok == nil {
					continue
				}
				if tok != json.Delim('{') {
					return nil, j.notTabular("array element is %v, not an object", tok)
				}
				return j.readObjectBody()
			}
			if err := j.expect(json.Delim(']')); err != nil {
				return nil, err
			}
			if j.envelope {
				if err := j.skipRestOfObject(); err != nil {
					return nil, err
				}
			}
			j.state = jsonTrailing

		case jsonTrailing:
			tok, err := j.dec.Token()
			if errors.Is(err, io.EOF) {
				j.state = jsonDone
				return nil, io.EOF
			}
			if err != nil {
				return nil, j.unreadable("read trailing object", err)
			}
			if tok != json.Delim('{') {
				return nil, j.notTabular("trailing value %v is not an object", tok)
			}
			return j.readObjectBody()

		default:
			return nil, io.EOF
		}
	}
}

// readRootObject walks a root object after '{'. When a field holds an array
// whose first element is an object, that array is the envelope: its first
// element is returned and envelope is true. Otherwise the whole object is one
// record.
func (j *JSON) readRootObject() (obj *orderedObject, envelope bool, _ error) {
	obj = &orderedObject{}
	for j.dec.More() {
		key, err := j.readKey()
		if err != nil {
			return nil, false, err
		}
		valTok, err := j.dec.Token()
		if err != nil {
			return nil, false, j.unreadable("read value", err)
		}

		if valTok == json.Delim('[') && !j.opt.Lines && j.dec.More() {
			first, err := j.dec.Token()
			if err != nil {
				return nil, false, j.unreadable("read array element", err)
			}
			if first == json.Delim('{') {
				rec, err := j.readObjectBody()
				return rec, true, err
			}
			arr, err := j.materializeArrayFrom(first)
			if err != nil {
				return nil, false, err
			}
			obj.set(key, j.stringify(arr))
			continue
		}

		v, err := j.materialize(valTok)
		if err != nil {
			return nil, false, err
		}
		obj.set(key, j.stringify(v))
	}
	if err := j.expect(json.Delim('}')); err != nil {
		return nil, false, err
	}
	return obj, false, nil
}

// readObjectBody reads one record object after its '{'.
func (j *JSON) readObjectBody() (*orderedObject, error) {
	obj := &orderedObject{}
	for j.dec.More() {
		key, err := j.readKey()
		if err != nil {
			return nil, err
		}
		tok, err := j.dec.Token()
		if err != nil {
			return nil, j.unreadable("read value", err)
		}
		v, err := j.materialize(tok)
		if err != nil {
			return nil, err
		}
		obj.set(key, j.stringify(v))
	}
	if err := j.expect(json.Delim('}')); err != nil {
		return nil, err
	}
	return obj, nil
}

func (j *JSON) readKey() (string, error) {
	tok, err := j.dec.Token()
	if err != nil {
		return "", j.unreadable("read key", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", j.unreadable("read key", fmt.Errorf("key is %T, not a string", tok))
	}
	return key, nil
}

func (j *JSON) expect(want json.Delim) error {
	tok, err := j.dec.Token()
	if err != nil {
		return j.unreadable(fmt.Sprintf("read %q", want), err)
	}
	if tok != want {
		return j.unreadable(fmt.Sprintf("read %q", want), fmt.Errorf("got %v", tok))
	}
	return nil
}

// skipRestOfObject consumes the remaining fields of the envelope and its '}'.
func (j *JSON) skipRestOfObject() error {
	for j.dec.More() {
		if _, err := j.readKey(); err != nil {
			return err
		}
		tok, err := j.dec.Token()
		if err != nil {
			return j.unreadable("skip value", err)
		}
		if _, err := j.materialize(tok); err != nil {
			return err
		}
	}
	return j.expect(json.Delim('}'))
}

// materialize builds a Go value for the JSON value whose first token is tok.
// Object keys come back as a map; stringify re-encodes them in sorted order.
func (j *JSON) materialize(tok json.Token) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		m := make(map[string]any)
		for j.dec.More() {
			k, err := j.readKey()
			if err != nil {
				return nil, err
			}
			vt, err := j.dec.Token()
			if err != nil {
				return nil, j.unreadable("read nested value", err)
			}
			v, err := j.materialize(vt)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		if err := j.expect(json.Delim('}')); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		if !j.dec.More() {
			return []any{}, j.expect(json.Delim(']'))
		}
		first, err := j.dec.Token()
		if err != nil {
			return nil, j.unreadable("read nested value", err)
		}
		return j.materializeArrayFrom(first)
	}
	return nil, j.unreadable("read value", fmt.Errorf("unexpected delimiter %q", d))
}

// materializeArrayFrom finishes an array whose first element token is first.
func (j *JSON) materializeArrayFrom(first json.Token) ([]any, error) {
	v, err := j.materialize(first)
	if err != nil {
		return nil, err
	}
	arr := []any{v}
	for j.dec.More() {
		tok, err := j.dec.Token()
		if err != nil {
			return nil, j.unreadable("read nested value", err)
		}
		v, err := j.materialize(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if err := j.expect(json.Delim(']')); err != nil {
		return nil, err
	}
	return arr, nil
}

// stringify renders a decoded value as a field value. Arrays made only of
// strings are joined; other composites become compact JSON.
func (j *JSON) stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case []any:
		ss := make([]string, 0, len(t))
		for _, it := range t {
			if it == nil {
				continue
			}
			s, ok := it.(string)
			if !ok {
				return compactJSON(v)
			}
			ss = append(ss, s)
		}
		return strings.Join(ss, j.opt.ArrayJoinSeparator)
	default:
		return compactJSON(v)
	}
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
