package profile

import (
	"encoding/binary"
	"strings"

	"github.com/zeebo/xxh3"
)

// rowDeduper counts rows whose full set of values was already seen.
type rowDeduper struct {
	seen map[xxh3.Uint128]struct{}
	dups int
	buf  []byte
}

func newRowDeduper() *rowDeduper {
	return &rowDeduper{seen: make(map[xxh3.Uint128]struct{})}
}

// observe hashes the canonical encoding of vals. Values are trimmed and
// length-prefixed, so absent and whitespace-only values encode the same and
// no separator byte inside a value can cause a collision.
func (d *rowDeduper) observe(vals []string, width int) {
	b := d.buf[:0]
	for i := 0; i < width; i++ {
		v := strings.TrimSpace(valueAt(vals, i))
		b = binary.AppendUvarint(b, uint64(len(v)))
		b = append(b, v...)
	}
	d.buf = b

	h := xxh3.Hash128(b)
	if _, ok := d.seen[h]; ok {
		d.dups++
		return
	}
	d.seen[h] = struct{}{}
}

func (d *rowDeduper) duplicates() int { return d.dups }
