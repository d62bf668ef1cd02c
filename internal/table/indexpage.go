package table

import (
	"encoding/binary"

	"github.com/jetaccess/jetdb/internal/index"
	"github.com/jetaccess/jetdb/internal/record"
)

// PageTypeIndex marks an index B-tree page.
const PageTypeIndex = byte(0x03)

// indexPageHeaderSize is encodeIndexPage's fixed prefix: type, leaf
// flag, parent/prev/next/child-tail page numbers, prefix length and
// entry count.
const indexPageHeaderSize = 1 + 1 + 4 + 4 + 4 + 4 + 2 + 2

// encodeIndexPage serializes main/extra into a page-sized buffer.
// Prefix compression happens inside index.Cache before flush; this
// layer only has to round-trip whatever Entries it is handed.
func encodeIndexPage(buf []byte, main index.Main, extra index.Extra) {
	for i := range buf {
		buf[i] = 0
	}
	buf[0] = PageTypeIndex
	pos := 1
	if main.Leaf {
		buf[pos] = 1
	}
	pos++
	binary.LittleEndian.PutUint32(buf[pos:], main.Parent)
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], main.Prev)
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], main.Next)
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], main.ChildTailPage)
	pos += 4

	binary.LittleEndian.PutUint16(buf[pos:], uint16(len(extra.Prefix)))
	pos += 2
	pos += copy(buf[pos:], extra.Prefix)

	binary.LittleEndian.PutUint16(buf[pos:], uint16(len(extra.Entries)))
	pos += 2
	for _, e := range extra.Entries {
		binary.LittleEndian.PutUint16(buf[pos:], uint16(len(e.Key)))
		pos += 2
		pos += copy(buf[pos:], e.Key)
		if e.IsNode {
			buf[pos] = 1
			pos++
			binary.LittleEndian.PutUint32(buf[pos:], e.ChildPage)
			pos += 4
		} else {
			buf[pos] = 0
			pos++
			binary.LittleEndian.PutUint32(buf[pos:], e.RowID.Page)
			pos += 4
			binary.LittleEndian.PutUint16(buf[pos:], e.RowID.Row)
			pos += 2
		}
	}
}

func decodeIndexPage(buf []byte) (index.Main, index.Extra, error) {
	if len(buf) < 1 || buf[0] != PageTypeIndex {
		return index.Main{}, index.Extra{}, ErrNotIndexPage
	}
	pos := 1
	leaf := buf[pos] == 1
	pos++
	parent := binary.LittleEndian.Uint32(buf[pos:])
	pos += 4
	prev := binary.LittleEndian.Uint32(buf[pos:])
	pos += 4
	next := binary.LittleEndian.Uint32(buf[pos:])
	pos += 4
	childTail := binary.LittleEndian.Uint32(buf[pos:])
	pos += 4

	prefixLen := int(binary.LittleEndian.Uint16(buf[pos:]))
	pos += 2
	prefix := append([]byte{}, buf[pos:pos+prefixLen]...)
	pos += prefixLen

	entryCount := int(binary.LittleEndian.Uint16(buf[pos:]))
	pos += 2
	entries := make([]index.Entry, 0, entryCount)
	total := 0
	for i := 0; i < entryCount; i++ {
		keyLen := int(binary.LittleEndian.Uint16(buf[pos:]))
		pos += 2
		key := append([]byte{}, buf[pos:pos+keyLen]...)
		pos += keyLen
		isNode := buf[pos] == 1
		pos++
		var e index.Entry
		if isNode {
			child := binary.LittleEndian.Uint32(buf[pos:])
			pos += 4
			e = index.NodeEntry(key, child)
		} else {
			page := binary.LittleEndian.Uint32(buf[pos:])
			pos += 4
			row := binary.LittleEndian.Uint16(buf[pos:])
			pos += 2
			e = index.LeafEntry(key, record.RowId{Page: page, Row: row})
		}
		entries = append(entries, e)
		total += e.Size()
	}

	main := index.Main{Leaf: leaf, Parent: parent, Prev: prev, Next: next, ChildTailPage: childTail}
	extra := index.Extra{Entries: entries, Prefix: prefix, TotalEntrySize: total}
	return main, extra, nil
}
