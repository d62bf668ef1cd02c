package table

import (
	"sort"

	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/index"
	"github.com/jetaccess/jetdb/internal/jetformat"
	"github.com/jetaccess/jetdb/internal/lval"
	"github.com/jetaccess/jetdb/internal/pagestore"
	"github.com/jetaccess/jetdb/internal/record"
	"github.com/jetaccess/jetdb/internal/usagemap"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Table is the table manager of spec.md §4.7: row read/write/delete
// against a table's data pages, auto-number allocation, overflow-row
// rewriting, and index synchronization.
type Table struct {
	channel *pagestore.Channel
	format  jetformat.JetFormat
	def     *Definition

	owned      *usagemap.Map
	ownedExtra map[uint32]bool // pages beyond the inline map's bitmap capacity

	autoGen *column.AutoNumberGenerator

	indexes     map[string]*index.Cache
	indexStores map[string]*channelIndexStore

	// modCount increments on every successful AddRow/UpdateRow/DeleteRow
	// and is read through ModCount. RowState does not consult it, so a
	// RowState resolved before a mutation is not invalidated by it.
	modCount atomic.Uint64

	log *logrus.Entry
}

// ModCount returns the number of row mutations this Table has applied
// since it was opened.
func (t *Table) ModCount() uint64 { return t.modCount.Load() }

// Open reads tdefPage's table definition and builds a Table over it.
func Open(ch *pagestore.Channel, format jetformat.JetFormat, tdefPage uint32, logger *logrus.Logger) (*Table, error) {
	buf := ch.CreatePageBuffer()
	if err := ch.ReadPage(buf, tdefPage); err != nil {
		return nil, errors.Annotate(err, "table: read definition page")
	}
	def, err := ParseDefinition(tdefPage, buf, format)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	t := &Table{
		channel:     ch,
		format:      format,
		def:         def,
		owned:       usagemap.NewInline(0, format.UsageMapTableByteLength),
		ownedExtra:  make(map[uint32]bool),
		autoGen:     column.NewAutoNumberGenerator(def.LastLongAutoNum),
		indexes:     make(map[string]*index.Cache),
		indexStores: make(map[string]*channelIndexStore),
		log:         logger.WithField("table", def.Name),
	}
	// The owned-page map is not stored in the file; rebuild it from
	// every data page whose owner field names tdefPage.
	pbuf := ch.CreatePageBuffer()
	for p := uint32(1); p < ch.PageCount(); p++ {
		if ch.ReadPage(pbuf, p) != nil {
			continue
		}
		if dp, err := LoadDataPage(p, pbuf, format); err == nil && dp.TDefPage() == tdefPage {
			t.markOwned(p)
		}
	}
	for _, idef := range def.Indexes {
		store := newChannelIndexStore(ch)
		t.indexStores[idef.Name] = store
		t.indexes[idef.Name] = index.NewCache(store, index.Config{
			Root:             idef.RootPage,
			Unique:           idef.Unique,
			MaxPageEntrySize: format.PageSize - indexPageHeaderSize,
		})
	}
	return t, nil
}

// Definition exposes the parsed table-definition metadata.
func (t *Table) Definition() *Definition { return t.def }

func (t *Table) encodeOptions() record.EncodeOptions {
	return record.EncodeOptions{
		Header:             t.format.RowHeader,
		MaxColumnCount:     t.def.MaxColumnCount(),
		MaxVarColumnCount:  t.def.MaxVarColumnCount(),
		MinRowSize:         0,
		RemainingRowLength: t.format.MaxRowSize,
		MaxInlineLongValue: t.format.MaxInlineLongValueSize,
		MaxLValRowSize:     t.format.MaxLongValueRowSize,
		LValWriter:         t,
	}
}

// GetRow resolves id through the RowState machine and decodes every
// column, per spec.md §4.7.
func (t *Table) GetRow(id record.RowId) ([]column.Value, error) {
	rs := NewRowState(id)
	if err := rs.Resolve(t.channel, t.format); err != nil {
		return nil, errors.Trace(err)
	}
	switch rs.Status() {
	case StatusDeleted:
		return nil, ErrRowDeleted
	case StatusInvalidPage, StatusInvalidRow:
		return nil, ErrRowIndexRange
	}
	return t.decodeRow(rs.Row())
}

func (t *Table) decodeRow(raw []byte) ([]column.Value, error) {
	dec := record.NewDecoder(raw, t.format.RowHeader)
	values := make([]column.Value, len(t.def.Columns))
	for i, c := range t.def.Columns {
		v, err := dec.DecodeColumn(c)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if v.Kind == column.KindLValRef && !c.IsFixedLength() {
			lraw, err := dec.RawVariableColumn(c.VariableTableIndex)
			if err != nil {
				return nil, errors.Trace(err)
			}
			data, err := lval.Read(lraw, t)
			if err != nil {
				return nil, errors.Trace(err)
			}
			if data == nil {
				v = column.Null
			} else if c.Type == column.TypeMemo {
				v = column.Value{Kind: column.KindText, Text: string(data)}
			} else {
				v = column.Value{Kind: column.KindBytes, Bytes: data}
			}
		}
		values[i] = v
	}
	return values, nil
}

// resolveWrites turns a per-column Write slice into concrete values,
// generating auto-numbers and substituting existing values for
// WriteKeep, per spec.md §9's tagged-write design.
func (t *Table) resolveWrites(writes []Write, existing []column.Value) ([]column.Value, error) {
	if len(writes) != len(t.def.Columns) {
		return nil, errors.New("table: write count does not match column count")
	}
	out := make([]column.Value, len(writes))
	for i, c := range t.def.Columns {
		w := writes[i]
		switch w.Kind {
		case WriteValue:
			out[i] = w.Value
		case WriteKeep:
			if existing == nil {
				return nil, errors.New("table: WriteKeep is only valid on UpdateRow")
			}
			out[i] = existing[i]
		case WriteAuto:
			if !c.IsAutoNumber() {
				return nil, errors.Errorf("table: column %q is not an auto-number column", c.Name)
			}
			if c.IsAutoNumberGUID() {
				out[i] = column.Value{Kind: column.KindGUID, GUID: column.NextGUID()}
			} else {
				out[i] = column.Value{Kind: column.KindI32, I32: t.autoGen.NextLong()}
			}
		}
	}
	return out, nil
}

// AddRow encodes writes and stores the resulting row on whichever
// owned data page has room, allocating a fresh page if none does.
func (t *Table) AddRow(writes []Write) (record.RowId, error) {
	values, err := t.resolveWrites(writes, nil)
	if err != nil {
		return record.RowId{}, errors.Trace(err)
	}
	raw, err := record.Encode(t.def.Columns, values, t.encodeOptions())
	if err != nil {
		return record.RowId{}, errors.Trace(err)
	}

	dp, err := t.findOrAllocatePage(len(raw))
	if err != nil {
		return record.RowId{}, errors.Trace(err)
	}
	idx, err := dp.AddRow(raw)
	if err != nil {
		return record.RowId{}, errors.Trace(err)
	}
	if err := t.channel.WritePage(dp.Buffer(), dp.Number); err != nil {
		return record.RowId{}, errors.Trace(err)
	}

	id := record.RowId{Page: dp.Number, Row: uint16(idx)}
	t.def.NumRows++
	if err := t.persistDefinition(); err != nil {
		return record.RowId{}, errors.Trace(err)
	}
	if err := t.insertIndexEntries(values, id); err != nil {
		return record.RowId{}, errors.Trace(err)
	}
	t.modCount.Inc()
	return id, nil
}

// ownedPages lists every data page this table owns, merging the
// inline bitmap with any pages that overflowed its fixed capacity.
func (t *Table) ownedPages() []uint32 {
	pages := t.owned.OwnedPages()
	for p := range t.ownedExtra {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages
}

// markOwned records page as belonging to this table, falling back to
// ownedExtra once the inline bitmap's fixed capacity is exceeded
// rather than silently losing ownership of the page.
func (t *Table) markOwned(page uint32) {
	if !t.owned.SetPageOwned(page, true) {
		t.ownedExtra[page] = true
	}
}

func (t *Table) findOrAllocatePage(rowSize int) (*DataPage, error) {
	for _, pageNum := range t.ownedPages() {
		buf := t.channel.CreatePageBuffer()
		if err := t.channel.ReadPage(buf, pageNum); err != nil {
			continue
		}
		dp, err := LoadDataPage(pageNum, buf, t.format)
		if err != nil {
			continue
		}
		if dp.CanFit(rowSize) {
			return dp, nil
		}
	}
	pageNum, err := t.channel.AllocateNewPage()
	if err != nil {
		return nil, errors.Trace(err)
	}
	buf := t.channel.CreatePageBuffer()
	dp := NewDataPage(pageNum, buf, t.format, t.def.TDefPage)
	t.markOwned(pageNum)
	return dp, nil
}

// Scan visits every non-deleted row this table owns, in page-number
// then row-index order, decoding each one and calling fn. A per-row
// decode failure (a corrupt value, not a corrupt page) is handed to
// fn as rowErr instead of aborting the scan outright, so a caller-
// supplied ErrorHandler (spec.md §7) can decide whether to skip the
// row or abort. fn returns cont=false to stop the scan early. Scan is
// also the primitive behind catalog's full-table-scan fallback
// (spec.md §4.8's "if the expected index is missing, fall back to a
// full scan").
func (t *Table) Scan(fn func(id record.RowId, values []column.Value, rowErr error) (cont bool, err error)) error {
	for _, pageNum := range t.ownedPages() {
		buf := t.channel.CreatePageBuffer()
		if err := t.channel.ReadPage(buf, pageNum); err != nil {
			return errors.Trace(err)
		}
		dp, err := LoadDataPage(pageNum, buf, t.format)
		if err != nil {
			continue
		}
		for row := 0; row < dp.NumRows(); row++ {
			raw, deleted, overflow, err := dp.ReadRow(row)
			if err != nil {
				return errors.Trace(err)
			}
			if deleted {
				continue
			}
			id := record.RowId{Page: pageNum, Row: uint16(row)}
			var values []column.Value
			var rowErr error
			if overflow {
				values, rowErr = t.GetRow(id)
			} else {
				values, rowErr = t.decodeRow(raw)
			}
			cont, err := fn(id, values, rowErr)
			if err != nil {
				return errors.Trace(err)
			}
			if !cont {
				return nil
			}
		}
	}
	return nil
}

// UpdateRow re-encodes writes for the row at id. A same-size rewrite
// happens in place; a changed size triggers the overflow-row rewrite
// of spec.md §4.7: the full new row is added to whichever owned data
// page has room (a new page is allocated when none has), and the
// original slot becomes a forwarding pointer to it.
func (t *Table) UpdateRow(id record.RowId, writes []Write) error {
	old, err := t.GetRow(id)
	if err != nil {
		return errors.Trace(err)
	}
	values, err := t.resolveWrites(writes, old)
	if err != nil {
		return errors.Trace(err)
	}
	raw, err := record.Encode(t.def.Columns, values, t.encodeOptions())
	if err != nil {
		return errors.Trace(err)
	}

	rs := NewRowState(id)
	if err := rs.Resolve(t.channel, t.format); err != nil {
		return errors.Trace(err)
	}

	buf := t.channel.CreatePageBuffer()
	if err := t.channel.ReadPage(buf, id.Page); err != nil {
		return errors.Trace(err)
	}
	dp, err := LoadDataPage(id.Page, buf, t.format)
	if err != nil {
		return errors.Trace(err)
	}
	oldRaw, _, _, err := dp.ReadRow(int(id.Row))
	if err != nil {
		return errors.Trace(err)
	}

	if len(raw) == len(oldRaw) {
		copy(oldRaw, raw)
	} else {
		newPage, err := t.findOrAllocatePage(len(raw))
		if err != nil {
			return errors.Trace(err)
		}
		newIdx, err := newPage.AddRow(raw)
		if err != nil {
			return errors.Trace(err)
		}
		if err := t.channel.WritePage(newPage.Buffer(), newPage.Number); err != nil {
			return errors.Trace(err)
		}
		if newPage.Number == dp.Number {
			dp = newPage // dp's buffer predates the new row
		}
		if err := dp.RewriteAsOverflow(int(id.Row), newPage.Number, newIdx); err != nil {
			return errors.Trace(err)
		}
	}
	if err := t.channel.WritePage(dp.Buffer(), dp.Number); err != nil {
		return errors.Trace(err)
	}

	if err := t.removeIndexEntries(old, id); err != nil {
		return errors.Trace(err)
	}
	if err := t.insertIndexEntries(values, id); err != nil {
		return errors.Trace(err)
	}
	t.modCount.Inc()
	return nil
}

// DeleteRow marks the row at its original location deleted (spec.md
// §4.7 defers reclaiming its space to a page rebuild) and removes its
// index entries.
func (t *Table) DeleteRow(id record.RowId) error {
	values, err := t.GetRow(id)
	if err != nil {
		return errors.Trace(err)
	}
	buf := t.channel.CreatePageBuffer()
	if err := t.channel.ReadPage(buf, id.Page); err != nil {
		return errors.Trace(err)
	}
	dp, err := LoadDataPage(id.Page, buf, t.format)
	if err != nil {
		return errors.Trace(err)
	}
	if err := dp.MarkDeleted(int(id.Row)); err != nil {
		return errors.Trace(err)
	}
	if err := t.channel.WritePage(dp.Buffer(), dp.Number); err != nil {
		return errors.Trace(err)
	}
	t.def.NumRows--
	if err := t.persistDefinition(); err != nil {
		return errors.Trace(err)
	}
	if err := t.removeIndexEntries(values, id); err != nil {
		return errors.Trace(err)
	}
	t.modCount.Inc()
	return nil
}

func (t *Table) persistDefinition() error {
	buf := t.channel.CreatePageBuffer()
	t.def.Encode(buf, t.format)
	return t.channel.WritePage(buf, t.def.TDefPage)
}

func (t *Table) indexKey(def IndexDef, values []column.Value) []byte {
	var key []byte
	for _, ic := range def.Columns {
		if ic.ColumnIndex >= len(values) {
			continue
		}
		key = append(key, index.EncodeKey(values[ic.ColumnIndex], ic.Descending)...)
	}
	return key
}

func (t *Table) insertIndexEntries(values []column.Value, id record.RowId) error {
	for _, idef := range t.def.Indexes {
		cache := t.indexes[idef.Name]
		key := t.indexKey(idef, values)
		if err := cache.Insert(index.LeafEntry(key, id)); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (t *Table) removeIndexEntries(values []column.Value, id record.RowId) error {
	for _, idef := range t.def.Indexes {
		cache := t.indexes[idef.Name]
		key := t.indexKey(idef, values)
		if err := cache.Remove(index.LeafEntry(key, id)); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// FlushIndexes flushes every index's pending page splits/deallocations,
// per spec.md §4.6.5. Callers call this after a batch of row mutations
// rather than after every single Insert/Remove.
func (t *Table) FlushIndexes() error {
	for _, cache := range t.indexes {
		if err := cache.Flush(); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// ReadRow implements lval.PageReader: the raw bytes of one row,
// ignoring the deleted/overflow flags an LVAL chain page never sets.
func (t *Table) ReadRow(page uint32, rowNum byte) ([]byte, error) {
	buf := t.channel.CreatePageBuffer()
	if err := t.channel.ReadPage(buf, page); err != nil {
		return nil, errors.Trace(err)
	}
	dp, err := LoadDataPage(page, buf, t.format)
	if err != nil {
		return nil, errors.Trace(err)
	}
	raw, _, _, err := dp.ReadRow(int(rowNum))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return raw, nil
}

// AllocateDataPage implements lval.PageWriter.
func (t *Table) AllocateDataPage() (uint32, error) {
	pageNum, err := t.channel.AllocateNewPage()
	if err != nil {
		return 0, errors.Trace(err)
	}
	buf := t.channel.CreatePageBuffer()
	NewDataPage(pageNum, buf, t.format, t.def.TDefPage)
	if err := t.channel.WritePage(buf, pageNum); err != nil {
		return 0, errors.Trace(err)
	}
	t.markOwned(pageNum)
	return pageNum, nil
}

// WriteRow implements lval.PageWriter: appends data as the next
// sequential row on page (lval always writes a freshly allocated
// page's row 0).
func (t *Table) WriteRow(page uint32, rowNum byte, data []byte) error {
	buf := t.channel.CreatePageBuffer()
	if err := t.channel.ReadPage(buf, page); err != nil {
		return errors.Trace(err)
	}
	dp, err := LoadDataPage(page, buf, t.format)
	if err != nil {
		return errors.Trace(err)
	}
	if int(rowNum) != dp.NumRows() {
		return errors.New("table: lval row writes must be sequential")
	}
	if _, err := dp.AddRow(data); err != nil {
		return errors.Trace(err)
	}
	return t.channel.WritePage(dp.Buffer(), page)
}
