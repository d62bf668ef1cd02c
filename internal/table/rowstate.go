package table

import (
	"github.com/jetaccess/jetdb/internal/jetformat"
	"github.com/jetaccess/jetdb/internal/pagestore"
	"github.com/jetaccess/jetdb/internal/record"
)

// phase tracks how far a RowState's navigation toward a row's bytes
// has progressed: INIT has only a RowId, AT_HEADER has resolved and
// validated the containing data page, AT_FINAL has resolved the
// actual row bytes (following one overflow hop if needed).
type phase int

const (
	phaseInit phase = iota
	phaseAtHeader
	phaseAtFinal
)

// Status classifies what GetRow found once a RowState reaches
// phaseAtFinal, matching spec.md §3's RowId/status vocabulary.
type Status int

const (
	StatusInvalidPage Status = iota
	StatusInvalidRow
	StatusDeleted
	StatusNormal
	StatusOverflow
)

func (s Status) String() string {
	switch s {
	case StatusInvalidPage:
		return "INVALID_PAGE"
	case StatusInvalidRow:
		return "INVALID_ROW"
	case StatusDeleted:
		return "DELETED"
	case StatusNormal:
		return "NORMAL"
	case StatusOverflow:
		return "OVERFLOW"
	default:
		return "UNKNOWN"
	}
}

// RowState walks a RowId to its row bytes in the INIT -> AT_HEADER ->
// AT_FINAL sequence spec.md §9 calls for, so GetRow/UpdateRow/DeleteRow
// share one navigation path instead of each re-deriving it.
type RowState struct {
	id     record.RowId
	phase  phase
	status Status

	page *DataPage
	raw  []byte

	finalID record.RowId // id after following one overflow hop
}

// NewRowState starts navigation for id.
func NewRowState(id record.RowId) *RowState {
	return &RowState{id: id, phase: phaseInit, finalID: id}
}

// ID returns the original RowId this state was constructed for.
func (rs *RowState) ID() record.RowId { return rs.id }

// Status reports the outcome once resolved; callers should only trust
// it after a successful Resolve call.
func (rs *RowState) Status() Status { return rs.status }

// Row returns the resolved row bytes (only meaningful when Status is
// StatusNormal).
func (rs *RowState) Row() []byte { return rs.raw }

// Resolve drives the state machine to phaseAtFinal, loading at most
// two data pages (the row's own page, and — if it holds an overflow
// pointer — the page the pointer targets).
func (rs *RowState) Resolve(ch *pagestore.Channel, format jetformat.JetFormat) error {
	if !rs.id.Valid() {
		rs.status = StatusInvalidPage
		rs.phase = phaseAtFinal
		return nil
	}
	if err := rs.loadHeader(ch, format, rs.id); err != nil {
		return err
	}
	if rs.status != StatusNormal && rs.status != StatusOverflow {
		rs.phase = phaseAtFinal
		return nil
	}
	if rs.status == StatusOverflow {
		targetPage, targetRow := OverflowTarget(rs.raw)
		rs.finalID = record.RowId{Page: targetPage, Row: uint16(targetRow)}
		if err := rs.loadHeader(ch, format, rs.finalID); err != nil {
			return err
		}
	}
	rs.phase = phaseAtFinal
	return nil
}

// loadHeader is the INIT -> AT_HEADER transition for one RowId hop:
// read the page, validate it is a data page, and pull the row's raw
// bytes plus deleted/overflow classification.
func (rs *RowState) loadHeader(ch *pagestore.Channel, format jetformat.JetFormat, id record.RowId) error {
	rs.phase = phaseAtHeader
	buf := ch.CreatePageBuffer()
	if err := ch.ReadPage(buf, id.Page); err != nil {
		rs.status = StatusInvalidPage
		return nil
	}
	dp, err := LoadDataPage(id.Page, buf, format)
	if err != nil {
		rs.status = StatusInvalidPage
		return nil
	}
	rs.page = dp
	raw, deleted, overflow, err := dp.ReadRow(int(id.Row))
	if err != nil {
		rs.status = StatusInvalidRow
		return nil
	}
	rs.raw = raw
	switch {
	case deleted:
		rs.status = StatusDeleted
	case overflow:
		rs.status = StatusOverflow
	default:
		rs.status = StatusNormal
	}
	return nil
}
