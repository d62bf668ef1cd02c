// Package pagestore implements the fixed-size page I/O layer spec.md
// §4.1 calls PageChannel: page read/write over a single file, a free-
// page allocator, an optional codec for decrypt-on-read/encrypt-on-
// write, auto-sync, and a small scratch-buffer pool (§5).
package pagestore

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// InvalidPageNumber is the RowId sentinel for "no such page" (spec.md §3).
const InvalidPageNumber uint32 = 0xFFFFFFFF

// Channel is a single-file, single-writer page store. It is not safe
// for concurrent use — per spec.md §5, callers serialize their own
// access.
type Channel struct {
	f        *os.File
	pageSize int
	readOnly bool
	autoSync bool
	codec    PageCodec
	order    ByteOrder

	log *logrus.Entry

	mu        sync.Mutex // guards only the scratch buffer pool, see Take/Release
	scratch   [][]byte
	maxScratch int

	pageCount uint32

	freeMu   sync.Mutex
	freeList []uint32
	// freeGen counts free-list mutations (each DeallocatePage and each
	// reuse of a freed page by AllocateNewPage), read through
	// FreeListGeneration. table.RowState does not consult it.
	freeGen atomic.Uint64
}

// FreeListGeneration returns the current free-list mutation counter.
func (c *Channel) FreeListGeneration() uint64 { return c.freeGen.Load() }

// ByteOrder re-exports the little-endian default PageChannel buffers
// use, named distinctly from bytesutil.Order so call sites read
// naturally as "channel default order".
type ByteOrder = interface {
	Uint16([]byte) uint16
	Uint32([]byte) uint32
	PutUint16([]byte, uint16)
	PutUint32([]byte, uint32)
}

// Options configures a new Channel.
type Options struct {
	PageSize   int
	ReadOnly   bool
	AutoSync   bool
	Codec      PageCodec // nil defaults to NoopCodec
	Logger     *logrus.Logger
	MaxScratch int // scratch buffer pool size; 0 defaults to 4
}

// Open mounts a Channel over an already-opened file. The caller is
// responsible for opening f with the access mode matching ReadOnly.
func Open(f *os.File, opt Options) (*Channel, error) {
	if opt.PageSize != 2048 && opt.PageSize != 4096 {
		return nil, ErrInvalidPageSize
	}
	codec := opt.Codec
	if codec == nil {
		codec = NoopCodec{}
	}
	logger := opt.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	maxScratch := opt.MaxScratch
	if maxScratch <= 0 {
		maxScratch = 4
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "pagestore: stat")
	}
	pageCount := uint32(fi.Size() / int64(opt.PageSize))

	return &Channel{
		f:          f,
		pageSize:   opt.PageSize,
		readOnly:   opt.ReadOnly,
		autoSync:   opt.AutoSync,
		codec:      codec,
		order:      littleEndianOrder{},
		log:        logger.WithField("component", "pagestore"),
		maxScratch: maxScratch,
		pageCount:  pageCount,
	}, nil
}

// PageSize returns the fixed page size this channel was opened with.
func (c *Channel) PageSize() int { return c.pageSize }

// PageCount returns the number of pages currently in the file,
// including page 0.
func (c *Channel) PageCount() uint32 { return c.pageCount }

// DefaultOrder is the byte order CreatePageBuffer callers should
// assume for multi-byte integer fields unless a specific field is
// documented otherwise (NUMERIC, parts of GUID; see column package).
func (c *Channel) DefaultOrder() ByteOrder { return c.order }

// CreatePageBuffer returns a zeroed, page-sized buffer.
func (c *Channel) CreatePageBuffer() []byte {
	return make([]byte, c.pageSize)
}

// Take borrows a scratch buffer from the small pool described in
// spec.md §5, allocating a fresh one if the pool is empty. Callers
// MUST call Release on every exit path.
func (c *Channel) Take() []byte {
	c.mu.Lock()
	n := len(c.scratch)
	if n == 0 {
		c.mu.Unlock()
		return c.CreatePageBuffer()
	}
	buf := c.scratch[n-1]
	c.scratch = c.scratch[:n-1]
	c.mu.Unlock()
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// Release returns a scratch buffer to the pool, dropping it if the
// pool is already at capacity.
func (c *Channel) Release(buf []byte) {
	if len(buf) != c.pageSize {
		return
	}
	c.mu.Lock()
	if len(c.scratch) < c.maxScratch {
		c.scratch = append(c.scratch, buf)
	}
	c.mu.Unlock()
}

// ReadPage reads page n into buf, which must be exactly PageSize long.
// Page 0 (the file header) is never passed through the codec.
func (c *Channel) ReadPage(buf []byte, n uint32) error {
	if len(buf) != c.pageSize {
		return ErrInvalidPageSize
	}
	off := int64(n) * int64(c.pageSize)
	read, err := c.f.ReadAt(buf, off)
	if err != nil {
		return errors.Wrapf(err, "pagestore: read page %d", n)
	}
	if read != c.pageSize {
		return errors.Wrapf(ErrShortRead, "page %d: read %d of %d bytes", n, read, c.pageSize)
	}
	if n != 0 {
		if err := c.codec.DecodePage(n, buf); err != nil {
			return errors.Wrapf(err, "pagestore: decode page %d", n)
		}
	}
	return nil
}

// WritePage encodes (if a codec is set) and writes buf to page n, then
// flushes immediately when AutoSync is enabled.
func (c *Channel) WritePage(buf []byte, n uint32) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if len(buf) != c.pageSize {
		return ErrInvalidPageSize
	}
	if n != 0 {
		encoded := make([]byte, len(buf))
		copy(encoded, buf)
		if err := c.codec.EncodePage(n, encoded); err != nil {
			return errors.Wrapf(err, "pagestore: encode page %d", n)
		}
		buf = encoded
	}
	off := int64(n) * int64(c.pageSize)
	written, err := c.f.WriteAt(buf, off)
	if err != nil {
		return errors.Wrapf(err, "pagestore: write page %d", n)
	}
	if written != c.pageSize {
		return errors.Wrapf(ErrShortWrite, "page %d: wrote %d of %d bytes", n, written, c.pageSize)
	}
	if n+1 > c.pageCount {
		c.pageCount = n + 1
	}
	if c.autoSync {
		if err := c.f.Sync(); err != nil {
			return errors.Wrap(err, "pagestore: fsync")
		}
	}
	return nil
}

// AllocateNewPage returns a previously deallocated page if the free
// list (spec.md §5) holds one, or otherwise extends the file by one
// page. The caller is responsible for writing its content; a reused
// page is already zero-filled by DeallocatePage, and a grown page is
// not zeroed on disk until the caller's WritePage call.
func (c *Channel) AllocateNewPage() (uint32, error) {
	if c.readOnly {
		return 0, ErrReadOnly
	}
	c.freeMu.Lock()
	if n := len(c.freeList); n > 0 {
		page := c.freeList[n-1]
		c.freeList = c.freeList[:n-1]
		c.freeMu.Unlock()
		c.freeGen.Inc()
		c.log.WithField("page", page).Debug("reused free page")
		return page, nil
	}
	c.freeMu.Unlock()
	n := c.pageCount
	c.pageCount++
	c.log.WithField("page", n).Debug("allocated new page")
	return n, nil
}

// DeallocatePage zero-fills page n and pushes it onto the in-memory
// free list so a future AllocateNewPage reuses it instead of growing
// the file. The free list does not survive a process restart; this
// only costs a little file growth on the next run, never correctness,
// since every live page is still reachable from the header/table
// structures that reference it.
func (c *Channel) DeallocatePage(n uint32) error {
	if c.readOnly {
		return ErrReadOnly
	}
	buf := c.CreatePageBuffer()
	if err := c.WritePage(buf, n); err != nil {
		return errors.Wrapf(err, "pagestore: zero-fill page %d", n)
	}
	c.freeMu.Lock()
	c.freeList = append(c.freeList, n)
	c.freeMu.Unlock()
	c.freeGen.Inc()
	c.log.WithField("page", n).Debug("deallocated page")
	return nil
}

type littleEndianOrder struct{}

func (littleEndianOrder) Uint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func (littleEndianOrder) Uint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func (littleEndianOrder) PutUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
func (littleEndianOrder) PutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
