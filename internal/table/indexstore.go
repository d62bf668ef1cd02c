package table

import (
	"github.com/jetaccess/jetdb/internal/index"
	"github.com/jetaccess/jetdb/internal/pagestore"
	pcerrors "github.com/pingcap/errors"
)

// channelIndexStore adapts pagestore.Channel to index.PageStore,
// giving each IndexPageCache its own I/O dependency without the index
// package importing pagestore or table directly (spec.md §9's layering
// guidance, mirrored from lval's PageReader/PageWriter split).
type channelIndexStore struct {
	channel *pagestore.Channel
}

func newChannelIndexStore(ch *pagestore.Channel) *channelIndexStore {
	return &channelIndexStore{channel: ch}
}

func (s *channelIndexStore) ReadIndexPage(page uint32) (index.Main, index.Extra, error) {
	buf := s.channel.CreatePageBuffer()
	if err := s.channel.ReadPage(buf, page); err != nil {
		return index.Main{}, index.Extra{}, pcerrors.Trace(err)
	}
	main, extra, err := decodeIndexPage(buf)
	if err != nil {
		return index.Main{}, index.Extra{}, pcerrors.Trace(err)
	}
	main.PageNumber = page
	return main, extra, nil
}

func (s *channelIndexStore) WriteIndexPage(page uint32, main index.Main, extra index.Extra) error {
	buf := s.channel.CreatePageBuffer()
	encodeIndexPage(buf, main, extra)
	return pcerrors.Trace(s.channel.WritePage(buf, page))
}

func (s *channelIndexStore) AllocatePage() (uint32, error) {
	page, err := s.channel.AllocateNewPage()
	if err != nil {
		return 0, pcerrors.Trace(err)
	}
	buf := s.channel.CreatePageBuffer()
	buf[0] = PageTypeIndex
	if err := s.channel.WritePage(buf, page); err != nil {
		return 0, pcerrors.Trace(err)
	}
	return page, nil
}

func (s *channelIndexStore) FreePage(page uint32) error {
	return pcerrors.Trace(s.channel.DeallocatePage(page))
}
