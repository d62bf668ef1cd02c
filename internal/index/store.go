package index

// PageStore is the index page cache's only I/O dependency: reading
// and writing the main/extra records of one physical index page, and
// allocating/freeing pages. The table package supplies the concrete
// implementation backed by pagestore.Channel.
type PageStore interface {
	ReadIndexPage(page uint32) (Main, Extra, error)
	WriteIndexPage(page uint32, main Main, extra Extra) error
	AllocatePage() (uint32, error)
	FreePage(page uint32) error
}
