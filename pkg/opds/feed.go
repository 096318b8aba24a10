package opds

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OPDS namespaces.
const (
	AtomNS = "http://www.w3.org/2005/Atom"
	DCNS   = "http://purl.org/dc/terms/"
	OPDSNS = "http://opds-spec.org/2010/catalog"
)

// Link relation types.
const (
	RelSelf        = "self"
	RelStart       = "start"
	RelUp          = "up"
	RelSubsection  = "subsection"
	RelNext        = "next"
	RelPrevious    = "previous"
	RelFirst       = "first"
	RelLast        = "last"
	RelAcquisition = "http://opds-spec.org/acquisition"
	RelOpenAccess  = "http://opds-spec.org/acquisition/open-access"
	RelImage       = "http://opds-spec.org/image"
	RelThumbnail   = "http://opds-spec.org/image/thumbnail"
)

// MIME types.
const (
	MimeTypeAtom        = "application/atom+xml"
	MimeTypeNavigation  = "application/atom+xml;profile=opds-catalog;kind=navigation"
	MimeTypeAcquisition = "application/atom+xml;profile=opds-catalog;kind=acquisition"
	MimeTypeJPEG        = "image/jpeg"
	MimeTypePNG         = "image/png"
)

// feedNamespace is the fixed namespace for deterministic feed and entry
// identifiers. Identifiers hash the resource URL so the same resource
// always gets the same id and clients can de-duplicate across fetches.
var feedNamespace = uuid.MustParse("1aa46e5c-7b2a-4bfa-9f9d-6f51a2f0f8a3")

// Identifier returns the stable urn:uuid identifier for a resource URL.
func Identifier(resourceURL string) string {
	return "urn:uuid:" + uuid.NewSHA1(feedNamespace, []byte(resourceURL)).String()
}

// Feed represents an OPDS Atom feed.
type Feed struct {
	XMLName   xml.Name `xml:"feed"`
	Xmlns     string   `xml:"xmlns,attr"`
	XmlnsDC   string   `xml:"xmlns:dc,attr,omitempty"`
	XmlnsOPDS string   `xml:"xmlns:opds,attr,omitempty"`
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Updated   string   `xml:"updated"`
	Author    *Author  `xml:"author,omitempty"`
	// Pagination extensions, set on paginated feeds only.
	TotalResults *int    `xml:"opds:totalResults,omitempty"`
	StartIndex   *int    `xml:"opds:startIndex,omitempty"`
	ItemsPerPage *int    `xml:"opds:itemsPerPage,omitempty"`
	Links        []Link  `xml:"link"`
	Entries      []Entry `xml:"entry"`
}

// NewFeed creates a new OPDS feed with default namespaces. The id is
// derived from the feed's canonical URL.
func NewFeed(feedURL, title string) *Feed {
	return &Feed{
		Xmlns:     AtomNS,
		XmlnsDC:   DCNS,
		XmlnsOPDS: OPDSNS,
		ID:        Identifier(feedURL),
		Title:     title,
		Updated:   time.Now().UTC().Format(time.RFC3339),
		Links:     []Link{},
		Entries:   []Entry{},
	}
}

// AddLink adds a link to the feed.
func (f *Feed) AddLink(rel, href, linkType string) {
	f.Links = append(f.Links, Link{
		Rel:  rel,
		Href: href,
		Type: linkType,
	})
}

// AddEntry adds an entry to the feed.
func (f *Feed) AddEntry(entry Entry) {
	f.Entries = append(f.Entries, entry)
}

// SetPagination records the result-window extensions on the feed.
func (f *Feed) SetPagination(total, offset, limit int) {
	f.TotalResults = &total
	f.StartIndex = &offset
	f.ItemsPerPage = &limit
}

// AddPaginationLinks adds previous/next/first/last links for the current
// window, typed for the feed kind. Boundary links are omitted: no
// previous/first on the first page and no next/last past the end.
func (f *Feed) AddPaginationLinks(pageURL, linkType string, limit, offset, total int) {
	f.AddPaginationLinksWithQuery(pageURL, "", linkType, limit, offset, total)
}

// AddPaginationLinksWithQuery is AddPaginationLinks with an extra query
// string carried through each page link.
func (f *Feed) AddPaginationLinksWithQuery(pageURL, query, linkType string, limit, offset, total int) {
	prefix := "?"
	if query != "" {
		prefix = "?" + query + "&"
	}

	if offset > 0 {
		prevOffset := offset - limit
		if prevOffset < 0 {
			prevOffset = 0
		}
		f.AddLink(RelPrevious, fmt.Sprintf("%s%slimit=%d&offset=%d", pageURL, prefix, limit, prevOffset), linkType)
		f.AddLink(RelFirst, fmt.Sprintf("%s%slimit=%d&offset=0", pageURL, prefix, limit), linkType)
	}
	if offset+limit < total {
		f.AddLink(RelNext, fmt.Sprintf("%s%slimit=%d&offset=%d", pageURL, prefix, limit, offset+limit), linkType)
		lastOffset := ((total - 1) / limit) * limit
		f.AddLink(RelLast, fmt.Sprintf("%s%slimit=%d&offset=%d", pageURL, prefix, limit, lastOffset), linkType)
	}
}

// PageTitle renders "title - Page X/Y". A zero-result feed is still page
// one of one.
func PageTitle(title string, limit, offset, total int) string {
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	page := offset/limit + 1
	return fmt.Sprintf("%s - Page %d/%d", title, page, pages)
}

// Entry represents an OPDS entry (book or navigation item).
type Entry struct {
	ID      string   `xml:"id"`
	Title   string   `xml:"title"`
	Updated string   `xml:"updated"`
	Authors []Author `xml:"author,omitempty"`
	Summary string   `xml:"summary,omitempty"`
	Content *Content `xml:"content,omitempty"`
	Links   []Link   `xml:"link"`
	// Dublin Core elements
	Identifier string `xml:"dc:identifier,omitempty"`
	Issued     string `xml:"dc:issued,omitempty"`
}

// NewEntry creates a new OPDS entry with a URL-derived identifier.
func NewEntry(entryURL, title string) Entry {
	return Entry{
		ID:      Identifier(entryURL),
		Title:   title,
		Updated: time.Now().UTC().Format(time.RFC3339),
		Links:   []Link{},
	}
}

// AddLink adds a link to the entry.
func (e *Entry) AddLink(rel, href, linkType string) {
	e.Links = append(e.Links, Link{
		Rel:  rel,
		Href: href,
		Type: linkType,
	})
}

// AddAcquisitionLink adds a download link for a file. The rel
// distinguishes the primary open-access link from secondary formats.
func (e *Entry) AddAcquisitionLink(rel, href, mimeType, title string, length int64) {
	e.Links = append(e.Links, Link{
		Rel:    rel,
		Href:   href,
		Type:   mimeType,
		Title:  title,
		Length: length,
	})
}

// AddImageLink adds a cover image link.
func (e *Entry) AddImageLink(href, mimeType string) {
	e.Links = append(e.Links, Link{
		Rel:  RelImage,
		Href: href,
		Type: mimeType,
	})
}

// AddThumbnailLink adds a thumbnail image link.
func (e *Entry) AddThumbnailLink(href, mimeType string) {
	e.Links = append(e.Links, Link{
		Rel:  RelThumbnail,
		Href: href,
		Type: mimeType,
	})
}

// Author represents an Atom author element.
type Author struct {
	Name string `xml:"name"`
	URI  string `xml:"uri,omitempty"`
}

// Link represents an Atom link element.
type Link struct {
	Rel    string `xml:"rel,attr,omitempty"`
	Href   string `xml:"href,attr"`
	Type   string `xml:"type,attr,omitempty"`
	Title  string `xml:"title,attr,omitempty"`
	Length int64  `xml:"length,attr,omitempty"`
}

// Content represents entry content with type attribute.
type Content struct {
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
}
