package opds

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/foliolib/folio/pkg/catalog"
	"github.com/foliolib/folio/pkg/files"
	"github.com/foliolib/folio/pkg/htmlutil"
	"github.com/foliolib/folio/pkg/models"
)

const feedAuthorName = "Folio"

// Service handles OPDS feed generation.
type Service struct {
	catalogService *catalog.Service
}

// NewService creates a new OPDS service.
func NewService() *Service {
	return &Service{
		catalogService: catalog.NewService(),
	}
}

// BuildRootFeed builds the root navigation feed. It is static: the four
// top-level sections exist whether or not the catalog has books.
func (svc *Service) BuildRootFeed(baseURL string) *Feed {
	rootURL := baseURL + "/catalog"

	feed := NewFeed(rootURL, "Calibre Library")
	feed.Author = &Author{Name: feedAuthorName}

	feed.AddLink(RelSelf, rootURL, MimeTypeNavigation)
	feed.AddLink(RelStart, rootURL, MimeTypeNavigation)

	sections := []struct {
		path    string
		title   string
		summary string
		mime    string
	}{
		{"/catalog/books", "Latest Books", "Browse books by most recent update", MimeTypeAcquisition},
		{"/catalog/authors", "By Author", "Browse books by author", MimeTypeNavigation},
		{"/catalog/series", "By Series", "Browse books by series", MimeTypeNavigation},
		{"/catalog/tags", "By Tag", "Browse books by tag", MimeTypeNavigation},
	}
	for _, section := range sections {
		entry := NewEntry(baseURL+section.path, section.title)
		entry.Content = &Content{Type: "text", Value: section.summary}
		entry.AddLink(RelSubsection, baseURL+section.path, section.mime)
		feed.AddEntry(entry)
	}

	return feed
}

// booksFeedTitle picks the title for a book listing from the active
// filter. Filters compose in the query but the title names only the most
// specific one.
func booksFeedTitle(opts catalog.ListBooksOptions) string {
	switch {
	case opts.Search != nil && *opts.Search != "":
		return fmt.Sprintf("Search: %q", *opts.Search)
	case opts.Author != nil && *opts.Author != "":
		return "Author: " + *opts.Author
	case opts.Series != nil && *opts.Series != "":
		return "Series: " + *opts.Series
	case opts.Tag != nil && *opts.Tag != "":
		return "Tag: " + *opts.Tag
	default:
		return "Latest Books"
	}
}

// booksFeedQuery rebuilds the filter query string so pagination links
// keep the active filters.
func booksFeedQuery(opts catalog.ListBooksOptions) string {
	values := url.Values{}
	if opts.Search != nil && *opts.Search != "" {
		values.Set("search", *opts.Search)
	}
	if opts.Author != nil && *opts.Author != "" {
		values.Set("author", *opts.Author)
	}
	if opts.Series != nil && *opts.Series != "" {
		values.Set("series", *opts.Series)
	}
	if opts.Tag != nil && *opts.Tag != "" {
		values.Set("tag", *opts.Tag)
	}
	return values.Encode()
}

// BuildBooksFeed builds the paginated acquisition feed of books matching
// the given filters.
func (svc *Service) BuildBooksFeed(ctx context.Context, idb bun.IDB, baseURL string, opts catalog.ListBooksOptions) (*Feed, error) {
	limit := catalog.ClampLimit(opts.Limit, catalog.DefaultBookLimit)
	offset := catalog.ClampOffset(opts.Offset)

	booksResult, err := svc.catalogService.ListBooks(ctx, idb, opts)
	if err != nil {
		return nil, err
	}
	total, err := svc.catalogService.CountBooks(ctx, idb, opts)
	if err != nil {
		return nil, err
	}

	booksURL := baseURL + "/catalog/books"
	query := booksFeedQuery(opts)

	selfURL := fmt.Sprintf("%s?limit=%d&offset=%d", booksURL, limit, offset)
	if query != "" {
		selfURL = fmt.Sprintf("%s?%s&limit=%d&offset=%d", booksURL, query, limit, offset)
	}

	feed := NewFeed(selfURL, PageTitle(booksFeedTitle(opts), limit, offset, total))
	feed.Author = &Author{Name: feedAuthorName}
	feed.SetPagination(total, offset, limit)

	feed.AddLink(RelSelf, selfURL, MimeTypeAcquisition)
	feed.AddLink(RelStart, baseURL+"/catalog", MimeTypeNavigation)
	feed.AddLink(RelUp, baseURL+"/catalog", MimeTypeNavigation)
	feed.AddPaginationLinksWithQuery(booksURL, query, MimeTypeAcquisition, limit, offset, total)

	for _, book := range booksResult {
		feed.AddEntry(svc.bookToEntry(baseURL, book))
	}

	return feed, nil
}

// BuildAuthorsFeed builds the navigation feed of authors with book counts.
func (svc *Service) BuildAuthorsFeed(ctx context.Context, idb bun.IDB, baseURL string, limitParam, offsetParam *int) (*Feed, error) {
	limit := catalog.ClampLimit(limitParam, catalog.DefaultFacetLimit)
	offset := catalog.ClampOffset(offsetParam)

	facets, err := svc.catalogService.ListAuthorFacets(ctx, idb, limitParam, offsetParam)
	if err != nil {
		return nil, err
	}
	total, err := svc.catalogService.CountAuthorFacets(ctx, idb)
	if err != nil {
		return nil, err
	}

	authorsURL := baseURL + "/catalog/authors"
	selfURL := fmt.Sprintf("%s?limit=%d&offset=%d", authorsURL, limit, offset)

	feed := NewFeed(selfURL, PageTitle("Authors", limit, offset, total))
	feed.Author = &Author{Name: feedAuthorName}
	feed.SetPagination(total, offset, limit)

	feed.AddLink(RelSelf, selfURL, MimeTypeNavigation)
	feed.AddLink(RelStart, baseURL+"/catalog", MimeTypeNavigation)
	feed.AddLink(RelUp, baseURL+"/catalog", MimeTypeNavigation)
	feed.AddPaginationLinks(authorsURL, MimeTypeNavigation, limit, offset, total)

	for _, facet := range facets {
		target := baseURL + "/catalog/books?author=" + url.QueryEscape(facet.Name)
		entry := NewEntry(target, facet.Name)
		entry.Content = &Content{Type: "text", Value: bookCountLabel(facet.BookCount)}
		entry.AddLink(RelSubsection, target, MimeTypeAcquisition)
		feed.AddEntry(entry)
	}

	return feed, nil
}

// BuildSeriesFeed builds the navigation feed of series with book counts.
func (svc *Service) BuildSeriesFeed(ctx context.Context, idb bun.IDB, baseURL string, limitParam, offsetParam *int) (*Feed, error) {
	limit := catalog.ClampLimit(limitParam, catalog.DefaultFacetLimit)
	offset := catalog.ClampOffset(offsetParam)

	facets, err := svc.catalogService.ListSeriesFacets(ctx, idb, limitParam, offsetParam)
	if err != nil {
		return nil, err
	}
	total, err := svc.catalogService.CountSeriesFacets(ctx, idb)
	if err != nil {
		return nil, err
	}

	seriesURL := baseURL + "/catalog/series"
	selfURL := fmt.Sprintf("%s?limit=%d&offset=%d", seriesURL, limit, offset)

	feed := NewFeed(selfURL, PageTitle("Series", limit, offset, total))
	feed.Author = &Author{Name: feedAuthorName}
	feed.SetPagination(total, offset, limit)

	feed.AddLink(RelSelf, selfURL, MimeTypeNavigation)
	feed.AddLink(RelStart, baseURL+"/catalog", MimeTypeNavigation)
	feed.AddLink(RelUp, baseURL+"/catalog", MimeTypeNavigation)
	feed.AddPaginationLinks(seriesURL, MimeTypeNavigation, limit, offset, total)

	for _, facet := range facets {
		target := baseURL + "/catalog/books?series=" + url.QueryEscape(facet.Name)
		entry := NewEntry(target, facet.Name)
		entry.Content = &Content{Type: "text", Value: bookCountLabel(facet.BookCount)}
		entry.AddLink(RelSubsection, target, MimeTypeAcquisition)
		feed.AddEntry(entry)
	}

	return feed, nil
}

// BuildTagsFeed builds the navigation feed of tags with book counts.
func (svc *Service) BuildTagsFeed(ctx context.Context, idb bun.IDB, baseURL string, limitParam, offsetParam *int) (*Feed, error) {
	limit := catalog.ClampLimit(limitParam, catalog.DefaultFacetLimit)
	offset := catalog.ClampOffset(offsetParam)

	facets, err := svc.catalogService.ListTagFacets(ctx, idb, limitParam, offsetParam)
	if err != nil {
		return nil, err
	}
	total, err := svc.catalogService.CountTagFacets(ctx, idb)
	if err != nil {
		return nil, err
	}

	tagsURL := baseURL + "/catalog/tags"
	selfURL := fmt.Sprintf("%s?limit=%d&offset=%d", tagsURL, limit, offset)

	feed := NewFeed(selfURL, PageTitle("Tags", limit, offset, total))
	feed.Author = &Author{Name: feedAuthorName}
	feed.SetPagination(total, offset, limit)

	feed.AddLink(RelSelf, selfURL, MimeTypeNavigation)
	feed.AddLink(RelStart, baseURL+"/catalog", MimeTypeNavigation)
	feed.AddLink(RelUp, baseURL+"/catalog", MimeTypeNavigation)
	feed.AddPaginationLinks(tagsURL, MimeTypeNavigation, limit, offset, total)

	for _, facet := range facets {
		target := baseURL + "/catalog/books?tag=" + url.QueryEscape(facet.Name)
		entry := NewEntry(target, facet.Name)
		entry.Content = &Content{Type: "text", Value: bookCountLabel(facet.BookCount)}
		entry.AddLink(RelSubsection, target, MimeTypeAcquisition)
		feed.AddEntry(entry)
	}

	return feed, nil
}

// BuildBookDetailFeed builds a single-entry acquisition feed for one book,
// including its full description.
func (svc *Service) BuildBookDetailFeed(ctx context.Context, idb bun.IDB, baseURL string, bookID int) (*Feed, error) {
	book, err := svc.catalogService.RetrieveBook(ctx, idb, bookID)
	if err != nil {
		return nil, err
	}

	selfURL := fmt.Sprintf("%s/catalog/book/%d", baseURL, bookID)

	feed := NewFeed(selfURL, book.Title)
	feed.Author = &Author{Name: feedAuthorName}

	feed.AddLink(RelSelf, selfURL, MimeTypeAcquisition)
	feed.AddLink(RelStart, baseURL+"/catalog", MimeTypeNavigation)
	feed.AddLink(RelUp, baseURL+"/catalog/books", MimeTypeAcquisition)

	entry := svc.bookToEntry(baseURL, book)
	if book.Comments != "" {
		entry.Content = &Content{Type: "text", Value: htmlutil.StripTags(book.Comments)}
	}
	feed.AddEntry(entry)

	return feed, nil
}

func bookCountLabel(count int) string {
	if count == 1 {
		return "1 book"
	}
	return fmt.Sprintf("%d books", count)
}

// bookToEntry converts a catalog book to an OPDS entry. Calibre's stored
// UUID is the entry id when present; books without one get a stable id
// derived from their detail URL.
func (svc *Service) bookToEntry(baseURL string, book *models.Book) Entry {
	detailURL := fmt.Sprintf("%s/catalog/book/%d", baseURL, book.ID)

	entry := NewEntry(detailURL, book.Title)
	if book.UUID != "" {
		entry.ID = "urn:uuid:" + book.UUID
	}
	if book.LastModified != "" {
		entry.Updated = book.LastModified
	} else {
		entry.Updated = time.Now().UTC().Format(time.RFC3339)
	}

	for _, author := range book.Authors {
		entry.Authors = append(entry.Authors, Author{Name: author.Name})
	}
	if len(entry.Authors) == 0 && book.AuthorSort != "" {
		entry.Authors = append(entry.Authors, Author{Name: book.AuthorSort})
	}

	// Comments make the summary when the book carries them; the series
	// note stands in for list entries, which are loaded without comments.
	switch {
	case book.Comments != "":
		entry.Summary = htmlutil.StripTags(book.Comments)
	case book.Series != nil:
		if book.Series.Index != nil {
			entry.Summary = fmt.Sprintf("%s #%g", book.Series.Name, *book.Series.Index)
		} else {
			entry.Summary = book.Series.Name
		}
	}

	entry.Identifier = book.ISBN
	entry.Issued = book.PubDate

	entry.AddLink("alternate", detailURL, MimeTypeAcquisition)

	if book.HasCover {
		coverURL := fmt.Sprintf("%s/catalog/cover/%d", baseURL, book.ID)
		entry.AddImageLink(coverURL, MimeTypeJPEG)
		entry.AddThumbnailLink(coverURL, MimeTypeJPEG)
	}

	// Formats arrive sorted by code; the first is the primary
	// open-access link, the rest are secondary acquisitions.
	for i, format := range book.Formats {
		code := strings.ToUpper(format.Format)
		downloadURL := fmt.Sprintf("%s/download/%d/%s", baseURL, book.ID, strings.ToLower(code))
		rel := RelAcquisition
		if i == 0 {
			rel = RelOpenAccess
		}
		entry.AddAcquisitionLink(rel, downloadURL, files.MimeTypeForFormat(code), "Download "+code, format.Size)
	}

	return entry
}
