package opds

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linksByRel(links []Link, rel string) []Link {
	var matched []Link
	for _, link := range links {
		if link.Rel == rel {
			matched = append(matched, link)
		}
	}
	return matched
}

func TestIdentifierDeterministic(t *testing.T) {
	first := Identifier("http://example.com/catalog/books")
	second := Identifier("http://example.com/catalog/books")
	other := Identifier("http://example.com/catalog/authors")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.True(t, strings.HasPrefix(first, "urn:uuid:"))
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Latest Books - Page 1/3", PageTitle("Latest Books", 20, 0, 45))
	assert.Equal(t, "Latest Books - Page 2/3", PageTitle("Latest Books", 20, 20, 45))
	assert.Equal(t, "Latest Books - Page 3/3", PageTitle("Latest Books", 20, 40, 45))
	// Zero results still render as page one of one
	assert.Equal(t, "Authors - Page 1/1", PageTitle("Authors", 50, 0, 0))
}

func TestAddPaginationLinksMiddlePage(t *testing.T) {
	feed := NewFeed("http://example.com/catalog/books", "Books")
	feed.AddPaginationLinks("http://example.com/catalog/books", MimeTypeAcquisition, 20, 20, 45)

	prev := linksByRel(feed.Links, RelPrevious)
	require.Len(t, prev, 1)
	assert.Equal(t, "http://example.com/catalog/books?limit=20&offset=0", prev[0].Href)

	next := linksByRel(feed.Links, RelNext)
	require.Len(t, next, 1)
	assert.Equal(t, "http://example.com/catalog/books?limit=20&offset=40", next[0].Href)

	last := linksByRel(feed.Links, RelLast)
	require.Len(t, last, 1)
	assert.Equal(t, "http://example.com/catalog/books?limit=20&offset=40", last[0].Href)

	first := linksByRel(feed.Links, RelFirst)
	require.Len(t, first, 1)
	assert.Equal(t, "http://example.com/catalog/books?limit=20&offset=0", first[0].Href)
}

func TestAddPaginationLinksLastPage(t *testing.T) {
	feed := NewFeed("http://example.com/catalog/books", "Books")
	feed.AddPaginationLinks("http://example.com/catalog/books", MimeTypeAcquisition, 20, 40, 45)

	assert.Len(t, linksByRel(feed.Links, RelPrevious), 1)
	assert.Len(t, linksByRel(feed.Links, RelFirst), 1)
	assert.Empty(t, linksByRel(feed.Links, RelNext))
	assert.Empty(t, linksByRel(feed.Links, RelLast))
}

func TestAddPaginationLinksFirstPage(t *testing.T) {
	feed := NewFeed("http://example.com/catalog/books", "Books")
	feed.AddPaginationLinks("http://example.com/catalog/books", MimeTypeAcquisition, 20, 0, 45)

	assert.Empty(t, linksByRel(feed.Links, RelPrevious))
	assert.Empty(t, linksByRel(feed.Links, RelFirst))
	assert.Len(t, linksByRel(feed.Links, RelNext), 1)
	assert.Len(t, linksByRel(feed.Links, RelLast), 1)
}

func TestAddPaginationLinksSinglePage(t *testing.T) {
	feed := NewFeed("http://example.com/catalog/books", "Books")
	feed.AddPaginationLinks("http://example.com/catalog/books", MimeTypeAcquisition, 20, 0, 5)

	assert.Empty(t, linksByRel(feed.Links, RelPrevious))
	assert.Empty(t, linksByRel(feed.Links, RelNext))
}

func TestAddPaginationLinksCarryQuery(t *testing.T) {
	feed := NewFeed("http://example.com/catalog/books", "Books")
	feed.AddPaginationLinksWithQuery("http://example.com/catalog/books", "author=Tolkien", MimeTypeAcquisition, 20, 0, 45)

	next := linksByRel(feed.Links, RelNext)
	require.Len(t, next, 1)
	assert.Equal(t, "http://example.com/catalog/books?author=Tolkien&limit=20&offset=20", next[0].Href)
}

func TestAddPaginationLinksNavigationType(t *testing.T) {
	feed := NewFeed("http://example.com/catalog/authors", "Authors")
	feed.AddPaginationLinks("http://example.com/catalog/authors", MimeTypeNavigation, 50, 50, 120)

	prev := linksByRel(feed.Links, RelPrevious)
	require.Len(t, prev, 1)
	assert.Equal(t, MimeTypeNavigation, prev[0].Type)

	next := linksByRel(feed.Links, RelNext)
	require.Len(t, next, 1)
	assert.Equal(t, MimeTypeNavigation, next[0].Type)
}

func TestFeedMarshalsPaginationExtensions(t *testing.T) {
	feed := NewFeed("http://example.com/catalog/books", "Books")
	feed.SetPagination(45, 0, 20)

	out, err := xml.Marshal(feed)
	require.NoError(t, err)

	assert.Contains(t, string(out), "<opds:totalResults>45</opds:totalResults>")
	assert.Contains(t, string(out), "<opds:startIndex>0</opds:startIndex>")
	assert.Contains(t, string(out), "<opds:itemsPerPage>20</opds:itemsPerPage>")
}

func TestFeedOmitsPaginationExtensionsWhenUnset(t *testing.T) {
	feed := NewFeed("http://example.com/catalog", "Root")

	out, err := xml.Marshal(feed)
	require.NoError(t, err)

	assert.NotContains(t, string(out), "totalResults")
}
