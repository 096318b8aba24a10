package files

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/foliolib/folio/pkg/encoding"
)

// illegalChars are the path characters stripped from download filenames.
// Stripping rather than escaping keeps CJK titles intact while ruling out
// traversal and header-injection shapes.
const illegalChars = `<>:"/\|?*`

// DownloadFilename synthesizes the HTTP-visible filename for a book
// download. Reader devices match the filename to infer the format, so
// the rules here are load-bearing: normalized title, illegal characters
// removed, spaces to underscores, extension appended exactly once, and a
// book_{id} fallback whenever the title collapses to nothing.
func DownloadFilename(title string, bookID int, formatCode string) string {
	ext := ExtensionForFormat(formatCode)
	fallback := fmt.Sprintf("book_%d%s", bookID, ext)

	name := strings.TrimSpace(encoding.Normalize(title))
	if name == "" {
		return fallback
	}

	for _, c := range illegalChars {
		name = strings.ReplaceAll(name, string(c), "")
	}
	name = strings.ReplaceAll(name, " ", "_")

	if !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	if strings.TrimSpace(base) == "" {
		return fallback
	}

	return name
}
