// Package files maps logical (book, format) references onto actual files
// in the content store. Calibre's recorded filenames regularly diverge
// from what is on disk: extensions go missing, encodings mangle names,
// files get renamed by hand. Resolution therefore probes an ordered list
// of candidates instead of trusting the record.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/foliolib/folio/pkg/errcodes"
)

// Resolver finds book files under the content-store root.
type Resolver struct {
	Root string
}

func NewResolver(root string) *Resolver {
	return &Resolver{Root: root}
}

// Resolve returns the first existing file for a book's format. Candidate
// order is fixed: the recorded filename verbatim, the recorded filename
// with the expected extension appended, an explicit base filename with
// the extension, then a scan of the book directory for files matching the
// extension or the base filename prefix. The order makes resolution
// deterministic for a given directory state.
func (r *Resolver) Resolve(bookID int, bookPath, recordedName, formatCode, baseName string) (string, error) {
	ext := ExtensionForFormat(formatCode)
	dir := filepath.Join(r.Root, filepath.FromSlash(strings.ReplaceAll(bookPath, "\\", "/")))

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", errcodes.NotFoundReason(fmt.Sprintf("Book directory not found for book %d", bookID))
	}

	var candidates []string

	if recordedName != "" {
		candidates = append(candidates, filepath.Join(dir, recordedName))
		if !strings.HasSuffix(strings.ToLower(recordedName), ext) {
			candidates = append(candidates, filepath.Join(dir, recordedName+ext))
		}
	}

	if baseName != "" {
		candidates = append(candidates, filepath.Join(dir, baseName+ext))
	}

	candidates = append(candidates, scanDir(dir, ext, baseName)...)

	for _, candidate := range candidates {
		candidate = filepath.Clean(candidate)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", errcodes.NotFoundReason(fmt.Sprintf("File not found for book %d in format %s", bookID, strings.ToUpper(formatCode)))
}

// scanDir lists fallback candidates: files whose extension matches, or
// whose name starts with the base filename, case-insensitively. The
// listing is sorted so duplicate matches resolve the same way every time.
func scanDir(dir, ext, baseName string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	lowerBase := strings.ToLower(baseName)
	var candidates []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ext) {
			candidates = append(candidates, filepath.Join(dir, name))
			continue
		}
		if lowerBase != "" && strings.HasPrefix(lower, lowerBase) {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	return candidates
}

// ResolveCover finds a book's cover image, trying cover.jpg then
// cover.png. It returns the path and the image MIME type.
func (r *Resolver) ResolveCover(bookID int, bookPath string) (string, string, error) {
	dir := filepath.Join(r.Root, filepath.FromSlash(strings.ReplaceAll(bookPath, "\\", "/")))

	for _, name := range []string{"cover.jpg", "cover.png"} {
		path := filepath.Clean(filepath.Join(dir, name))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			mime := "image/jpeg"
			if strings.HasSuffix(name, ".png") {
				mime = "image/png"
			}
			return path, mime, nil
		}
	}

	return "", "", errcodes.NotFoundReason(fmt.Sprintf("Cover not found for book %d", bookID))
}
