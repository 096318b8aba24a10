package files

import "strings"

// formatExtensions maps Calibre format codes to on-disk extensions.
var formatExtensions = map[string]string{
	"EPUB": ".epub",
	"PDF":  ".pdf",
	"MOBI": ".mobi",
	"AZW3": ".azw3",
	"FB2":  ".fb2",
	"RTF":  ".rtf",
	"TXT":  ".txt",
	"HTML": ".html",
	"LIT":  ".lit",
}

var formatMimeTypes = map[string]string{
	"EPUB": "application/epub+zip",
	"PDF":  "application/pdf",
	"MOBI": "application/x-mobipocket-ebook",
	"AZW3": "application/vnd.amazon.ebook",
	"FB2":  "application/x-fictionbook+xml",
	"RTF":  "application/rtf",
	"TXT":  "text/plain",
	"HTML": "text/html",
	"LIT":  "application/x-ms-reader",
}

// ExtensionForFormat returns the expected file extension for a format
// code. Unknown codes fall back to .epub; several reader devices infer
// the format from the filename, and that is the fallback they expect.
func ExtensionForFormat(code string) string {
	if ext, ok := formatExtensions[strings.ToUpper(code)]; ok {
		return ext
	}
	return ".epub"
}

// MimeTypeForFormat returns the MIME type for a format code.
func MimeTypeForFormat(code string) string {
	if mime, ok := formatMimeTypes[strings.ToUpper(code)]; ok {
		return mime
	}
	return "application/octet-stream"
}
