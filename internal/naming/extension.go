package naming

import (
	"fmt"
	"strings"
)

// contentTypeExt maps declared image content types to file extensions.
var contentTypeExt = map[string]string{
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/svg+xml": ".svg",
}

// urlExts is the fallback probe order when the content type is missing
// or unrecognized. Order matters: the first extension found anywhere in
// the URL wins.
var urlExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".svg"}

// Extension picks a file extension for a fetched image. The declared
// Content-Type wins (parameters such as charset are ignored); otherwise
// the URL is scanned for a known extension substring; otherwise ".jpg".
//
// This is a best-effort heuristic, not strict media-type parsing. A URL
// that merely mentions ".png" in a query parameter will match, and
// anything unrecognized is labeled ".jpg". That is acceptable here: the
// extension only affects the output name, never the payload.
func Extension(contentType, url string) string {
	if contentType != "" {
		main := contentType
		if i := strings.Index(main, ";"); i >= 0 {
			main = main[:i]
		}
		if ext, ok := contentTypeExt[strings.ToLower(strings.TrimSpace(main))]; ok {
			return ext
		}
	}

	lower := strings.ToLower(url)
	for _, ext := range urlExts {
		if strings.Contains(lower, ext) {
			if ext == ".jpeg" {
				return ".jpg"
			}
			return ext
		}
	}

	return ".jpg"
}

// Filename renders the destination object name for output index n.
func Filename(n uint64, ext string) string {
	return fmt.Sprintf("image_%d%s", n, ext)
}
