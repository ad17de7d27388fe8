package types

import "strings"

// DocumentRecord is the metadata kept for one indexed document.
type DocumentRecord struct {
	ID          int    `json:"id"` // Insertion index
	Path        string `json:"path"`
	Name        string `json:"name"`
	Extension   string `json:"extension"`
	SizeBytes   int64  `json:"size_bytes"`
	TextExcerpt string `json:"text_excerpt"`
}

// Validate checks that the record can be indexed
func (r *DocumentRecord) Validate() error {
	if strings.TrimSpace(r.Path) == "" {
		return ErrEmptyPath
	}
	if r.SizeBytes < 0 {
		return ErrNegativeSize
	}
	return nil
}

// NormalizedExtension returns the lowercase extension with a leading dot.
func (r *DocumentRecord) NormalizedExtension() string {
	return NormalizeExtension(r.Extension)
}

// NormalizeExtension lowercases ext and ensures it starts with a dot.
// An empty extension stays empty.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
