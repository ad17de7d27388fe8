package indexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsearch/internal/extract"
)

func scanFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "b.pdf", "%PDF-1.4")
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "c.DOCX", "zip")
	writeFile(t, root, "notes.md", "notes")
	writeFile(t, root, "image.png", "png")
	writeFile(t, root, ".env.txt", "secret")
	writeFile(t, root, ".git/config.txt", "git")
	writeFile(t, root, "nested/deep/e.txt", "echo")
	return root
}

func basenames(docs []DocumentInput) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out
}

func TestScanDirectory(t *testing.T) {
	root := scanFixture(t)

	docs, err := ScanDirectory(root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b.pdf", "c.DOCX", "e.txt", "notes.md"}, basenames(docs))
	for _, d := range docs {
		assert.Empty(t, d.Text)
		assert.Positive(t, d.SizeBytes)
		assert.True(t, extract.Supported(d.Extension), d.Extension)
	}
	assert.Equal(t, ".docx", docs[2].Extension)
	assert.Equal(t, filepath.Join(root, "nested", "deep", "e.txt"), docs[3].Path)
}

func TestScanDirectoryOptions(t *testing.T) {
	root := scanFixture(t)

	tests := []struct {
		name string
		opts *ScanOptions
		want []string
	}{
		{
			name: "file types",
			opts: &ScanOptions{FileTypes: []string{"TXT", ".md"}},
			want: []string{"a.txt", "e.txt", "notes.md"},
		},
		{
			name: "max files",
			opts: &ScanOptions{MaxFiles: 2},
			want: []string{"a.txt", "b.pdf"},
		},
		{
			name: "include hidden",
			opts: &ScanOptions{FileTypes: []string{".txt"}, IncludeHidden: true},
			want: []string{".env.txt", "config.txt", "a.txt", "e.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := ScanDirectory(root, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, basenames(docs))
		})
	}
}

func TestScanDirectoryErrors(t *testing.T) {
	root := scanFixture(t)

	_, err := ScanDirectory(root, &ScanOptions{FileTypes: []string{".exe"}})
	assert.ErrorIs(t, err, extract.ErrUnsupportedType)

	_, err = ScanDirectory(filepath.Join(root, "a.txt"), nil)
	assert.ErrorContains(t, err, "not a directory")

	_, err = ScanDirectory(filepath.Join(root, "missing"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
