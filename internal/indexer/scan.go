package indexer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/docsearch/internal/extract"
	"github.com/dshills/docsearch/pkg/types"
)

// ScanOptions controls which files ScanDirectory returns
type ScanOptions struct {
	FileTypes     []string // Extensions to include (default: every extractable type)
	MaxFiles      int      // Stop after this many files, 0 means no limit
	IncludeHidden bool     // Descend into dot directories and include dot files
}

// ScanDirectory walks root in lexical order and returns one DocumentInput
// per matching file, without text. Unreadable entries are skipped.
func ScanDirectory(root string, opts *ScanOptions) ([]DocumentInput, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("folder does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	allowed, err := allowedTypes(opts.FileTypes)
	if err != nil {
		return nil, err
	}

	var docs []DocumentInput
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}

		hidden := path != root && strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if hidden && !opts.IncludeHidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden && !opts.IncludeHidden {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ext := types.NormalizeExtension(filepath.Ext(path))
		if _, ok := allowed[ext]; !ok {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}

		docs = append(docs, DocumentInput{
			Path:      path,
			Name:      d.Name(),
			Extension: ext,
			SizeBytes: fi.Size(),
		})
		if opts.MaxFiles > 0 && len(docs) >= opts.MaxFiles {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

func allowedTypes(fileTypes []string) (map[string]struct{}, error) {
	if len(fileTypes) == 0 {
		fileTypes = extract.SupportedExtensions
	}

	allowed := make(map[string]struct{}, len(fileTypes))
	for _, ft := range fileTypes {
		ext := types.NormalizeExtension(ft)
		if !extract.Supported(ext) {
			return nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedType, ft)
		}
		allowed[ext] = struct{}{}
	}
	return allowed, nil
}
