package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/solislegal/leadbot/internal/domain"
)

// Document is one downloadable template file.
type Document struct {
	Name string
	MIME string
	Size int64
}

// DocumentsService lists and resolves the document templates directory.
type DocumentsService struct {
	Dir string
}

// List enumerates the available templates with sniffed MIME types. Dotfiles
// and subdirectories are skipped.
func (s DocumentsService) List() ([]Document, error) {
	if s.Dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("documents: %w", err)
	}
	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		mt, err := mimetype.DetectFile(filepath.Join(s.Dir, e.Name()))
		if err != nil {
			continue
		}
		docs = append(docs, Document{Name: e.Name(), MIME: mt.String(), Size: info.Size()})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Resolve maps a requested name to an on-disk path and MIME type. The name
// must be a plain file name; anything that would escape the directory is
// rejected as not found.
func (s DocumentsService) Resolve(name string) (string, string, error) {
	if s.Dir == "" || name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", "", fmt.Errorf("%w: document %q", domain.ErrNotFound, name)
	}
	path := filepath.Join(s.Dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", "", fmt.Errorf("%w: document %q", domain.ErrNotFound, name)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", "", fmt.Errorf("document %q: %w", name, err)
	}
	return path, mt.String(), nil
}
