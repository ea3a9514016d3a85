// Package knowledge reads the school's knowledge folder into documents.
package knowledge

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xhad/kbot/internal/models"
)

type LoaderConfig struct {
	Dir        string
	Extensions []string
}

// Loader enumerates a directory and extracts text from every recognized file.
// Nothing is cached: each Load call re-reads the filesystem.
type Loader struct {
	config  LoaderConfig
	readers map[string]func(path string) (string, error)
}

func NewWithConfig(config LoaderConfig) *Loader {
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".txt", ".csv", ".pdf"}
	}

	l := &Loader{
		config:  config,
		readers: make(map[string]func(path string) (string, error)),
	}
	for _, ext := range config.Extensions {
		ext = strings.ToLower(ext)
		switch ext {
		case ".pdf":
			l.readers[ext] = readPDF
		default:
			l.readers[ext] = readText
		}
	}
	return l
}

func New(dir string) *Loader {
	return NewWithConfig(LoaderConfig{Dir: dir})
}

func (l *Loader) Dir() string {
	return l.config.Dir
}

// Load returns the documents of the knowledge directory in enumeration order.
// A missing directory is logged and yields no documents. Per-file read or
// decode failures are logged and leave that document's content empty.
func (l *Loader) Load(ctx context.Context) ([]models.Document, error) {
	if _, err := os.Stat(l.config.Dir); err != nil {
		if os.IsNotExist(err) {
			log.Printf("Knowledge path not found: %s", l.config.Dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat knowledge path: %w", err)
	}

	entries, err := os.ReadDir(l.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge path: %w", err)
	}

	var docs []models.Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		read, ok := l.readers[ext]
		if !ok {
			continue
		}

		path := filepath.Join(l.config.Dir, entry.Name())
		content, err := read(path)
		if err != nil {
			log.Printf("Error reading knowledge file %s: %v", entry.Name(), err)
			content = ""
		}

		docs = append(docs, models.Document{
			Filename:  entry.Name(),
			Extension: ext,
			Content:   content,
		})
	}

	return docs, nil
}

// Count returns how many recognized files the knowledge directory holds
// without reading them. A missing directory counts as zero.
func (l *Loader) Count(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(l.config.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read knowledge path: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if entry.IsDir() {
			continue
		}
		if _, ok := l.readers[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			count++
		}
	}
	return count, nil
}

// SupportedExtensions returns the file extensions this loader reads, sorted.
func (l *Loader) SupportedExtensions() []string {
	exts := make([]string, 0, len(l.readers))
	for ext := range l.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8")
	}
	return string(data), nil
}
