// Package jsonfile stores every link as one JSON array in a single file.
// Writes go to a temp file that is renamed over the original, so a failed
// write leaves the previous contents in place.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

var _ ports.LinkRepository = (*FileRepository)(nil)

// CorruptSuffix is appended to an undecodable file before it is replaced.
const CorruptSuffix = ".corrupt"

type FileRepository struct {
	mu   sync.Mutex
	path string
}

func NewFileRepository(path string) (*FileRepository, error) {
	if path == "" {
		return nil, errors.New("jsonfile: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileRepository{path: path}, nil
}

// load reads the whole blob. A missing or empty file is an empty store.
func (r *FileRepository) load() ([]domain.ShortLink, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.ShortLink{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.ShortLink{}, nil
	}

	var links []domain.ShortLink
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptData, r.path, err)
	}
	if links == nil {
		links = []domain.ShortLink{}
	}
	for i := range links {
		if links[i].Clicks == nil {
			links[i].Clicks = []domain.ClickRecord{}
		}
	}
	return links, nil
}

// loadForWrite is load, except that corrupt data is moved aside and replaced
// by an empty set.
func (r *FileRepository) loadForWrite() ([]domain.ShortLink, error) {
	links, err := r.load()
	if errors.Is(err, domain.ErrCorruptData) {
		if rerr := os.Rename(r.path, r.path+CorruptSuffix); rerr != nil {
			return nil, fmt.Errorf("%w: moving corrupt file aside: %w", domain.ErrPersistenceFailure, rerr)
		}
		return []domain.ShortLink{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	return links, nil
}

func (r *FileRepository) write(links []domain.ShortLink) error {
	data, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding links: %w", domain.ErrPersistenceFailure, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	return nil
}

func (r *FileRepository) GetAll(ctx context.Context) ([]domain.ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *FileRepository) SaveBatch(ctx context.Context, links []domain.ShortLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.loadForWrite()
	if err != nil {
		return err
	}

	taken := make(map[string]struct{}, len(existing)+len(links))
	for _, l := range existing {
		taken[l.ShortCode] = struct{}{}
	}
	for _, l := range links {
		if _, ok := taken[l.ShortCode]; ok {
			return fmt.Errorf("%w: %w: %s", domain.ErrPersistenceFailure, domain.ErrShortcodeInUse, l.ShortCode)
		}
		taken[l.ShortCode] = struct{}{}
	}

	for _, l := range links {
		existing = append(existing, l.Clone())
	}
	return r.write(existing)
}

func (r *FileRepository) FindByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	links, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range links {
		if links[i].ShortCode == code {
			return &links[i], nil
		}
	}
	return nil, nil
}

// update applies fn to the link with code and writes the file back.
func (r *FileRepository) update(code string, fn func(*domain.ShortLink)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	links, err := r.load()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	for i := range links {
		if links[i].ShortCode == code {
			fn(&links[i])
			return r.write(links)
		}
	}
	return domain.ErrNotFound
}

func (r *FileRepository) RecordClick(ctx context.Context, code string, click domain.ClickRecord) error {
	return r.update(code, func(l *domain.ShortLink) {
		l.Clicks = append(l.Clicks, click)
	})
}

func (r *FileRepository) Deactivate(ctx context.Context, code string) error {
	return r.update(code, func(l *domain.ShortLink) {
		l.IsActive = false
	})
}

func (r *FileRepository) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write([]domain.ShortLink{})
}

func (r *FileRepository) ListShortcodes(ctx context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	links, err := r.load()
	if err != nil {
		return nil, err
	}
	codes := make(map[string]struct{}, len(links))
	for _, l := range links {
		codes[l.ShortCode] = struct{}{}
	}
	return codes, nil
}

func (r *FileRepository) Close() error {
	return nil
}
