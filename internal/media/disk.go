package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type LocalConfig struct {
	Dir       string `koanf:"dir"`
	PublicURL string `koanf:"public_url"` // prefijo con el que el servidor expone Dir
}

// DiskStore guarda las imágenes en un directorio servido por el propio API.
type DiskStore struct {
	dir       string
	folder    string
	publicURL string
}

func NewDiskStore(cfg LocalConfig, folder string) (*DiskStore, error) {
	if cfg.Dir == "" {
		cfg.Dir = "uploads"
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "/uploads"
	}
	if err := os.MkdirAll(filepath.Join(cfg.Dir, filepath.FromSlash(folder)), 0o755); err != nil {
		return nil, fmt.Errorf("local media dir: %w", err)
	}
	return &DiskStore{dir: cfg.Dir, folder: folder, publicURL: strings.TrimRight(cfg.PublicURL, "/")}, nil
}

// Dir es el directorio raíz a servir.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Upload(ctx context.Context, f *File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := objectName(s.folder, uuid.NewString(), f)
	full := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	out, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(out, f.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return s.publicURL + "/" + name, nil
}

func (s *DiskStore) Delete(_ context.Context, url string) error {
	full, ok := s.pathFromURL(url)
	if !ok {
		return ErrNotOwned
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *DiskStore) Owns(url string) bool {
	_, ok := s.pathFromURL(url)
	return ok
}

// pathFromURL rechaza rutas que escapen de dir.
func (s *DiskStore) pathFromURL(url string) (string, bool) {
	rel, found := strings.CutPrefix(url, s.publicURL+"/")
	if !found || rel == "" {
		return "", false
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", false
	}
	return filepath.Join(s.dir, clean), true
}
