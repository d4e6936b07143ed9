// Package media sube y borra imágenes en el servicio de alojamiento configurado.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"photogram/internal/metrics"
)

const (
	ProviderCloudinary = "cloudinary"
	ProviderS3         = "s3"
	ProviderLocal      = "local"
)

var (
	ErrNoFile        = errors.New("no file uploaded")
	ErrNotImage      = errors.New("only image files are allowed")
	ErrTooLarge      = errors.New("file too large")
	ErrNotOwned      = errors.New("url not hosted by this store")
	ErrUnavailable   = errors.New("media host unavailable")
	errEmptyResponse = errors.New("empty response from media host")
)

// File es una imagen ya validada, lista para subir.
type File struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// Store aloja imágenes y devuelve su URL pública.
type Store interface {
	Upload(ctx context.Context, f *File) (string, error)
	// Delete borra el objeto de una URL devuelta por Upload.
	Delete(ctx context.Context, url string) error
	// Owns indica si la URL pertenece a este store.
	Owns(url string) bool
}

type Config struct {
	Provider       string           `koanf:"provider"`
	Folder         string           `koanf:"folder"`
	MaxUploadBytes int64            `koanf:"max_upload_bytes"`
	Cloudinary     CloudinaryConfig `koanf:"cloudinary"`
	S3             S3Config         `koanf:"s3"`
	Local          LocalConfig      `koanf:"local"`
}

// New construye el store del proveedor configurado, instrumentado con métricas.
func New(cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Provider {
	case ProviderCloudinary:
		s, err = NewCloudinaryStore(cfg.Cloudinary, cfg.Folder, nil)
	case ProviderS3:
		s, err = NewS3Store(cfg.S3, cfg.Folder)
	case ProviderLocal, "":
		s, err = NewDiskStore(cfg.Local, cfg.Folder)
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(s, cfg.Provider), nil
}

type instrumented struct {
	Store
	provider string
}

// Instrument registra duración y resultado de cada operación.
func Instrument(s Store, provider string) Store {
	if provider == "" {
		provider = ProviderLocal
	}
	return &instrumented{Store: s, provider: provider}
}

func (i *instrumented) Upload(ctx context.Context, f *File) (string, error) {
	start := time.Now()
	url, err := i.Store.Upload(ctx, f)
	metrics.RecordMedia(i.provider, "upload", err, time.Since(start))
	return url, err
}

func (i *instrumented) Delete(ctx context.Context, url string) error {
	start := time.Now()
	err := i.Store.Delete(ctx, url)
	metrics.RecordMedia(i.provider, "delete", err, time.Since(start))
	return err
}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// objectName: carpeta/id con la extensión del tipo detectado o del nombre original.
func objectName(folder, id string, f *File) string {
	ext, ok := extByType[f.ContentType]
	if !ok {
		ext = strings.ToLower(path.Ext(f.Filename))
	}
	if folder == "" {
		return id + ext
	}
	return strings.Trim(folder, "/") + "/" + id + ext
}
