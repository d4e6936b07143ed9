package httpx

import (
	"errors"
	"net/http"
	"strings"

	"photogram/internal/apperr"
	"photogram/internal/media"
)

const (
	multipartMemory   = 1 << 20
	multipartOverhead = 1 << 20
)

// parseMultipart limita el cuerpo y parsea el formulario. Una request que no
// es multipart no es un error: simplemente no trae fichero ni campos de form.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	limit := s.uploads.MaxBytes
	if limit <= 0 {
		limit = media.DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
		return media.ErrTooLarge
	}
	return apperr.Validation("Invalid multipart form")
}

// formImage devuelve nil, sin error, si el campo no viene.
func (s *Server) formImage(r *http.Request, field string) (*media.File, func(), error) {
	img, closer, err := media.FromRequest(r, field, s.uploads.MaxBytes)
	if errors.Is(err, media.ErrNoFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	return img, func() { _ = closer.Close() }, nil
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// formValue distingue un campo ausente (nil) de uno vacío.
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	vs, ok := r.MultipartForm.Value[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}
