package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultMaxUploadBytes = 10 << 20

// FromRequest lee el campo field de un multipart ya parseado y comprueba
// que sea una imagen de como mucho max bytes. El llamante cierra el io.Closer.
func FromRequest(r *http.Request, field string, max int64) (*File, io.Closer, error) {
	if max <= 0 {
		max = DefaultMaxUploadBytes
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, ErrNoFile
		}
		return nil, nil, fmt.Errorf("read form file %s: %w", field, err)
	}
	if header.Size > max {
		_ = file.Close()
		return nil, nil, ErrTooLarge
	}

	// se detecta el tipo por contenido, no por la cabecera del cliente
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = file.Close()
		return nil, nil, fmt.Errorf("sniff %s: %w", field, err)
	}
	head = head[:n]
	ctype := http.DetectContentType(head)
	if !strings.HasPrefix(ctype, "image/") {
		_ = file.Close()
		return nil, nil, ErrNotImage
	}

	return &File{
		Body:        io.MultiReader(bytes.NewReader(head), file),
		Filename:    header.Filename,
		ContentType: ctype,
		Size:        header.Size,
	}, file, nil
}
