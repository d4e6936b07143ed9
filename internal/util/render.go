// Package util agrupa helpers de entrada/salida JSON para los handlers.
package util

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"photogram/internal/logging"
)

// MaxJSONBody limita el tamaño de los cuerpos JSON de entrada.
const MaxJSONBody = 1 << 20

var ErrBadJSON = errors.New("malformed JSON body")

type Message struct {
	Message string `json:"message"`
}

// Render escribe v como JSON con el status indicado.
func Render(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("write response")
	}
}

// RenderMessage escribe {"message": msg}.
func RenderMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	Render(w, r, status, Message{Message: msg})
}

// Decode lee un cuerpo JSON en dst. Un cuerpo vacío deja dst sin tocar.
func Decode(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, MaxJSONBody)
	defer body.Close()
	err := json.NewDecoder(body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
}
