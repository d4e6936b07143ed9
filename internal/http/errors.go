package httpx

import (
	"errors"
	"net/http"

	"photogram/internal/apperr"
	"photogram/internal/logging"
	"photogram/internal/media"
	"photogram/internal/util"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:         http.StatusBadRequest,
	apperr.KindConflict:           http.StatusConflict,
	apperr.KindUnauthenticated:    http.StatusUnauthorized,
	apperr.KindInvalidCredentials: http.StatusUnauthorized,
	apperr.KindForbidden:          http.StatusForbidden,
	apperr.KindNotFound:           http.StatusNotFound,
	apperr.KindAccountDeactivated: http.StatusUnauthorized,
}

// classify decide status y mensaje público de un error.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, media.ErrNotImage):
		return http.StatusBadRequest, "Not an image! Please upload only images."
	case errors.Is(err, util.ErrBadJSON):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, media.ErrUnavailable):
		return http.StatusServiceUnavailable, "Image service unavailable"
	case isTimeout(err):
		return http.StatusGatewayTimeout, "Request timeout"
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if status, ok := kindStatus[ae.Kind]; ok {
			return status, ae.Message
		}
	}
	return http.StatusInternalServerError, "Server error"
}

// fail responde {message} con el status del error. Los 5xx se loguean con su causa.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	util.RenderMessage(w, r, status, msg)
}
