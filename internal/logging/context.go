package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

func NewRequestID() string { return uuid.New().String() }

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Ctx devuelve el logger global con request_id si el contexto lo trae.
//
//	logging.Ctx(ctx).Info().Str("post_id", id).Msg("post created")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if ctx != nil {
		if id := RequestID(ctx); id != "" {
			l = l.With().Str("request_id", id).Logger()
		}
	}
	return &l
}
