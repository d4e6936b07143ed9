package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/thejerf/suture/v4"

	"photogram/internal/app"
	"photogram/internal/logging"
)

func main() {
	cfg, err := app.LoadConfig()
	app.Must(err)
	logging.Init(cfg.Logging)

	a, err := app.New(cfg)
	app.Must(err)
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := suture.New("photogram", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn().Fields(e.Map()).Msg(e.String())
		},
		Timeout: cfg.Server.ShutdownTimeout + cfg.Server.ShutdownTimeout/2,
	})
	sup.Add(app.NewHTTPService(a.HTTPServer(), cfg.Server.ShutdownTimeout))

	log.Info().Str("addr", cfg.Server.Addr).Str("base_path", cfg.Server.BasePath).Msg("listening")
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("supervisor stopped")
	}
	log.Info().Msg("bye")
}
