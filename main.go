package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/qmdx00/lifecycle"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"property-event-api/core"
	"property-event-api/pkg/resources"
	"property-event-api/pkg/servers"
)

func main() {
	var err error

	name, version := "property-event-api", "1.0"

	// 1. Config (env vars, optional .env file)
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", "8100")
	viper.SetDefault("DEBUG_PORT", "6060")
	viper.SetDefault("DB_PATH", "data/property_logs.db")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	// 2. Logger base
	log.Logger = log.Logger.With().Str("service", name).Str("version", version).Logger()
	ctx := log.Logger.WithContext(context.Background())

	startupLogger := log.Ctx(ctx).With().Str("stage", "startup").Str("component", "main").Logger()
	shutdownLogger := log.Ctx(ctx).With().Str("stage", "shut down").Str("component", "main").Logger()

	startupLogger.Info().Msg("application starting up")
	defer shutdownLogger.Info().Msg("application stopped")

	// 3. Telemetry (traces), exported only when a collector is configured
	closables := make([]resources.Closable, 0)

	if viper.GetBool("TRACING_ENABLED") {
		stopTracerFn, tracerErr := resources.CreateTracer(ctx)
		if tracerErr != nil {
			shutdownLogger.Fatal().Err(tracerErr).Msg(fmt.Sprintf("unable to setup otel tracing: %v", tracerErr))
		}

		closables = append(closables, resources.CloseFn(func() {
			stopCtx, cancelFn := context.WithTimeout(ctx, 15*time.Second)
			defer cancelFn()

			_ = stopTracerFn(stopCtx)
		}))
	}

	// 4. Recursos “core” (dependencies de negocio)
	db, closeDB, err := resources.OpenDatabase(ctx)
	if err != nil {
		shutdownLogger.Fatal().Err(err).Msg(fmt.Sprintf("unable to open database: %v", err))
	}

	closables = append(closables, closeDB)

	err = core.Migrate(db)
	if err != nil {
		shutdownLogger.Fatal().Err(err).Msg(fmt.Sprintf("unable to migrate schema: %v", err))
	}

	// 5. Wiring
	repo := core.NewRepository(db)
	handlers := core.NewHandlers(repo)

	// 6. Daemons/servers setup

	gin.SetMode(gin.ReleaseMode)

	restHandler := gin.New()
	restHandler.Use(gin.Recovery())
	restHandler.Use(resources.TracerMiddleware(name))
	restHandler.Use(resources.MeterMiddleware(name))

	restHandler.POST("/properties/", handlers.PostProperties)
	restHandler.GET("/properties/", handlers.GetProperties)
	restHandler.GET("/properties/:property_id", handlers.GetProperty)
	restHandler.PUT("/properties/:property_id", handlers.PutProperty)
	restHandler.DELETE("/properties/:property_id", handlers.DeleteProperty)
	restHandler.GET("/properties/:property_id/events", handlers.GetPropertyEvents)
	restHandler.POST("/properties/:property_id/events/", handlers.PostPropertyEvents)
	restHandler.GET("/properties/:property_id/events/:event_id", handlers.GetPropertyEvent)
	restHandler.DELETE("/properties/:property_id/events/:event_id", handlers.DeletePropertyEvent)

	debugHandler := http.NewServeMux()
	debugHandler.HandleFunc("/debug/pprof/", pprof.Index)
	debugHandler.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugHandler.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugHandler.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugHandler.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// 7. Daemons/servers lifecycle

	app := lifecycle.NewApp(
		lifecycle.WithName(name),
		lifecycle.WithVersion(version),
	)

	app.Attach(servers.BuildBaseServer(closables...))

	app.Attach(servers.BuildHttpServer("debug-server", &http.Server{
		Addr:              net.JoinHostPort("localhost", viper.GetString("DEBUG_PORT")),
		Handler:           debugHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}))

	app.Attach(servers.BuildHttpServer("rest-server", &http.Server{
		Addr:              net.JoinHostPort(viper.GetString("HOST"), viper.GetString("PORT")),
		Handler:           restHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}))

	startupLogger.Info().Msg("application running")

	err = app.Run()
	if err != nil {
		shutdownLogger.Error().Err(err).Msg("runtime error")
	}
}
