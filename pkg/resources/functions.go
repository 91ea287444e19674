package resources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Closable is a process-scoped resource with an explicit teardown hook.
type Closable interface {
	Close()
}

type CloseFn func()

func (fn CloseFn) Close() {
	fn()
}

func CreateTracer(ctx context.Context) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tp, err := newTracerProvider(ctx)
	if err != nil {
		return func(context.Context) error { return nil }, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newTracerProvider(ctx context.Context) (*sdktrace.TracerProvider, error) {
	// Si la app corre en Docker (misma red del compose), apunta al collector del compose
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create the OTLP exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
	), nil
}

// OpenDatabase opens (creating if absent) the SQLite database file named by
// DB_PATH, with foreign key enforcement enabled. The returned Closable owns
// the underlying connection pool.
func OpenDatabase(ctx context.Context) (*gorm.DB, Closable, error) {
	path := viper.GetString("DB_PATH")

	if dir := filepath.Dir(path); dir != "." {
		err := os.MkdirAll(dir, 0o755)
		if err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Unable to create database directory: %v", err))
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{})
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Unable to open database: %v", err))
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Unable to access database handle: %v", err))
		return nil, nil, fmt.Errorf("failed to access database handle: %w", err)
	}

	err = sqlDB.PingContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Unable to ping to database: %v", err))
		return nil, nil, fmt.Errorf("failed to ping to database: %w", err)
	}

	closeFn := CloseFn(func() {
		closeErr := sqlDB.Close()
		if closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close database")
		}
	})

	return db, closeFn, nil
}
