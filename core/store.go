package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// TimeWindow restricts an event listing to timestamps within the optional
// start/end boundaries (both inclusive).
type TimeWindow struct {
	Start *time.Time
	End   *time.Time
}

func (w TimeWindow) Empty() bool {
	return w.Start == nil && w.End == nil
}

type Repository interface {
	SaveProperty(ctx context.Context, property *Property) (*Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
	GetPropertyById(ctx context.Context, id uint) (*Property, error)
	UpdateProperty(ctx context.Context, id uint, number string, notes string) (*Property, error)
	DeleteProperty(ctx context.Context, id uint) error
	SaveEvent(ctx context.Context, event *Event) (*Event, error)
	ListEventsByProperty(ctx context.Context, propertyId uint, window TimeWindow) ([]Event, error)
	GetEventById(ctx context.Context, propertyId uint, eventId uint) (*Event, error)
	DeleteEvent(ctx context.Context, propertyId uint, eventId uint) error
}

type repository struct {
	tracer  trace.Tracer
	metrics *DBMetrics
	db      *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{
		tracer:  otel.GetTracerProvider().Tracer("property-event-api/core"),
		metrics: NewDBMetrics(),
		db:      db,
	}
}

func (r *repository) SaveProperty(ctx context.Context, property *Property) (*Property, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "save_property", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.SaveProperty")
	defer span.End()

	err = r.db.WithContext(ctx).Create(property).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save property: %w", err)
	}

	return property, nil
}

func (r *repository) ListProperties(ctx context.Context) ([]Property, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "list_properties", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.ListProperties")
	defer span.End()

	properties := make([]Property, 0)

	err = r.db.WithContext(ctx).Order("id").Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	return properties, nil
}

func (r *repository) GetPropertyById(ctx context.Context, id uint) (*Property, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "get_property_by_id", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.GetPropertyById")
	defer span.End()

	var property Property

	err = r.db.WithContext(ctx).First(&property, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}

		return nil, fmt.Errorf("failed to get property by id: %w", err)
	}

	return &property, nil
}

func (r *repository) UpdateProperty(ctx context.Context, id uint, number string, notes string) (*Property, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "update_property", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.UpdateProperty")
	defer span.End()

	var property Property

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txErr := tx.First(&property, id).Error
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return ErrPropertyNotFound
			}

			return txErr
		}

		property.Number = number
		property.Notes = notes

		return tx.Save(&property).Error
	})
	if err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to update property: %w", err)
	}

	return &property, nil
}

// DeleteProperty removes the property and every event it owns as one
// transaction.
func (r *repository) DeleteProperty(ctx context.Context, id uint) error {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "delete_property", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.DeleteProperty")
	defer span.End()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property Property

		txErr := tx.First(&property, id).Error
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return ErrPropertyNotFound
			}

			return txErr
		}

		txErr = tx.Where("property_id = ?", id).Delete(&Event{}).Error
		if txErr != nil {
			return txErr
		}

		return tx.Delete(&property).Error
	})
	if err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			return err
		}

		return fmt.Errorf("failed to delete property: %w", err)
	}

	return nil
}

// SaveEvent verifies the owning property inside the same transaction as the
// insert, so an event can never be created against a property that is gone.
func (r *repository) SaveEvent(ctx context.Context, event *Event) (*Event, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "save_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.SaveEvent")
	defer span.End()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property Property

		txErr := tx.First(&property, event.PropertyId).Error
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return ErrPropertyNotFound
			}

			return txErr
		}

		return tx.Create(event).Error
	})
	if err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to save event: %w", err)
	}

	return event, nil
}

func (r *repository) ListEventsByProperty(ctx context.Context, propertyId uint, window TimeWindow) ([]Event, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "list_events_by_property", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.ListEventsByProperty")
	defer span.End()

	query := r.db.WithContext(ctx).Where("property_id = ?", propertyId)

	if window.Start != nil {
		query = query.Where("timestamp >= ?", *window.Start)
	}

	if window.End != nil {
		query = query.Where("timestamp <= ?", *window.End)
	}

	events := make([]Event, 0)

	err = query.Order("id").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

func (r *repository) GetEventById(ctx context.Context, propertyId uint, eventId uint) (*Event, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "get_event_by_id", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.GetEventById")
	defer span.End()

	var event Event

	err = r.db.WithContext(ctx).
		Where("property_id = ? AND id = ?", propertyId, eventId).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}

		return nil, fmt.Errorf("failed to get event by id: %w", err)
	}

	return &event, nil
}

func (r *repository) DeleteEvent(ctx context.Context, propertyId uint, eventId uint) error {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "delete_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.DeleteEvent")
	defer span.End()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event Event

		txErr := tx.Where("property_id = ? AND id = ?", propertyId, eventId).
			First(&event).Error
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}

			return txErr
		}

		return tx.Delete(&event).Error
	})
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return err
		}

		return fmt.Errorf("failed to delete event: %w", err)
	}

	return nil
}

/*

 */

type DBMetrics struct {
	qTotal   metric.Int64Counter
	qErrors  metric.Int64Counter
	qLatency metric.Float64Histogram
}

func NewDBMetrics() *DBMetrics {
	meter := otel.Meter("property-event-api/db")

	qTotal, _ := meter.Int64Counter("db.query.total")
	qErrors, _ := meter.Int64Counter("db.query.errors.total")
	qLatency, _ := meter.Float64Histogram("db.query.duration.ms")

	return &DBMetrics{qTotal: qTotal, qErrors: qErrors, qLatency: qLatency}
}

func (m *DBMetrics) Observe(ctx context.Context, op string, start time.Time, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", op), // ej: "save_property", "list_events_by_property"
	}

	m.qTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	ms := float64(time.Since(start).Milliseconds())
	m.qLatency.Record(ctx, ms, metric.WithAttributes(attrs...))

	if err != nil {
		m.qErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
