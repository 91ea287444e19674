package core

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Handlers interface {
	PostProperties(gctx *gin.Context)
	GetProperties(gctx *gin.Context)
	GetProperty(gctx *gin.Context)
	PutProperty(gctx *gin.Context)
	DeleteProperty(gctx *gin.Context)
	GetPropertyEvents(gctx *gin.Context)
	PostPropertyEvents(gctx *gin.Context)
	GetPropertyEvent(gctx *gin.Context)
	DeletePropertyEvent(gctx *gin.Context)
}

type handlers struct {
	repository Repository
}

func NewHandlers(repository Repository) Handlers {
	return &handlers{repository: repository}
}

// PropertyRequest carries the mutable property fields for create and update.
type PropertyRequest struct {
	Number string `json:"number"`
	Notes  string `json:"notes"`
}

// EventRequest carries the event creation payload. Timestamp is optional and
// defaults to the moment of creation.
type EventRequest struct {
	Description string `json:"description"`
	Timestamp   string `json:"timestamp,omitempty"`
}

func pathId(gctx *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(gctx.Param(name), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' must be a positive integer", name)
	}

	return uint(value), nil
}

func (h *handlers) PostProperties(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var request PropertyRequest

	err := gctx.ShouldBindJSON(&request)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to bind JSON")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("failed to bind JSON", err))

		return
	}

	property := Property{Number: request.Number, Notes: request.Notes}

	err = ValidateProperty(property)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("property validation failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("property validation failed", err))

		return
	}

	savedProperty, err := h.repository.SaveProperty(ctx, &property)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("saving property failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("saving property failed", err))

		return
	}

	gctx.JSON(http.StatusCreated, savedProperty)
}

func (h *handlers) GetProperties(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	properties, err := h.repository.ListProperties(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("listing properties failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("listing properties failed", err))

		return
	}

	gctx.JSON(http.StatusOK, properties)
}

func (h *handlers) GetProperty(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	propertyId, err := pathId(gctx, "property_id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid property id")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid property id", err))

		return
	}

	property, err := h.repository.GetPropertyById(ctx, propertyId)
	if err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			log.Ctx(ctx).Info().Uint("property_id", propertyId).Msg("property not found")
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("property not found", err))

			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("getting property failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("getting property failed", err))

		return
	}

	gctx.JSON(http.StatusOK, property)
}

// PutProperty replaces number and notes wholesale.
func (h *handlers) PutProperty(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	propertyId, err := pathId(gctx, "property_id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid property id")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid property id", err))

		return
	}

	var request PropertyRequest

	err = gctx.ShouldBindJSON(&request)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to bind JSON")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("failed to bind JSON", err))

		return
	}

	err = ValidateProperty(Property{Number: request.Number, Notes: request.Notes})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("property validation failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("property validation failed", err))

		return
	}

	property, err := h.repository.UpdateProperty(ctx, propertyId, request.Number, request.Notes)
	if err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			log.Ctx(ctx).Info().Uint("property_id", propertyId).Msg("property not found")
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("property not found", err))

			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("updating property failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("updating property failed", err))

		return
	}

	gctx.JSON(http.StatusOK, property)
}

// DeleteProperty permanently deletes the property and all of its events.
// A visibility flag would be preferable to physical deletion; for now the
// delete is destructive and cascading.
func (h *handlers) DeleteProperty(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	propertyId, err := pathId(gctx, "property_id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid property id")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid property id", err))

		return
	}

	err = h.repository.DeleteProperty(ctx, propertyId)
	if err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			log.Ctx(ctx).Info().Uint("property_id", propertyId).Msg("property not found")
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("property not found", err))

			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("deleting property failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("deleting property failed", err))

		return
	}

	gctx.JSON(http.StatusOK, gin.H{"message": "property and associated events deleted"})
}

func (h *handlers) GetPropertyEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	propertyId, err := pathId(gctx, "property_id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid property id")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid property id", err))

		return
	}

	var window TimeWindow

	if startDate := gctx.Query("start_date"); startDate != "" {
		parsed, parseErr := ParseDateTime(startDate, StartOfDay)
		if parseErr != nil {
			log.Ctx(ctx).Error().Err(parseErr).Str("start_date", startDate).Msg("unable to parse start_date")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("unable to parse start_date", parseErr))

			return
		}

		window.Start = &parsed
	}

	if endDate := gctx.Query("end_date"); endDate != "" {
		parsed, parseErr := ParseDateTime(endDate, EndOfDay)
		if parseErr != nil {
			log.Ctx(ctx).Error().Err(parseErr).Str("end_date", endDate).Msg("unable to parse end_date")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("unable to parse end_date", parseErr))

			return
		}

		window.End = &parsed
	}

	events, err := h.repository.ListEventsByProperty(ctx, propertyId, window)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("listing events failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("listing events failed", err))

		return
	}

	if len(events) == 0 {
		notFound := ErrNoEvents
		if !window.Empty() {
			notFound = ErrNoEventsInRange
		}

		log.Ctx(ctx).Info().Uint("property_id", propertyId).Msg(notFound.Error())
		gctx.AbortWithStatusJSON(http.StatusNotFound, NewError(notFound.Error()))

		return
	}

	gctx.JSON(http.StatusOK, events)
}

func (h *handlers) PostPropertyEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	propertyId, err := pathId(gctx, "property_id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid property id")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid property id", err))

		return
	}

	var request EventRequest

	err = gctx.ShouldBindJSON(&request)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to bind JSON")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("failed to bind JSON", err))

		return
	}

	event := Event{PropertyId: propertyId, Description: request.Description}

	err = ValidateEvent(event)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("event validation failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("event validation failed", err))

		return
	}

	event.Timestamp = time.Now()

	if request.Timestamp != "" {
		parsed, parseErr := ParseDateTime(request.Timestamp, StartOfDay)
		if parseErr != nil {
			log.Ctx(ctx).Error().Err(parseErr).Str("timestamp", request.Timestamp).Msg("unable to parse timestamp")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("unable to parse timestamp", parseErr))

			return
		}

		event.Timestamp = parsed
	}

	savedEvent, err := h.repository.SaveEvent(ctx, &event)
	if err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			log.Ctx(ctx).Info().Uint("property_id", propertyId).Msg("property not found")
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("property not found", err))

			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("saving event failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("saving event failed", err))

		return
	}

	gctx.JSON(http.StatusCreated, savedEvent)
}

func (h *handlers) GetPropertyEvent(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	propertyId, err := pathId(gctx, "property_id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid property id")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid property id", err))

		return
	}

	eventId, err := pathId(gctx, "event_id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid event id")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid event id", err))

		return
	}

	event, err := h.repository.GetEventById(ctx, propertyId, eventId)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			log.Ctx(ctx).Info().Uint("property_id", propertyId).Uint("event_id", eventId).Msg("event not found")
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", err))

			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("getting event failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("getting event failed", err))

		return
	}

	gctx.JSON(http.StatusOK, event)
}

// DeletePropertyEvent permanently deletes a single event. Same future-work
// note as DeleteProperty: a visibility flag would be preferable.
func (h *handlers) DeletePropertyEvent(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	propertyId, err := pathId(gctx, "property_id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid property id")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid property id", err))

		return
	}

	eventId, err := pathId(gctx, "event_id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid event id")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid event id", err))

		return
	}

	err = h.repository.DeleteEvent(ctx, propertyId, eventId)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			log.Ctx(ctx).Info().Uint("property_id", propertyId).Uint("event_id", eventId).Msg("event not found")
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", err))

			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("deleting event failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("deleting event failed", err))

		return
	}

	gctx.JSON(http.StatusOK, gin.H{"message": "event deleted"})
}
