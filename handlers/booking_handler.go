package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"event-booker/internal/status"
	"event-booker/models"
	"event-booker/services"
)

type BookingHandler struct {
	booking *services.BookingService
	catalog *services.CatalogService
}

func NewBookingHandler(booking *services.BookingService, catalog *services.CatalogService) *BookingHandler {
	return &BookingHandler{
		booking: booking,
		catalog: catalog,
	}
}

// StartSession - Open a booking form session for an event
func (h *BookingHandler) StartSession(c echo.Context) error {
	var req struct {
		EventID int64 `json:"event_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "Invalid request"})
	}

	ctx := c.Request().Context()

	if _, err := h.catalog.ByID(ctx, req.EventID); err != nil {
		if errors.Is(err, status.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, map[string]any{"error": "Event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to load event"})
	}

	session, err := h.booking.StartSession(ctx, req.EventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to start session"})
	}

	return c.JSON(http.StatusCreated, session)
}

// GetSession - Current state of a booking form session
func (h *BookingHandler) GetSession(c echo.Context) error {
	session, err := h.booking.GetSession(c.Request().Context(), c.PathParam("sessionId"))
	if err != nil {
		if errors.Is(err, status.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]any{"error": "Session not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to load session"})
	}
	return c.JSON(http.StatusOK, session)
}

// UpdateField - Set one attendee field on a session
func (h *BookingHandler) UpdateField(c echo.Context) error {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "Invalid request"})
	}

	dirty, err := h.booking.SetField(c.Request().Context(), c.PathParam("sessionId"), req.Field, req.Value)
	switch {
	case errors.Is(err, status.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{"error": "Session not found"})
	case errors.Is(err, status.ErrSessionClosed):
		return c.JSON(http.StatusConflict, map[string]any{"error": "Session is closed"})
	case err != nil:
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{"dirty": dirty})
}

// Submit - Validate the form and attempt payment tokenization
func (h *BookingHandler) Submit(c echo.Context) error {
	var form models.BookingForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "Invalid request"})
	}

	session, err := h.booking.Submit(c.Request().Context(), c.PathParam("sessionId"), form)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{
				"state":  session.State,
				"errors": verr.Fields,
			})
		case errors.Is(err, status.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, map[string]any{"error": "Session not found"})
		case errors.Is(err, status.ErrSessionClosed):
			return c.JSON(http.StatusConflict, map[string]any{"error": "Session already completed"})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to submit booking"})
		}
	}

	return c.JSON(http.StatusOK, session)
}

// History - Successful bookings recorded for an event
func (h *BookingHandler) History(c echo.Context) error {
	eventID, err := strconv.ParseInt(c.QueryParam("event_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "Invalid event ID"})
	}

	records, err := h.booking.History(c.Request().Context(), eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to load history"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"bookings": records,
		"count":    len(records),
	})
}
