package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"event-booker/services"
)

type AdminHandler struct {
	events *services.EventService
}

func NewAdminHandler(events *services.EventService) *AdminHandler {
	return &AdminHandler{events: events}
}

// CreateEvent - Validate and persist a new event
func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var input services.CreateEventInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "Invalid request"})
	}

	event, err := h.events.CreateEvent(c.Request().Context(), input)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": verr.Fields})
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to create event"})
	}

	// The admin form re-selects today's date after a successful create.
	return c.JSON(http.StatusCreated, map[string]any{
		"event":        event,
		"working_date": h.events.Today(),
	})
}

// ClearEvents - Drop the whole event collection
func (h *AdminHandler) ClearEvents(c echo.Context) error {
	if err := h.events.ClearEvents(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to clear events"})
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "All events cleared"})
}
