package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"

	"event-booker/internal/status"
	"event-booker/services"
)

type EventHandler struct {
	catalog *services.CatalogService
}

func NewEventHandler(catalog *services.CatalogService) *EventHandler {
	return &EventHandler{catalog: catalog}
}

// ListEvents - List events, optionally filtered by day and search query
func (h *EventHandler) ListEvents(c echo.Context) error {
	ctx := c.Request().Context()

	events, err := h.catalog.Snapshot(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to load events"})
	}

	if dateParam := c.QueryParam("date"); dateParam != "" {
		day, err := time.Parse("2006-01-02", dateParam)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "Invalid date, expected YYYY-MM-DD"})
		}
		events = services.FilterByDay(events, day)
	}

	events = services.Search(events, c.QueryParam("q"))

	return c.JSON(http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// GetEvent - Get one event by ID
func (h *EventHandler) GetEvent(c echo.Context) error {
	id, err := strconv.ParseInt(c.PathParam("eventId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "Invalid event ID"})
	}

	event, err := h.catalog.ByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, status.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, map[string]any{"error": "Event not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to load event"})
	}

	return c.JSON(http.StatusOK, event)
}

// Recommended - Top events by attendance ratio
func (h *EventHandler) Recommended(c echo.Context) error {
	events, err := h.catalog.Snapshot(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to load events"})
	}

	recommended := services.Recommend(events)
	return c.JSON(http.StatusOK, map[string]any{
		"events": recommended,
		"count":  len(recommended),
	})
}

// Calendar - Month view bucketing events by day
func (h *EventHandler) Calendar(c echo.Context) error {
	ref, err := monthParam(c.QueryParam("month"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "Invalid month, expected YYYY-MM"})
	}

	events, err := h.catalog.Snapshot(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to load events"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"month": ref.Format("2006-01"),
		"days":  services.CalendarMonth(events, ref),
	})
}

// CalendarICS - Month view as an iCalendar feed
func (h *EventHandler) CalendarICS(c echo.Context) error {
	ref, err := monthParam(c.QueryParam("month"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "Invalid month, expected YYYY-MM"})
	}

	events, err := h.catalog.Snapshot(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to load events"})
	}

	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(services.MonthICS(events, ref)))
}

func monthParam(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01", value)
}
