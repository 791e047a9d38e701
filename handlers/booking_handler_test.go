package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-booker/config"
	"event-booker/internal/services/payment"
	"event-booker/notify"
	"event-booker/services"
)

func setupTestBookingHandler(t *testing.T) (*BookingHandler, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	booking := services.NewBookingService(db, payment.NewSimulator(), notify.Noop{}, &config.Config{
		BookingSessionTTL:   30 * time.Minute,
		BreakerMaxRequests:  20,
		BreakerFailureRatio: 0.6,
		BreakerTimeout:      time.Minute,
	})
	return NewBookingHandler(booking, catalogFixture()), mock
}

func withSessionID(c echo.Context, sessionID string) {
	c.SetPathParams(echo.PathParams{{Name: "sessionId", Value: sessionID}})
}

func TestBookingHandler_StartSession_UnknownEvent(t *testing.T) {
	handler, mock := setupTestBookingHandler(t)

	req, rec := postJSON("/api/v1/bookings/sessions", `{"event_id": 99}`)
	c := echo.New().NewContext(req, rec)

	require.NoError(t, handler.StartSession(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingHandler_GetSession_NotFound(t *testing.T) {
	handler, mock := setupTestBookingHandler(t)

	mock.ExpectHGetAll("booking:session:missing").SetVal(map[string]string{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/sessions/missing", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	withSessionID(c, "missing")

	require.NoError(t, handler.GetSession(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingHandler_UpdateField(t *testing.T) {
	handler, mock := setupTestBookingHandler(t)
	key := "booking:session:sid"

	mock.ExpectHGet(key, "state").SetVal("empty")
	mock.ExpectHMGet(key, "name", "email", "national_id", "favorite_animal").
		SetVal([]interface{}{nil, nil, nil, nil})
	mock.ExpectHSet(key, "name", "Ada").SetVal(1)
	mock.ExpectHSet(key, "state", "dirty").SetVal(0)

	req, rec := postJSON("/api/v1/bookings/sessions/sid", `{"field": "name", "value": "Ada"}`)
	c := echo.New().NewContext(req, rec)
	withSessionID(c, "sid")

	require.NoError(t, handler.UpdateField(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Dirty bool `json:"dirty"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Dirty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingHandler_UpdateField_UnknownField(t *testing.T) {
	handler, _ := setupTestBookingHandler(t)

	req, rec := postJSON("/api/v1/bookings/sessions/sid", `{"field": "shoe_size", "value": "44"}`)
	c := echo.New().NewContext(req, rec)
	withSessionID(c, "sid")

	require.NoError(t, handler.UpdateField(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandler_Submit_ValidationErrors(t *testing.T) {
	handler, mock := setupTestBookingHandler(t)
	key := "booking:session:sid"

	mock.ExpectHMGet(key, "state", "event_id").SetVal([]interface{}{"dirty", "1"})
	mock.ExpectHSet(key, "state", "dirty").SetVal(0)

	body := `{
		"name": "Ada Lovelace",
		"email": "ada@example.com",
		"nationalId": "123456789012",
		"favoriteAnimal": "Zebra",
		"cardNumber": "4242424242424242",
		"cardExpMonth": 12,
		"cardExpYear": 2030,
		"cardCvc": "123"
	}`
	req, rec := postJSON("/api/v1/bookings/sessions/sid/submit", body)
	c := echo.New().NewContext(req, rec)
	withSessionID(c, "sid")

	require.NoError(t, handler.Submit(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		State  string            `json:"state"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dirty", resp.State)
	assert.Equal(t, "is not an accepted answer", resp.Errors["favoriteAnimal"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingHandler_History_BadEventID(t *testing.T) {
	handler, _ := setupTestBookingHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/history?event_id=abc", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	require.NoError(t, handler.History(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
