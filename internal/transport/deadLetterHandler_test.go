package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/ds124wfegd/tablebooker/pkg/events"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeadLetter(t *testing.T) (*miniredis.Miniredis, *events.DeadLetter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, events.NewDeadLetter(client, "")
}

func TestDeadLetterList(t *testing.T) {
	_, dl := newDeadLetter(t)
	ctx := context.Background()
	for _, code := range []string{"AAAA0001", "AAAA0002"} {
		event := events.NewEvent(events.TypeBookingCreated, &entity.Booking{ID: 1, ShopID: 1, BookingCode: code})
		require.NoError(t, dl.Store(ctx, event, errors.New("broker down")))
	}
	api := newAPIWithDeadLetter(t, 0, 0, dl)

	w := api.do(http.MethodGet, "/api/v1/admin/dead-letter?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body DeadLetterResponse
	api.decode(w, &body)
	assert.Equal(t, int64(2), body.Stats.Size)
	require.Len(t, body.Events, 1)
	assert.Equal(t, "broker down", body.Events[0].Error)
	assert.Equal(t, events.TypeBookingCreated, body.Events[0].Event.Type)

	w = api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"dead_letter":2`)
}

func TestDeadLetterListBadLimit(t *testing.T) {
	_, dl := newDeadLetter(t)
	api := newAPIWithDeadLetter(t, 0, 0, dl)

	for _, limit := range []string{"-3", "5000", "many"} {
		w := api.do(http.MethodGet, "/api/v1/admin/dead-letter?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}
}

func TestDeadLetterRedisDown(t *testing.T) {
	mr, dl := newDeadLetter(t)
	api := newAPIWithDeadLetter(t, 0, 0, dl)
	mr.Close()

	w := api.do(http.MethodGet, "/api/v1/admin/dead-letter", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"dead_letter":-1`)
}

func TestDeadLetterRouteNeedsStore(t *testing.T) {
	api := newAPI(t, 0, 0)

	w := api.do(http.MethodGet, "/api/v1/admin/dead-letter", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/health", nil)
	assert.NotContains(t, w.Body.String(), "dead_letter")
}
