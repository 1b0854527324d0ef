package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/davicafu/eventlab/internal/eventstore/application"
	sharedHttp "github.com/davicafu/eventlab/internal/shared/infra/inbound/http"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := application.NewEventStore(nil, zap.NewNop())
	store.Initialize(context.Background())

	router := gin.New()
	router.Use(sharedHttp.CorrelationMiddleware())
	RegisterStoreRoutes(router, NewStoreHandler(store))
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAppendAndReadStream(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/eventstore/events/orders-7", gin.H{
		"eventType": "orders.created",
		"data":      gin.H{"total": 99},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var appendResp struct {
		Success bool `json:"success"`
		Data    struct {
			EventID        string `json:"eventId"`
			StreamName     string `json:"streamName"`
			AppendPosition uint64 `json:"appendPosition"`
			Source         string `json:"source"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &appendResp))
	assert.True(t, appendResp.Success)
	assert.Equal(t, "orders-7", appendResp.Data.StreamName)
	assert.Equal(t, "fallback", appendResp.Data.Source)

	w = doJSON(router, http.MethodGet, "/eventstore/events/orders-7", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var readResp struct {
		Success bool `json:"success"`
		Data    struct {
			EventCount int `json:"eventCount"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &readResp))
	assert.Equal(t, 1, readResp.Data.EventCount)
}

func TestReadStream_NonexistentIsOKWithZeroEvents(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/eventstore/events/ghost", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"eventCount":0`)
}

func TestReadStream_BadPaginationParams(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/eventstore/events/orders-7?maxCount=99999", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/eventstore/events/orders-7?direction=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/eventstore/events/orders-7?fromRevision=-3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppendEvent_MissingEventType(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/eventstore/events/orders-7", gin.H{
		"data": gin.H{"total": 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnapshotRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/eventstore/snapshots/order/42", gin.H{
		"state":   gin.H{"total": 10},
		"version": 1,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/eventstore/snapshots/order/42", gin.H{
		"state":   gin.H{"total": 25},
		"version": 2,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/eventstore/snapshots/order/42", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Version int `json:"version"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Version)
}

func TestSnapshot_MissingFieldsAndNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/eventstore/snapshots/order/42", gin.H{"state": gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/eventstore/snapshots/order/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth_DegradedOnFallbackIsStill200(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/eventstore/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

func TestCorrelationHeaderIsEchoed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/eventstore/stats", nil)
	req.Header.Set(sharedHttp.HeaderCorrelationID, "corr-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "corr-123", w.Header().Get(sharedHttp.HeaderCorrelationID))
}
