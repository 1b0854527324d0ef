package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/davicafu/eventlab/internal/eventbus/application"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	sharedHttp "github.com/davicafu/eventlab/internal/shared/infra/inbound/http"
	"github.com/davicafu/eventlab/internal/validation"
)

type memoryArchive struct {
	mu     sync.Mutex
	events []sharedEvents.Event
}

func (a *memoryArchive) Offer(event sharedEvents.Event) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return true
}

type fakeVolumes struct {
	volumes map[string]uint64
	err     error
}

func (f *fakeVolumes) VolumeByType(ctx context.Context, start, end time.Time) (map[string]uint64, error) {
	return f.volumes, f.err
}

func newTestRouter(t *testing.T, archive Archiver, volumes VolumeReader) (*gin.Engine, *application.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := application.NewManager(validation.NewValidator(zap.NewNop()), nil, nil, true, zap.NewNop())
	bus.Initialize(context.Background())

	router := gin.New()
	router.Use(sharedHttp.CorrelationMiddleware())
	RegisterPublishRoutes(router, NewPublishHandler(bus, archive, volumes))
	return router, bus
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

func TestPublishEvent_Success(t *testing.T) {
	archive := &memoryArchive{}
	router, _ := newTestRouter(t, archive, nil)

	w := doJSON(router, http.MethodPost, "/events", gin.H{
		"eventType": "auth.user.login",
		"data":      gin.H{"userId": "u-1"},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			EventID   string   `json:"eventId"`
			EventType string   `json:"eventType"`
			Published []string `json:"published"`
			Failed    []string `json:"failed"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.EventID)
	assert.Equal(t, "auth.user.login", resp.Data.EventType)
	assert.Equal(t, []string{"local"}, resp.Data.Published)

	archive.mu.Lock()
	defer archive.mu.Unlock()
	assert.Len(t, archive.events, 1)
	assert.Equal(t, resp.Data.EventID, archive.events[0].ID)
}

func TestPublishEvent_ArchivesCanonicalEvent(t *testing.T) {
	archive := &memoryArchive{}
	router, _ := newTestRouter(t, archive, nil)

	w := doJSON(router, http.MethodPost, "/events", gin.H{
		"eventType": "auth.user.login",
		"data":      gin.H{"userId": "u-1", "debug": true}, // "debug" no está en el esquema
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	archive.mu.Lock()
	defer archive.mu.Unlock()
	assert.Len(t, archive.events, 1)
	archived := archive.events[0]

	// Al archivo llega el evento canónico: timestamp ya asignado y payload
	// normalizado, no la petición cruda.
	assert.False(t, archived.Metadata.Timestamp.IsZero())
	assert.Equal(t, "auth.user.login", archived.Type)
	assert.Contains(t, archived.Data, "userId")
	assert.NotContains(t, archived.Data, "debug")
	assert.NotEmpty(t, archived.Metadata.CorrelationID)
}

func TestPublishEvent_TypeAliasAccepted(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	w := doJSON(router, http.MethodPost, "/events", gin.H{
		"type": "auth.user.logout",
		"data": gin.H{"userId": "u-1"},
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPublishEvent_MissingEventType(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	w := doJSON(router, http.MethodPost, "/events", gin.H{"data": gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "eventType is required")
}

func TestPublishEvent_ValidationFailureReturnsDetails(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	w := doJSON(router, http.MethodPost, "/events", gin.H{
		"eventType": "community.post.created",
		"data":      gin.H{"postId": "p-1"}, // faltan authorId y title
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Error   string
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Details)

	fields := make([]string, 0, len(resp.Details))
	for _, d := range resp.Details {
		fields = append(fields, d.Field)
	}
	assert.Contains(t, fields, "authorId")
	assert.Contains(t, fields, "title")
}

func TestPublishBatch_PartialSuccess(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	w := doJSON(router, http.MethodPost, "/events/batch", []gin.H{
		{"eventType": "auth.user.login", "data": gin.H{"userId": "u-1"}},
		{"eventType": "community.post.created", "data": gin.H{"postId": "p-1"}},
		{"data": gin.H{}},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Published int `json:"published"`
			Failed    int `json:"failed"`
			Errors    []struct {
				Index int    `json:"index"`
				Error string `json:"error"`
			} `json:"errors"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Published)
	assert.Equal(t, 2, resp.Data.Failed)
	assert.Len(t, resp.Data.Errors, 2)
	assert.Equal(t, 1, resp.Data.Errors[0].Index)
	assert.Equal(t, 2, resp.Data.Errors[1].Index)
}

func TestPublishBatch_NonArrayBody(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	w := doJSON(router, http.MethodPost, "/events/batch", gin.H{"eventType": "auth.user.login"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHistory_UnavailableWithoutDurableTransport(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	w := doJSON(router, http.MethodGet, "/events/history/orders-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEventVolume_FromArchive(t *testing.T) {
	router, _ := newTestRouter(t, nil, &fakeVolumes{volumes: map[string]uint64{
		"auth.user.login":        12,
		"community.post.created": 3,
	}})

	w := doJSON(router, http.MethodGet, "/events/volume?hours=48", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Volumes map[string]uint64 `json:"volumes"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(12), resp.Data.Volumes["auth.user.login"])
	assert.Equal(t, uint64(3), resp.Data.Volumes["community.post.created"])
}

func TestEventVolume_UnavailableWithoutArchive(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	w := doJSON(router, http.MethodGet, "/events/volume", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEventVolume_BadHoursParam(t *testing.T) {
	router, _ := newTestRouter(t, nil, &fakeVolumes{})

	w := doJSON(router, http.MethodGet, "/events/volume?hours=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/events/volume?hours=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStats_ReflectsPublishes(t *testing.T) {
	router, bus := newTestRouter(t, nil, nil)

	doJSON(router, http.MethodPost, "/events", gin.H{
		"eventType": "auth.user.login",
		"data":      gin.H{"userId": "u-1"},
	})

	w := doJSON(router, http.MethodGet, "/events/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(1), bus.Stats().Published)
	assert.Contains(t, w.Body.String(), `"standalone":true`)
}
