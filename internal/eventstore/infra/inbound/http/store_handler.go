package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/eventlab/internal/eventstore/application"
	"github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	sharedHttp "github.com/davicafu/eventlab/internal/shared/infra/inbound/http"
	"github.com/davicafu/eventlab/pkg/utils"
)

const maxPageSize = 1000

// StoreHandler encapsula los endpoints HTTP del almacén de eventos. Aquí
// solo hay validación de forma y marshalling; las reglas de esquema viven
// en el validador y la lógica de streams en el almacén.
type StoreHandler struct {
	store *application.EventStore
}

// NewStoreHandler crea un nuevo StoreHandler
func NewStoreHandler(store *application.EventStore) *StoreHandler {
	return &StoreHandler{store: store}
}

// ---------------- Handlers ----------------

// AppendEvent endpoint POST /eventstore/events/:streamName
func (h *StoreHandler) AppendEvent(c *gin.Context) {
	streamName := c.Param("streamName")

	var req struct {
		EventType string                 `json:"eventType" binding:"required"`
		Data      map[string]interface{} `json:"data"`
		Metadata  sharedEvents.Metadata  `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	meta := req.Metadata
	if meta.CorrelationID == "" {
		meta.CorrelationID = sharedHttp.CorrelationID(c)
	}
	if meta.Source == "" {
		meta.Source = sharedHttp.ServiceName(c)
	}

	result, err := h.store.AppendEvent(c.Request.Context(), streamName, req.EventType, req.Data, meta)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyStreamName) {
			utils.SendBadRequest(c, "stream name must be a non-empty string")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusCreated, result)
}

// ReadStream endpoint GET /eventstore/events/:streamName
func (h *StoreHandler) ReadStream(c *gin.Context) {
	streamName := c.Param("streamName")

	opts := domain.ReadStreamOptions{Direction: domain.Forward}
	var ok bool
	if opts.FromRevision, ok = uintQuery(c, "fromRevision", 0); !ok {
		return
	}
	if opts.Direction, ok = directionQuery(c); !ok {
		return
	}
	var maxCount int
	if maxCount, ok = boundedIntQuery(c, "maxCount", 0); !ok {
		return
	}
	opts.MaxCount = maxCount
	opts.IncludeMetadata = c.Query("includeMetadata") == "true"

	result, err := h.store.ReadStream(c.Request.Context(), streamName, opts)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyStreamName) {
			utils.SendBadRequest(c, "stream name must be a non-empty string")
			return
		}
		// Un stream vacío o inexistente no pasa por aquí: eso es un 200
		// con cero eventos. Este es el fallo total de la lectura.
		utils.SendNotFound(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"streamName": result.StreamName,
		"events":     emptyIfNil(result.Events),
		"eventCount": len(result.Events),
		"source":     result.Source,
	})
}

// ReadAll endpoint GET /eventstore/events
func (h *StoreHandler) ReadAll(c *gin.Context) {
	opts := domain.ReadAllOptions{Direction: domain.Forward, StreamPrefix: c.Query("streamPrefix")}
	var ok bool
	if opts.FromPosition, ok = uintQuery(c, "fromPosition", 0); !ok {
		return
	}
	if opts.Direction, ok = directionQuery(c); !ok {
		return
	}
	if opts.MaxCount, ok = boundedIntQuery(c, "maxCount", 100); !ok {
		return
	}

	result := h.store.ReadAll(c.Request.Context(), opts)
	utils.SendSuccess(c, http.StatusOK, gin.H{
		"events":     emptyIfNil(result.Events),
		"eventCount": len(result.Events),
		"source":     result.Source,
	})
}

// CreateSnapshot endpoint POST /eventstore/snapshots/:aggregateType/:aggregateId
func (h *StoreHandler) CreateSnapshot(c *gin.Context) {
	aggregateType := c.Param("aggregateType")
	aggregateID := c.Param("aggregateId")

	var req struct {
		State   map[string]interface{} `json:"state" binding:"required"`
		Version *int                   `json:"version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, "state and version are required: "+err.Error())
		return
	}

	result, err := h.store.CreateSnapshot(c.Request.Context(), aggregateID, aggregateType, req.State, *req.Version)
	if err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusCreated, result)
}

// LoadSnapshot endpoint GET /eventstore/snapshots/:aggregateType/:aggregateId
func (h *StoreHandler) LoadSnapshot(c *gin.Context) {
	aggregateType := c.Param("aggregateType")
	aggregateID := c.Param("aggregateId")

	snapshot, err := h.store.LoadSnapshot(c.Request.Context(), aggregateID, aggregateType)
	if err != nil {
		if errors.Is(err, domain.ErrNoSnapshot) {
			utils.SendNotFound(c, "No snapshot found")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"snapshot": snapshot,
		"version":  snapshot.Version,
	})
}

// GetStats endpoint GET /eventstore/stats
func (h *StoreHandler) GetStats(c *gin.Context) {
	utils.SendSuccess(c, http.StatusOK, h.store.Stats())
}

// Health endpoint GET /eventstore/health
func (h *StoreHandler) Health(c *gin.Context) {
	health := h.store.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"success": health.Status != "unhealthy",
		"data":    health,
	})
}

// ---------------- Query helpers ----------------

func uintQuery(c *gin.Context, name string, fallback uint64) (uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		utils.SendBadRequest(c, name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

func boundedIntQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > maxPageSize {
		utils.SendBadRequest(c, name+" must be an integer between 0 and "+strconv.Itoa(maxPageSize))
		return 0, false
	}
	return v, true
}

func directionQuery(c *gin.Context) (domain.Direction, bool) {
	switch c.Query("direction") {
	case "", "forward":
		return domain.Forward, true
	case "backward":
		return domain.Backward, true
	default:
		utils.SendBadRequest(c, "direction must be forward or backward")
		return "", false
	}
}

func emptyIfNil(events []domain.StoredEvent) []domain.StoredEvent {
	if events == nil {
		return []domain.StoredEvent{}
	}
	return events
}
