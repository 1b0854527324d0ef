package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/eventlab/internal/eventbus/application"
	storeDomain "github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	sharedHttp "github.com/davicafu/eventlab/internal/shared/infra/inbound/http"
	"github.com/davicafu/eventlab/pkg/utils"
)

// Archiver recibe los eventos publicados para el registro analítico. Es
// opcional y lossy: que no haya hueco nunca afecta a la publicación.
type Archiver interface {
	Offer(event sharedEvents.Event) bool
}

// VolumeReader consulta el archivo analítico por ventana de tiempo.
type VolumeReader interface {
	VolumeByType(ctx context.Context, start, end time.Time) (map[string]uint64, error)
}

// PublishHandler expone la superficie de publicación del bus.
type PublishHandler struct {
	bus     *application.Manager
	archive Archiver     // nil si ClickHouse está deshabilitado
	volumes VolumeReader // ídem
}

func NewPublishHandler(bus *application.Manager, archive Archiver, volumes VolumeReader) *PublishHandler {
	return &PublishHandler{bus: bus, archive: archive, volumes: volumes}
}

type publishRequest struct {
	EventType string                 `json:"eventType"`
	Type      string                 `json:"type"` // alias aceptado
	Data      map[string]interface{} `json:"data"`
	Metadata  map[string]interface{} `json:"metadata"`
}

func (r *publishRequest) eventType() string {
	if r.EventType != "" {
		return r.EventType
	}
	return r.Type
}

// ---------------- Handlers ----------------

// PublishEvent endpoint POST /events
func (h *PublishHandler) PublishEvent(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	if req.eventType() == "" {
		utils.SendBadRequest(c, "eventType is required")
		return
	}

	result, err := h.publish(c, req)
	if err != nil {
		var valErr *application.ValidationError
		if errors.As(err, &valErr) {
			utils.SendValidationError(c, "event failed validation", toFieldErrors(valErr))
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusCreated, result)
}

// PublishBatch endpoint POST /events/batch. Éxito parcial permitido: la
// respuesta cuenta publicados y fallidos, con el error de cada elemento.
func (h *PublishHandler) PublishBatch(c *gin.Context) {
	var reqs []publishRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		utils.SendBadRequest(c, "body must be an array of events: "+err.Error())
		return
	}

	published, failed := 0, 0
	var itemErrors []gin.H
	for i, req := range reqs {
		if req.eventType() == "" {
			failed++
			itemErrors = append(itemErrors, gin.H{"index": i, "error": "eventType is required"})
			continue
		}
		if _, err := h.publish(c, req); err != nil {
			failed++
			item := gin.H{"index": i, "error": err.Error()}
			var valErr *application.ValidationError
			if errors.As(err, &valErr) {
				item["details"] = toFieldErrors(valErr)
			}
			itemErrors = append(itemErrors, item)
			continue
		}
		published++
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"published": published,
		"failed":    failed,
		"errors":    itemErrors,
	})
}

func (h *PublishHandler) publish(c *gin.Context, req publishRequest) (application.PublishResult, error) {
	meta := req.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	if _, ok := meta["correlationId"]; !ok {
		meta["correlationId"] = sharedHttp.CorrelationID(c)
	}
	if _, ok := meta["source"]; !ok {
		meta["source"] = sharedHttp.ServiceName(c)
	}

	result, err := h.bus.PublishEvent(c.Request.Context(), req.eventType(), req.Data, meta)
	if err != nil {
		return application.PublishResult{}, err
	}

	// Al archivo va el evento canónico, no la petición cruda: el payload
	// normalizado y la metadata con timestamp ya asignado.
	if h.archive != nil {
		h.archive.Offer(result.Event)
	}
	return result, nil
}

// EventHistory endpoint GET /events/history/:streamName. Lee directo del
// log durable, sin respaldo: si no está conectado, 503.
func (h *PublishHandler) EventHistory(c *gin.Context) {
	streamName := c.Param("streamName")

	fromVersion := uint64(0)
	if raw := c.Query("fromVersion"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.SendBadRequest(c, "fromVersion must be a non-negative integer")
			return
		}
		fromVersion = v
	}
	maxCount := 100
	if raw := c.Query("maxCount"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			utils.SendBadRequest(c, "maxCount must be a non-negative integer")
			return
		}
		maxCount = v
	}

	events, err := h.bus.EventHistory(c.Request.Context(), streamName, fromVersion, maxCount)
	if err != nil {
		if errors.Is(err, storeDomain.ErrNotConnected) {
			utils.SendError(c, http.StatusServiceUnavailable, "durable log transport is not connected")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"streamName": streamName,
		"events":     events,
		"eventCount": len(events),
	})
}

// StreamEvents endpoint GET /events/stream: conexión persistente SSE. El
// primer frame confirma la suscripción; después llegan los eventos crudos
// que casan con el patrón.
func (h *PublishHandler) StreamEvents(c *gin.Context) {
	pattern := c.DefaultQuery("pattern", "*")

	ch := make(chan sharedEvents.Event, 32)
	subID := h.bus.Subscribe(pattern, func(evt sharedEvents.Event) {
		select {
		case ch <- evt:
		default:
			// Un oyente lento pierde eventos antes que bloquear el bus.
		}
	})
	defer h.bus.Unsubscribe(subID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("message", gin.H{
		"type":           "subscribed",
		"subscriptionId": subID,
		"eventPattern":   pattern,
	})
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case evt := <-ch:
			c.SSEvent("message", evt)
			return true
		}
	})
}

// EventVolume endpoint GET /events/volume. Cuenta los eventos archivados
// por tipo en la ventana pedida (horas hacia atrás, 24 por defecto).
func (h *PublishHandler) EventVolume(c *gin.Context) {
	if h.volumes == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "analytics archive is not enabled")
		return
	}

	hours := 24
	if raw := c.Query("hours"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			utils.SendBadRequest(c, "hours must be a positive integer")
			return
		}
		hours = v
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	volumes, err := h.volumes.VolumeByType(c.Request.Context(), start, end)
	if err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"since":   start,
		"until":   end,
		"volumes": volumes,
	})
}

// GetStats endpoint GET /events/stats
func (h *PublishHandler) GetStats(c *gin.Context) {
	utils.SendSuccess(c, http.StatusOK, h.bus.Stats())
}

func toFieldErrors(err *application.ValidationError) []utils.FieldError {
	out := make([]utils.FieldError, len(err.Errors))
	for i, fe := range err.Errors {
		out[i] = utils.FieldError{Field: fe.Field, Message: fe.Message, Value: fe.Value}
	}
	return out
}
