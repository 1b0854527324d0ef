package relayer

import (
	"context"
	"time"

	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	"go.uber.org/zap"
)

// EventArchive es el destino de los lotes (ClickHouse en producción).
type EventArchive interface {
	LogBatch(ctx context.Context, events []sharedEvents.Event) error
}

// Worker drena el buffer de eventos publicados y los archiva por lotes.
// Es deliberadamente lossy: si el buffer está lleno el registro analítico
// se descarta, nunca el publish.
type Worker struct {
	archive   EventArchive
	buffer    chan sharedEvents.Event
	interval  time.Duration
	batchSize int
	log       *zap.Logger
}

func NewWorker(archive EventArchive, bufferSize int, interval time.Duration, batchSize int, log *zap.Logger) *Worker {
	return &Worker{
		archive:   archive,
		buffer:    make(chan sharedEvents.Event, bufferSize),
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Offer encola un evento para archivar sin bloquear. Devuelve false si el
// buffer está lleno y el evento se descartó.
func (w *Worker) Offer(event sharedEvents.Event) bool {
	select {
	case w.buffer <- event:
		return true
	default:
		w.log.Debug("Buffer de archivo lleno, evento descartado", zap.String("event_id", event.ID))
		return false
	}
}

// Start inicia el bucle de archivado del worker.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.log.Info("🚀 Worker de archivo analítico iniciado", zap.Duration("interval", w.interval))

		for {
			select {
			case <-ctx.Done():
				w.log.Info("🛑 Worker de archivo analítico detenido.")
				return
			case <-ticker.C:
				w.drain(ctx)
			}
		}
	}()
}

func (w *Worker) drain(ctx context.Context) {
	batch := make([]sharedEvents.Event, 0, w.batchSize)
	for len(batch) < w.batchSize {
		select {
		case evt := <-w.buffer:
			batch = append(batch, evt)
		default:
			goto flush
		}
	}
flush:
	if len(batch) == 0 {
		return
	}
	if err := w.archive.LogBatch(ctx, batch); err != nil {
		w.log.Warn("⚠️ No se pudo archivar el lote de eventos", zap.Int("batch", len(batch)), zap.Error(err))
		return
	}
	w.log.Debug("Lote de eventos archivado", zap.Int("batch", len(batch)))
}
