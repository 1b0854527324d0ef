package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// EventRepoMongoDB implementa DurableBackend sobre MongoDB.
type EventRepoMongoDB struct {
	client       *mongo.Client
	eventsColl   *mongo.Collection
	countersColl *mongo.Collection
}

// NewEventRepoMongoDB es el constructor del repositorio.
func NewEventRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*EventRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &EventRepoMongoDB{
		client:       client,
		eventsColl:   db.Collection("events"),
		countersColl: db.Collection("counters"),
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoEvent struct {
	ID         string                 `bson:"_id"`
	StreamName string                 `bson:"streamName"`
	Revision   uint64                 `bson:"revision"`
	Position   uint64                 `bson:"position"`
	Type       string                 `bson:"type"`
	Data       map[string]interface{} `bson:"data"`
	Metadata   sharedEvents.Metadata  `bson:"metadata"`
	RecordedAt time.Time              `bson:"recordedAt"`
}

// ------------------ Append ------------------

// Append asigna revisión y posición con contadores findOneAndUpdate dentro
// de una transacción de sesión, igual que los repos transaccionales del
// resto de backends.
func (r *EventRepoMongoDB) Append(ctx context.Context, streamName string, event sharedEvents.Event) (uint64, uint64, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return 0, 0, err
	}
	defer session.EndSession(ctx)

	var revision, position uint64
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		rev, err := r.nextCounter(sessCtx, "stream:"+streamName)
		if err != nil {
			return nil, err
		}
		pos, err := r.nextCounter(sessCtx, "_all")
		if err != nil {
			return nil, err
		}
		// Los contadores empiezan en 1; las revisiones del dominio en 0.
		revision, position = rev-1, pos

		doc := mongoEvent{
			ID:         event.ID,
			StreamName: streamName,
			Revision:   revision,
			Position:   position,
			Type:       event.Type,
			Data:       event.Data,
			Metadata:   event.Metadata,
			RecordedAt: time.Now().UTC(),
		}
		if _, err := r.eventsColl.InsertOne(sessCtx, doc); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to append event: %w", err)
	}
	return revision, position, nil
}

func (r *EventRepoMongoDB) nextCounter(ctx context.Context, key string) (uint64, error) {
	var doc struct {
		Seq uint64 `bson:"seq"`
	}
	err := r.countersColl.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to advance counter %q: %w", key, err)
	}
	return doc.Seq, nil
}

// ------------------ Lectura ------------------

func (r *EventRepoMongoDB) ReadStream(ctx context.Context, streamName string, opts domain.ReadStreamOptions) ([]domain.StoredEvent, error) {
	filter := bson.M{
		"streamName": streamName,
		"revision":   bson.M{"$gte": opts.FromRevision},
	}
	return r.find(ctx, filter, "revision", opts.Direction, opts.MaxCount)
}

func (r *EventRepoMongoDB) ReadAll(ctx context.Context, opts domain.ReadAllOptions) ([]domain.StoredEvent, error) {
	filter := bson.M{"position": bson.M{"$gte": opts.FromPosition}}
	if opts.StreamPrefix != "" {
		// El prefijo es un literal, no una regex.
		filter["streamName"] = bson.M{"$regex": "^" + regexp.QuoteMeta(opts.StreamPrefix)}
	}
	return r.find(ctx, filter, "position", opts.Direction, opts.MaxCount)
}

func (r *EventRepoMongoDB) find(ctx context.Context, filter bson.M, sortField string, dir domain.Direction, maxCount int) ([]domain.StoredEvent, error) {
	order := 1
	if dir == domain.Backward {
		order = -1
	}
	findOpts := options.Find().SetSort(bson.D{{Key: sortField, Value: order}})
	if maxCount > 0 {
		findOpts.SetLimit(int64(maxCount))
	}

	cursor, err := r.eventsColl.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []domain.StoredEvent
	for cursor.Next(ctx) {
		var doc mongoEvent
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode event document: %w", err)
		}
		events = append(events, domain.StoredEvent{
			ID:         doc.ID,
			StreamName: doc.StreamName,
			Type:       doc.Type,
			Data:       doc.Data,
			Metadata:   doc.Metadata,
			Revision:   doc.Revision,
			Position:   doc.Position,
			RecordedAt: doc.RecordedAt,
		})
	}
	return events, cursor.Err()
}

// ------------------ Salud ------------------

func (r *EventRepoMongoDB) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *EventRepoMongoDB) Close() error {
	return r.client.Disconnect(context.Background())
}

// Verificación estática de la interfaz.
var _ domain.DurableBackend = (*EventRepoMongoDB)(nil)
