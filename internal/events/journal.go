// Package events keeps an audit journal of payment webhook deliveries.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var ErrDuplicateEvent = errors.New("payment event already recorded")

type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeOutOfOrder Outcome = "out_of_order"
)

type PaymentEvent struct {
	EventID    string    `bson:"event_id" json:"event_id"`
	EventType  string    `bson:"event_type" json:"event_type"`
	OrderID    int64     `bson:"order_id" json:"order_id"`
	Status     string    `bson:"status" json:"status"`
	Outcome    Outcome   `bson:"outcome" json:"outcome"`
	ReceivedAt time.Time `bson:"received_at" json:"received_at"`
}

// Journal records each processor event once, keyed by its event id.
type Journal interface {
	Record(ctx context.Context, event *PaymentEvent) error
	FindByOrder(ctx context.Context, orderID int64) ([]*PaymentEvent, error)
}

type mongoJournal struct {
	collection *mongo.Collection
}

// journalClientOptions suits a low-volume audit log: a small pool, and
// writes that survive a primary failover.
func journalClientOptions(uri string) *options.ClientOptions {
	return options.Client().
		ApplyURI(uri).
		SetAppName("store-journal").
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(20).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())
}

// Connect opens the journal database and checks the server answers.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, journalClientOptions(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to journal mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping journal mongo: %w", err)
	}
	return client.Database(database), nil
}

func NewMongoJournal(db *mongo.Database) Journal {
	return &mongoJournal{
		collection: db.Collection("payment_events"),
	}
}

func (j *mongoJournal) Record(ctx context.Context, event *PaymentEvent) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	if _, err := j.collection.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to record payment event: %w", err)
	}
	return nil
}

func (j *mongoJournal) FindByOrder(ctx context.Context, orderID int64) ([]*PaymentEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: 1}})
	cursor, err := j.collection.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []*PaymentEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode payment events: %w", err)
	}
	return events, nil
}

func (j *mongoJournal) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "order_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(180 * 24 * 60 * 60), // 180 days TTL
		},
	}

	_, err := j.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// EnsureIndexes creates the journal indexes when j is the Mongo journal.
func EnsureIndexes(ctx context.Context, j Journal) error {
	if mj, ok := j.(*mongoJournal); ok {
		return mj.CreateIndexes(ctx)
	}
	return nil
}
