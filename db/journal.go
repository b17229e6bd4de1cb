package db

import (
	"context"
	"fmt"
	"sync"

	"ecoxchange/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Journal records balance changes per session.
type Journal interface {
	Record(ctx context.Context, tx models.Transaction) error
	// Recent returns up to limit transactions for the session, newest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]models.Transaction, error)
}

// MemoryJournal keeps the newest transactions of every session in memory.
type MemoryJournal struct {
	mu         sync.RWMutex
	perSession int
	entries    map[string][]models.Transaction
}

// NewMemoryJournal keeps at most perSession entries for each session.
func NewMemoryJournal(perSession int) *MemoryJournal {
	if perSession <= 0 {
		perSession = 100
	}
	return &MemoryJournal{perSession: perSession, entries: make(map[string][]models.Transaction)}
}

func (j *MemoryJournal) Record(ctx context.Context, tx models.Transaction) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	list := append(j.entries[tx.SessionID], tx)
	if len(list) > j.perSession {
		list = list[len(list)-j.perSession:]
	}
	j.entries[tx.SessionID] = list
	return nil
}

func (j *MemoryJournal) Recent(ctx context.Context, sessionID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		return []models.Transaction{}, nil
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	list := j.entries[sessionID]
	out := make([]models.Transaction, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

// Forget drops everything held for the session.
func (j *MemoryJournal) Forget(sessionID string) {
	j.mu.Lock()
	delete(j.entries, sessionID)
	j.mu.Unlock()
}

// Sessions returns the number of sessions with journaled transactions.
func (j *MemoryJournal) Sessions() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// MongoJournal stores transactions in the "transactions" collection.
type MongoJournal struct {
	collection *mongo.Collection
}

func NewMongoJournal(database *mongo.Database) *MongoJournal {
	return &MongoJournal{collection: database.Collection("transactions")}
}

// EnsureIndexes creates the session/createdAt index used by Recent.
func (j *MongoJournal) EnsureIndexes(ctx context.Context) error {
	_, err := j.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create transactions index: %w", err)
	}
	return nil
}

func (j *MongoJournal) Record(ctx context.Context, tx models.Transaction) error {
	if _, err := j.collection.InsertOne(ctx, tx); err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (j *MongoJournal) Recent(ctx context.Context, sessionID string, limit int) ([]models.Transaction, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(int64(limit))
	cursor, err := j.collection.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cursor.Close(ctx)

	txs := []models.Transaction{}
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txs, nil
}
