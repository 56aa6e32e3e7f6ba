package chat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// MessageRecord is the persisted transcript shape. Ownership of the
// schema lives outside the core; the core only reads and writes this.
type MessageRecord struct {
	ID             int64
	ConversationID int64
	Role           string // user, assistant
	Content        string
	MessageHash    string
	RequestID      string
	IsComplete     bool
	Metadata       map[string]any
	CreatedAt      time.Time
}

// ConversationStore is the persistence seam for transcripts and
// content-hash deduplication.
type ConversationStore interface {
	SaveUser(ctx context.Context, rec MessageRecord) (int64, error)
	SaveAI(ctx context.Context, rec MessageRecord) (int64, error)
	Update(ctx context.Context, id int64, content string, complete bool) error
	ByHash(ctx context.Context, hash string) (*MessageRecord, error)
}

// MessageHash is the transcript dedup key: sha256(userId || convId || content).
func MessageHash(userID, conversationID int64, content string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%d%s", userID, conversationID, content)))
	return hex.EncodeToString(sum[:])
}

// MemoryStore is the in-process ConversationStore used by the CLI and
// tests.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	records []MessageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) save(rec MessageRecord) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.records = append(m.records, rec)
	return rec.ID
}

func (m *MemoryStore) SaveUser(_ context.Context, rec MessageRecord) (int64, error) {
	rec.Role = "user"
	return m.save(rec), nil
}

func (m *MemoryStore) SaveAI(_ context.Context, rec MessageRecord) (int64, error) {
	rec.Role = "assistant"
	return m.save(rec), nil
}

func (m *MemoryStore) Update(_ context.Context, id int64, content string, complete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Content = content
			m.records[i].IsComplete = complete
			return nil
		}
	}
	return fmt.Errorf("message %d not found", id)
}

func (m *MemoryStore) ByHash(_ context.Context, hash string) (*MessageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].MessageHash == hash {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// Messages returns a copy of the transcript, newest last.
func (m *MemoryStore) Messages() []MessageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MessageRecord, len(m.records))
	copy(out, m.records)
	return out
}
