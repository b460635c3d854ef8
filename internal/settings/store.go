package settings

import (
	"errors"
	"log"
	"sync"

	"github.com/ah-its-andy/webpconv/internal/db"
	"gorm.io/gorm"
)

// Keys persisted across restarts.
const (
	KeyBatchQuality = "batchQuality"
	KeyBatchFormat  = "batchFormat"
	KeyTheme        = "theme"
)

// Store is a string key/value store. Get reports false for a missing key.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// DBStore keeps settings in the sqlite database.
type DBStore struct {
	conn *gorm.DB
}

func NewDBStore(conn *gorm.DB) *DBStore {
	return &DBStore{conn: conn}
}

func (s *DBStore) Get(key string) (string, bool) {
	v, err := db.GetSetting(s.conn, key)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.Printf("failed to read setting %s: %v", key, err)
		}
		return "", false
	}
	return v, true
}

func (s *DBStore) Set(key, value string) error {
	return db.PutSetting(s.conn, key, value)
}

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
