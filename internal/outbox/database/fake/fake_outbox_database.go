package fake

import (
	"sync"

	"github.com/OliverSchlueter/smtp-transport/internal/outbox"
)

type DB struct {
	Records []outbox.Record
	mu      sync.Mutex
}

func NewDB() *DB {
	return &DB{
		Records: []outbox.Record{},
		mu:      sync.Mutex{},
	}
}

func (db *DB) GetAll() ([]outbox.Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	records := make([]outbox.Record, len(db.Records))
	copy(records, db.Records)
	return records, nil
}

func (db *DB) GetByID(id string) (*outbox.Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, record := range db.Records {
		if record.ID == id {
			return &record, nil
		}
	}
	return nil, outbox.ErrRecordNotFound
}

func (db *DB) Insert(record outbox.Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.Records {
		if existing.ID == record.ID {
			return outbox.ErrRecordAlreadyExists
		}
	}

	db.Records = append(db.Records, record)
	return nil
}
