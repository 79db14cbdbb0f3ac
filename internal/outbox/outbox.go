// Package outbox keeps a record of every message handed to the transport.
package outbox

type DB interface {
	GetAll() ([]Record, error)
	GetByID(id string) (*Record, error)
	Insert(record Record) error
}

type Store struct {
	db DB
}

type Configuration struct {
	DB DB
}

func NewStore(config Configuration) *Store {
	return &Store{
		db: config.DB,
	}
}

func (s *Store) GetAll() ([]Record, error) {
	return s.db.GetAll()
}

func (s *Store) GetByID(id string) (*Record, error) {
	return s.db.GetByID(id)
}

func (s *Store) Add(r Record) error {
	return s.db.Insert(r)
}
