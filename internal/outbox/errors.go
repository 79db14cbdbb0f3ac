package outbox

import "errors"

var (
	ErrRecordNotFound      = errors.New("outbox record not found")
	ErrRecordAlreadyExists = errors.New("outbox record already exists")
)
