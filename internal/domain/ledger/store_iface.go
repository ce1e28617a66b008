package ledger

import "context"

// Backend persists whole documents. Load returns a fresh document when
// nothing has been stored yet.
type Backend interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Backup(ctx context.Context, doc *Document, label string) (string, error)
	Ping(ctx context.Context) error
}

// Sealer protects national ids inside the persisted document.
type Sealer interface {
	Seal(value string) (string, error)
	Open(value string) (string, error)
}

type plainSealer struct{}

func (plainSealer) Seal(value string) (string, error) { return value, nil }
func (plainSealer) Open(value string) (string, error) { return value, nil }
