package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"miluim/internal/domain/importer"
)

var errDiskFull = errors.New("disk full")

type memBackend struct {
	mu       sync.Mutex
	saved    *Document
	saves    int
	backups  []string
	failSave bool
}

func (b *memBackend) Load(ctx context.Context) (*Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saved == nil {
		return NewDocument(fixedNow()), nil
	}
	return b.saved.Clone(), nil
}

func (b *memBackend) Save(ctx context.Context, doc *Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSave {
		return errDiskFull
	}
	b.saved = doc.Clone()
	b.saves++
	return nil
}

func (b *memBackend) Backup(ctx context.Context, doc *Document, label string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backups = append(b.backups, label)
	return "mem/" + label, nil
}

func (b *memBackend) Ping(ctx context.Context) error { return nil }

func (b *memBackend) setFail(fail bool) {
	b.mu.Lock()
	b.failSave = fail
	b.mu.Unlock()
}

func fixedNow() time.Time {
	return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func newTestLedger(t *testing.T, opts Options) (*Ledger, *memBackend) {
	t.Helper()
	backend := &memBackend{}
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	l, err := Open(context.Background(), backend, opts, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, backend
}

func importRows(t *testing.T, l *Ledger, rows []map[string]any, opts ImportOptions) ImportResult {
	t.Helper()
	table := importer.TableFromMaps(rows)
	cols, err := l.Vocabulary().Resolve(table.Headers, importer.KindAttendance)
	require.NoError(t, err)
	res, err := l.ImportAttendance(context.Background(), table, cols, opts)
	require.NoError(t, err)
	return res
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr[T any](v T) *T {
	return &v
}
