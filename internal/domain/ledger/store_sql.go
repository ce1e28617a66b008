package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// snapshotID is the single row holding the current document.
const snapshotID = 1

// SQLBackend stores the document as one jsonb row and keeps backups in
// ledger_backups. The schema lives in the platform db migrations.
type SQLBackend struct {
	db     *sql.DB
	sealer Sealer
	now    func() time.Time
}

func NewSQLBackend(db *sql.DB, sealer Sealer) *SQLBackend {
	if sealer == nil {
		sealer = plainSealer{}
	}
	return &SQLBackend{db: db, sealer: sealer, now: time.Now}
}

func (b *SQLBackend) Load(ctx context.Context) (*Document, error) {
	var raw []byte
	err := b.db.QueryRowContext(ctx, `
		SELECT document
		FROM ledger_snapshots
		WHERE id = $1
	`, snapshotID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return NewDocument(b.now().UTC()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger snapshot: %w", err)
	}
	return decodeDocument(raw, b.sealer, b.now().UTC())
}

func (b *SQLBackend) Save(ctx context.Context, doc *Document) error {
	raw, err := encodeDocument(doc, b.sealer)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO ledger_snapshots (id, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at
	`, snapshotID, string(raw), b.now().UTC())
	if err != nil {
		return fmt.Errorf("save ledger snapshot: %w", err)
	}
	return nil
}

func (b *SQLBackend) Backup(ctx context.Context, doc *Document, label string) (string, error) {
	raw, err := encodeDocument(doc, b.sealer)
	if err != nil {
		return "", err
	}
	var id int64
	err = b.db.QueryRowContext(ctx, `
		INSERT INTO ledger_backups (label, document, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, label, string(raw), b.now().UTC()).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert ledger backup: %w", err)
	}
	return "ledger_backups/" + strconv.FormatInt(id, 10), nil
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}
