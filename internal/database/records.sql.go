package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ImportRecordRow is one accepted import row stored as JSON.
type ImportRecordRow struct {
	ID         pgtype.UUID
	BatchID    pgtype.UUID
	ImportType string
	RowIndex   int32
	Payload    []byte
}

const insertImportRecord = `-- name: InsertImportRecord :batchexec
INSERT INTO import_records (id, batch_id, import_type, row_index, payload)
VALUES ($1, $2, $3, $4, $5)
`

// InsertImportRecords queues one insert per row and sends them in a single
// round trip. Run it inside a transaction for all-or-nothing semantics.
func (q *Queries) InsertImportRecords(ctx context.Context, rows []ImportRecordRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertImportRecord, r.ID, r.BatchID, r.ImportType, r.RowIndex, r.Payload)
	}

	br := q.db.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert import record %d: %w", i, err)
		}
	}
	return br.Close()
}
