package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/selfgate-project/selfgate/pkg/model"
)

// MirrorFileName is the relational mirror database inside the change-log
// directory.
const MirrorFileName = "changes.db"

const mirrorSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id                 TEXT PRIMARY KEY,
	ts                 INTEGER NOT NULL,
	file               TEXT NOT NULL,
	author             TEXT NOT NULL,
	intent             TEXT NOT NULL,
	old_sha256         TEXT NOT NULL,
	new_sha256         TEXT NOT NULL,
	diff_sha256        TEXT NOT NULL,
	ast_delta          TEXT NOT NULL,
	diff               TEXT NOT NULL,
	explanation        TEXT NOT NULL,
	explanation_errors TEXT NOT NULL,
	assessment         TEXT NOT NULL,
	signature          TEXT NOT NULL DEFAULT '',
	pubkey_id          TEXT NOT NULL DEFAULT '',
	sig_alg            TEXT NOT NULL DEFAULT '',
	key_id             TEXT NOT NULL DEFAULT '',
	nonce              TEXT NOT NULL DEFAULT '',
	tag                TEXT NOT NULL DEFAULT '',
	prev_hash          TEXT NOT NULL DEFAULT '',
	record_hash        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_file ON reports(file);
CREATE INDEX IF NOT EXISTS idx_reports_ts ON reports(ts);
`

// Mirror maintains the hash-chained relational copy of the report log.
// Every write is best-effort from the pipeline's point of view; the JSON
// documents stay authoritative.
type Mirror struct {
	db *sql.DB
}

// OpenMirror opens (creating if needed) the mirror database in dir.
func OpenMirror(dir string) (*Mirror, error) {
	db, err := sql.Open("sqlite", filepath.Join(dir, MirrorFileName))
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	// Serialized writes, WAL for readers during verify.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA busy_timeout=5000`} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("mirror pragma: %w", err)
		}
	}
	if _, err := db.Exec(mirrorSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("mirror schema: %w", err)
	}
	return &Mirror{db: db}, nil
}

// Close closes the underlying database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// Insert appends a report row chained to the previous record's hash. It
// sets r.PrevHash to the chained value as a side effect so callers can
// report it.
func (m *Mirror) Insert(r *model.Report) error {
	prev, err := m.LastRecordHash()
	if err != nil {
		return err
	}
	r.PrevHash = prev

	recordHash, err := RecordHash(r)
	if err != nil {
		return err
	}

	astDelta, err := json.Marshal(r.ASTDelta)
	if err != nil {
		return fmt.Errorf("mirror insert: %w", err)
	}
	explanation, err := json.Marshal(r.Explanation)
	if err != nil {
		return fmt.Errorf("mirror insert: %w", err)
	}
	explErrors, err := json.Marshal(r.ExplanationErrors)
	if err != nil {
		return fmt.Errorf("mirror insert: %w", err)
	}
	assessment, err := json.Marshal(r.Assessment)
	if err != nil {
		return fmt.Errorf("mirror insert: %w", err)
	}

	_, err = m.db.Exec(`INSERT INTO reports (
		id, ts, file, author, intent,
		old_sha256, new_sha256, diff_sha256, ast_delta, diff,
		explanation, explanation_errors, assessment,
		signature, pubkey_id, sig_alg, key_id, nonce, tag,
		prev_hash, record_hash
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID(), r.TS, r.File, r.Author, r.Intent,
		r.OldSHA256, r.NewSHA256, r.DiffSHA256, string(astDelta), r.Diff,
		string(explanation), string(explErrors), string(assessment),
		r.Signature, r.PubkeyID, r.SigAlg, r.KeyID, r.Nonce, r.Tag,
		prev, recordHash,
	)
	if err != nil {
		return fmt.Errorf("mirror insert: %w", err)
	}
	return nil
}

// LastRecordHash returns the record hash of the newest row, or "" for an
// empty mirror.
func (m *Mirror) LastRecordHash() (string, error) {
	var h string
	err := m.db.QueryRow(`SELECT record_hash FROM reports ORDER BY rowid DESC LIMIT 1`).Scan(&h)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("mirror last hash: %w", err)
	}
	return h, nil
}

// ChainRow is one link of the mirror's hash chain in insertion order.
type ChainRow struct {
	ID         string
	PrevHash   string
	RecordHash string
}

// Chain returns all rows in insertion order for chain verification.
func (m *Mirror) Chain() ([]ChainRow, error) {
	rows, err := m.db.Query(`SELECT id, prev_hash, record_hash FROM reports ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("mirror chain: %w", err)
	}
	defer rows.Close()

	var out []ChainRow
	for rows.Next() {
		var row ChainRow
		if err := rows.Scan(&row.ID, &row.PrevHash, &row.RecordHash); err != nil {
			return nil, fmt.Errorf("mirror chain: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// History returns report IDs for a file (or all files when file is empty),
// newest first, capped at limit when limit > 0.
func (m *Mirror) History(file string, limit int) ([]string, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id FROM reports`)
	args := []any{}
	if file != "" {
		sb.WriteString(` WHERE file = ?`)
		args = append(args, file)
	}
	sb.WriteString(` ORDER BY rowid DESC`)
	if limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := m.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("mirror history: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("mirror history: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
