package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/selfgate-project/selfgate/pkg/fsutil"
	"github.com/selfgate-project/selfgate/pkg/logging"
	"github.com/selfgate-project/selfgate/pkg/model"
)

// Store persists completed reports: signed JSON documents in the change-log
// directory, plus optional rows in the relational mirror.
type Store struct {
	dir    string
	signer *Signer
	mirror *Mirror
	log    *logging.Logger
}

// NewStore opens a report store rooted at dir. signer may be nil (reports
// go out unsigned). When useSQLite is set the mirror database is opened
// eagerly; a mirror that fails to open disables mirroring with a warning
// rather than failing the store.
func NewStore(dir string, signer *Signer, useSQLite bool, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create change log dir: %w", err)
	}

	s := &Store{dir: dir, signer: signer, log: log}
	if useSQLite {
		m, err := OpenMirror(dir)
		if err != nil {
			log.Warn("relational mirror unavailable", "error", err.Error())
		} else {
			s.mirror = m
		}
	}
	return s, nil
}

// Dir returns the change-log directory.
func (s *Store) Dir() string { return s.dir }

// Signer returns the configured signer, or nil.
func (s *Store) Signer() *Signer { return s.signer }

// Mirror returns the relational mirror, or nil when mirroring is off.
func (s *Store) Mirror() *Mirror { return s.mirror }

// Close releases the mirror database if open.
func (s *Store) Close() error {
	if s.mirror == nil {
		return nil
	}
	err := s.mirror.Close()
	s.mirror = nil
	return err
}

// Save signs the report (when a signer is configured), writes the JSON
// document atomically, then mirrors it. A mirror failure is logged and
// swallowed; the document write is the commit point.
func (s *Store) Save(r *model.Report) (string, error) {
	if s.signer != nil {
		if err := s.signer.Sign(r); err != nil {
			return "", err
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(s.dir, r.ID()+".json")
	if err := fsutil.AtomicWrite(path, data, 0o644); err != nil {
		return "", fmt.Errorf("persist report: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.Insert(r); err != nil {
			s.log.Warn("report mirror insert failed", "report_id", r.ID(), "error", err.Error())
		}
	}
	return path, nil
}

// Load reads a report document by ID.
func (s *Store) Load(id string) (*model.Report, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &r, nil
}

// List returns all report IDs in the store, lexically sorted. Report IDs
// start with the Unix timestamp, so lexical order is chronological within
// a given timestamp width.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
