package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zakazai/ulin-grid/internal/types"
)

// JSONStorage is an InMemoryStorage that rewrites a JSON file after every
// successful mutation.
type JSONStorage struct {
	*InMemoryStorage
	filePath string
}

// NewJSONStorage creates a new JSON file storage
func NewJSONStorage(filePath string) (*JSONStorage, error) {
	storage := &JSONStorage{
		InMemoryStorage: NewInMemoryStorage(),
		filePath:        filePath,
	}
	storage.log = types.GlobalLogger.WithField("store", "json")
	storage.persist = storage.save

	// Create directory if it doesn't exist
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := storage.save(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := storage.load(); err != nil {
		return nil, err
	}

	return storage, nil
}

type jsonTable struct {
	Table types.Table `json:"table"`
	Rows  []types.Row `json:"rows"`
}

type jsonDatabase struct {
	Workspaces []types.Workspace `json:"workspaces"`
	Tables     []jsonTable       `json:"tables"`
}

// save writes the whole database. The caller holds the lock.
func (s *JSONStorage) save() error {
	jsonDB := &jsonDatabase{
		Workspaces: make([]types.Workspace, 0, len(s.db.Workspaces)),
		Tables:     make([]jsonTable, 0, len(s.db.Tables)),
	}
	for _, ws := range s.db.Workspaces {
		jsonDB.Workspaces = append(jsonDB.Workspaces, *ws)
	}
	sortWorkspaces(jsonDB.Workspaces)
	for _, t := range s.db.Tables {
		jsonDB.Tables = append(jsonDB.Tables, jsonTable{Table: t.Table, Rows: t.Rows})
	}

	data, err := json.MarshalIndent(jsonDB, "", "  ")
	if err != nil {
		return err
	}

	// Write to a sibling file first so a crash never leaves a torn database.
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return types.TransientIO("write database file", err)
	}
	return types.TransientIO("replace database file", os.Rename(tmp, s.filePath))
}

func (s *JSONStorage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return types.TransientIO("read database file", err)
	}

	db := newDatabase()
	if len(data) == 0 {
		// Empty file, initialize with empty database
		s.db = db
		return nil
	}

	var jsonDB jsonDatabase
	if err := json.Unmarshal(data, &jsonDB); err != nil {
		return fmt.Errorf("decode %s: %w", s.filePath, err)
	}

	for i := range jsonDB.Workspaces {
		ws := jsonDB.Workspaces[i]
		db.Workspaces[ws.ID] = &ws
	}
	for _, jt := range jsonDB.Tables {
		if err := checkDense(jt.Table, jt.Rows); err != nil {
			return fmt.Errorf("load %s: %w", s.filePath, err)
		}
		jt.Table.RowCount = 0
		db.Tables[jt.Table.ID] = &tableData{Table: jt.Table, Rows: jt.Rows}
	}

	s.db = db
	s.log.Debug("loaded %d workspaces and %d tables from %s", len(db.Workspaces), len(db.Tables), s.filePath)
	return nil
}

// checkDense verifies one cell per column on every row, typed as its column.
func checkDense(t types.Table, rows []types.Row) error {
	for i, r := range rows {
		if i > 0 && rows[i-1].Order >= r.Order {
			return fmt.Errorf("table %s: rows out of order at %d", t.ID, r.Order)
		}
		if len(r.Cells) != len(t.Columns) {
			return fmt.Errorf("table %s: row %d has %d cells for %d columns", t.ID, r.Order, len(r.Cells), len(t.Columns))
		}
		for _, c := range r.Cells {
			col, ok := t.Columns.Lookup(c.ColumnID)
			if !ok {
				return fmt.Errorf("table %s: row %d has a cell for unknown column %s", t.ID, r.Order, c.ColumnID)
			}
			if c.Value.Type() != col.Type {
				return fmt.Errorf("table %s: cell %s is %s in a %s column", t.ID, c.ID, c.Value.Type(), col.Type)
			}
		}
	}
	return nil
}

func (s *JSONStorage) Close() error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.save()
}
