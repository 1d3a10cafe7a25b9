package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
	"github.com/zakazai/ulin-grid/internal/types"
)

// SnapshotRow is one cell in long format: a table snapshot file holds one
// record per (row, column).
type SnapshotRow struct {
	TableID     string   `parquet:"name=table_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	TableName   string   `parquet:"name=table_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	RowID       string   `parquet:"name=row_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	RowOrder    int64    `parquet:"name=row_order, type=INT64"`
	ColumnID    string   `parquet:"name=column_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ColumnName  string   `parquet:"name=column_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	ColumnType  string   `parquet:"name=column_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	ColumnOrder int64    `parquet:"name=column_order, type=INT64"`
	CellID      string   `parquet:"name=cell_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	TextValue   *string  `parquet:"name=text_value, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	NumberValue *float64 `parquet:"name=number_value, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// ParquetSnapshot periodically writes every table of a source store to one
// Parquet file per table, for offline analysis and backup.
type ParquetSnapshot struct {
	baseDir      string
	source       Dumper
	mu           sync.Mutex
	syncWorker   *time.Ticker
	syncInterval time.Duration
	stopSync     chan struct{}
	lastSync     time.Time
	log          *types.Logger
}

// NewParquetSnapshot creates a snapshot writer into dataDir.
func NewParquetSnapshot(dataDir string, source Dumper) (*ParquetSnapshot, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &ParquetSnapshot{
		baseDir:      dataDir,
		source:       source,
		syncInterval: 5 * time.Minute, // Default sync interval
		log:          types.GlobalLogger.WithField("component", "snapshot"),
	}, nil
}

// SetSyncInterval sets the interval for automatic syncing. A non-positive
// interval is ignored.
func (s *ParquetSnapshot) SetSyncInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncInterval = interval
	if s.syncWorker != nil {
		s.syncWorker.Reset(interval)
	}
}

// StartSyncWorker starts a background worker that snapshots the source on
// every tick until ctx is done or StopSyncWorker is called.
func (s *ParquetSnapshot) StartSyncWorker(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncWorker != nil {
		return
	}
	if s.syncInterval <= 0 {
		s.syncInterval = 5 * time.Minute
	}

	stop := make(chan struct{})
	ticker := time.NewTicker(s.syncInterval)
	s.stopSync = stop
	s.syncWorker = ticker

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.SyncNow(ctx); err != nil {
					s.log.Warning("parquet snapshot failed: %v", err)
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// StopSyncWorker stops the background sync worker
func (s *ParquetSnapshot) StopSyncWorker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopSync != nil {
		close(s.stopSync)
		s.stopSync = nil
	}
	s.syncWorker = nil
}

// SyncNow writes a snapshot of every table. A table that fails is logged and
// skipped; the first such error is returned after all tables are attempted.
func (s *ParquetSnapshot) SyncNow(ctx context.Context) error {
	dumps, err := s.source.DumpTables(ctx)
	if err != nil {
		return fmt.Errorf("dump tables: %w", err)
	}

	var firstErr error
	for _, d := range dumps {
		if err := s.writeParquetFile(d); err != nil {
			s.log.Warning("failed to write parquet file for table %s: %v", d.Table.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.mu.Lock()
	s.lastSync = time.Now()
	s.mu.Unlock()
	s.log.Debug("snapshotted %d tables to %s", len(dumps), s.baseDir)
	return firstErr
}

// GetLastSyncTime returns when the last snapshot pass finished.
func (s *ParquetSnapshot) GetLastSyncTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

func (s *ParquetSnapshot) path(tableID string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s.parquet", tableID))
}

func (s *ParquetSnapshot) writeParquetFile(d TableDump) error {
	filePath := s.path(d.Table.ID)
	if len(d.Rows) == 0 || len(d.Table.Columns) == 0 {
		// Nothing to write; drop any stale snapshot.
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	tmp := filePath + ".tmp"
	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return err
	}

	pw, err := writer.NewParquetWriter(fw, new(SnapshotRow), 4)
	if err != nil {
		fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range d.Rows {
		for _, c := range row.Cells {
			col, ok := d.Table.Columns.Lookup(c.ColumnID)
			if !ok {
				continue
			}
			text, number := c.Value.Slots()
			rec := &SnapshotRow{
				TableID:     d.Table.ID,
				TableName:   d.Table.Name,
				RowID:       row.ID,
				RowOrder:    int64(row.Order),
				ColumnID:    col.ID,
				ColumnName:  col.Name,
				ColumnType:  string(col.Type),
				ColumnOrder: int64(col.Order),
				CellID:      c.ID,
				TextValue:   text,
				NumberValue: number,
			}
			if err := pw.Write(rec); err != nil {
				fw.Close()
				return err
			}
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}

// ReadTable loads a table snapshot back. A table that was never
// snapshotted yields an empty dump.
func (s *ParquetSnapshot) ReadTable(tableID string) (TableDump, error) {
	dump := TableDump{Table: types.Table{ID: tableID}}
	filePath := s.path(tableID)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return dump, nil
	}

	fr, err := local.NewLocalFileReader(filePath)
	if err != nil {
		return dump, fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(SnapshotRow), 4)
	if err != nil {
		return dump, fmt.Errorf("failed to create Parquet reader: %w", err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	records := make([]SnapshotRow, numRows)
	if err := pr.Read(&records); err != nil {
		return dump, fmt.Errorf("failed to read Parquet rows: %w", err)
	}

	return assembleDump(tableID, records), nil
}

// assembleDump rebuilds rows and columns from long-format records.
func assembleDump(tableID string, records []SnapshotRow) TableDump {
	dump := TableDump{Table: types.Table{ID: tableID}}
	cols := make(map[string]types.Column)
	rows := make(map[string]*types.Row)
	for _, rec := range records {
		if rec.TableID != tableID {
			continue
		}
		dump.Table.Name = rec.TableName
		col, ok := cols[rec.ColumnID]
		if !ok {
			col = types.Column{
				ID:      rec.ColumnID,
				TableID: tableID,
				Name:    rec.ColumnName,
				Type:    types.ColumnType(rec.ColumnType),
				Order:   int(rec.ColumnOrder),
			}
			cols[rec.ColumnID] = col
		}
		r, ok := rows[rec.RowID]
		if !ok {
			r = &types.Row{ID: rec.RowID, TableID: tableID, Order: int(rec.RowOrder)}
			rows[rec.RowID] = r
		}
		r.Cells = append(r.Cells, types.Cell{
			ID:       rec.CellID,
			RowID:    rec.RowID,
			ColumnID: rec.ColumnID,
			Value:    types.FromSlots(col.Type, rec.TextValue, rec.NumberValue),
		})
	}

	for _, c := range cols {
		dump.Table.Columns = append(dump.Table.Columns, c)
	}
	dump.Table.Columns = dump.Table.Columns.Sorted()
	for _, r := range rows {
		sort.Slice(r.Cells, func(i, j int) bool {
			return cols[r.Cells[i].ColumnID].Order < cols[r.Cells[j].ColumnID].Order
		})
		dump.Rows = append(dump.Rows, *r)
	}
	sort.Slice(dump.Rows, func(i, j int) bool { return dump.Rows[i].Order < dump.Rows[j].Order })
	dump.Table.RowCount = len(dump.Rows)
	return dump
}
