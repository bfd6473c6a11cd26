package ops

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sabis-tools/sabis/internal/config"
	"github.com/sabis-tools/sabis/internal/db"
	"github.com/sabis-tools/sabis/internal/errors"
)

// maxImportLine bounds one JSONL record; payloads are capped like HTML input.
const maxImportLine = MaxHTMLBytes

// ImportInput contains parameters for the ImportSnapshots operation.
type ImportInput struct {
	Path string // required, an export written by ExportSnapshots
}

// ImportOutput contains the result of the ImportSnapshots operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one rejected line.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportSnapshots loads an export file back into the snapshot cache in one
// transaction. Snapshots whose id already exists are skipped; malformed
// lines are reported and skipped.
func ImportSnapshots(database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := ValidateImportPath(input.Path, cfg); err != nil {
		return nil, err
	}
	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.SabisError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	tx, err := database.Begin()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := &ImportOutput{Errors: []ImportError{}}
	reject := func(line int, id, code, msg string) {
		out.Errors = append(out.Errors, ImportError{Line: line, ID: id, Code: code, Message: msg})
		out.Skipped++
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)
	line := 0
	for scanner.Scan() {
		line++
		var head ExportHeader
		if err := json.Unmarshal(scanner.Bytes(), &head); err == nil && head.SabisExport {
			continue
		}

		var rec ExportRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			reject(line, "", "PARSE_ERROR", fmt.Sprintf("invalid JSON: %v", err))
			continue
		}
		switch {
		case rec.ID == "":
			reject(line, "", "INVALID_RECORD", "missing id field")
			continue
		case !db.ValidKind(rec.Kind):
			reject(line, rec.ID, "INVALID_RECORD", fmt.Sprintf("unknown kind %q", rec.Kind))
			continue
		case len(rec.Payload) == 0:
			reject(line, rec.ID, "INVALID_RECORD", "missing payload")
			continue
		}

		rec.Snapshot.PayloadJSON = string(rec.Payload)
		written, err := db.InsertSnapshotIfAbsent(tx, &rec.Snapshot)
		if err != nil {
			return nil, err
		}
		if !written {
			reject(line, rec.ID, "ID_COLLISION", "snapshot already exists")
			continue
		}
		out.Imported++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("failed to read %s at line %d: %v", input.Path, line+1, err))
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// ValidateImportPath applies the export directory rules to a file that must already exist.
func ValidateImportPath(path string, cfg *config.Config) error {
	if err := ValidateExportPath(path, cfg); err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errors.NewFileNotFound(path)
	}
	return nil
}
