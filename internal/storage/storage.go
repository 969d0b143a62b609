package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/timecalc"
)

// ErrCorrupt marks a file that exists but could not be decoded. The file has
// already been moved aside to <path>.corrupt when it is returned.
var ErrCorrupt = errors.New("corrupt data file")

// HomeEnv overrides the data directory.
const HomeEnv = "STT_HOME"

// StateFile is the snapshot file name inside the data directory.
const StateFile = "state.json"

// BaseDir returns the root data directory ($STT_HOME or ~/.stt).
func BaseDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".stt"), nil
}

// StatePath returns the snapshot path inside base.
func StatePath(base string) string {
	return filepath.Join(base, StateFile)
}

// dayFilePath returns the archive path for the given UTC day.
func dayFilePath(base string, t time.Time) string {
	t = t.UTC()
	return filepath.Join(base, t.Format("2006"), t.Format("01"), t.Format("02")+".json")
}

// LoadSnapshot reads state.json. A missing file yields an empty snapshot and
// found == false.
func LoadSnapshot(base string) (snap model.Snapshot, found bool, err error) {
	found, err = readJSON(StatePath(base), &snap)
	if err != nil || !found {
		return model.Snapshot{DayRecords: map[string]model.DayRecord{}}, found, err
	}
	if snap.DayRecords == nil {
		snap.DayRecords = map[string]model.DayRecord{}
	}
	return snap, true, nil
}

// SaveSnapshot atomically replaces state.json.
func SaveSnapshot(base string, snap model.Snapshot) error {
	if snap.DayRecords == nil {
		snap.DayRecords = map[string]model.DayRecord{}
	}
	return writeJSON(StatePath(base), snap)
}

// LoadDay loads the archived record for a day key. found is false when the
// day was never archived.
func LoadDay(base, dayKey string) (rec model.DayRecord, found bool, err error) {
	t, err := timecalc.ParseDayKey(dayKey)
	if err != nil {
		return model.DayRecord{}, false, err
	}
	found, err = readJSON(dayFilePath(base, t), &rec)
	if err != nil || !found {
		return model.DayRecord{Date: dayKey, Laps: []model.Lap{}}, found, err
	}
	if rec.Laps == nil {
		rec.Laps = []model.Lap{}
	}
	return rec, true, nil
}

// SaveDay atomically writes the archive file of rec.Date.
func SaveDay(base string, rec model.DayRecord) error {
	t, err := timecalc.ParseDayKey(rec.Date)
	if err != nil {
		return err
	}
	return writeJSON(dayFilePath(base, t), rec)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		// Back up corrupt file and abort.
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return false, fmt.Errorf("%w: %s (backed up to %s): %w", ErrCorrupt, path, backupPath, err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	return atomicWrite(path, data, 0o600)
}

// atomicWrite writes data to a temporary file in the target directory, syncs
// it and renames it over path.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".stt-tmp-*")
	if err != nil {
		return fmt.Errorf("storage error creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("storage error chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage error syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage error closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	success = true
	return nil
}
