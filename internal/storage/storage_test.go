package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/storage"
)

func ptr(v int64) *int64 { return &v }

func TestBaseDirHonoursEnv(t *testing.T) {
	t.Setenv(storage.HomeEnv, "/tmp/stt-test-home")
	got, err := storage.BaseDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/stt-test-home" {
		t.Errorf("BaseDir = %q, want %q", got, "/tmp/stt-test-home")
	}
}

func TestLoadSnapshotNotExist(t *testing.T) {
	base := t.TempDir()
	snap, found, err := storage.LoadSnapshot(base)
	if err != nil {
		t.Fatalf("LoadSnapshot on missing file: %v", err)
	}
	if found {
		t.Error("found = true, want false")
	}
	if snap.CurrentSession != nil {
		t.Error("expected no session")
	}
	if snap.DayRecords == nil {
		t.Error("expected non-nil day_records map")
	}
}

func TestSaveSnapshotAndLoadSnapshot(t *testing.T) {
	base := t.TempDir()
	snap := model.Snapshot{
		CurrentSession: &model.SessionSnapshot{
			DayKey:                   "2026-02-27",
			CurrentLapStartTimestamp: 1000,
			AccumulatedSeconds:       600,
			IsPaused:                 true,
			PauseOrigin:              model.PauseSystem,
		},
		DayRecords: map[string]model.DayRecord{
			"2026-02-27": {
				Date:          "2026-02-27",
				TotalDuration: 600,
				IsActive:      true,
				Laps: []model.Lap{
					{StartTime: 400, EndTime: ptr(1000), Duration: ptr(600)},
					{StartTime: 1000},
				},
			},
		},
	}

	if err := storage.SaveSnapshot(base, snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, found, err := storage.LoadSnapshot(base)
	if err != nil {
		t.Fatalf("LoadSnapshot after save: %v", err)
	}
	if !found {
		t.Fatal("found = false after save")
	}
	if loaded.CurrentSession == nil || loaded.CurrentSession.AccumulatedSeconds != 600 {
		t.Fatalf("session = %+v, want accumulated 600", loaded.CurrentSession)
	}
	if loaded.CurrentSession.PauseOrigin != model.PauseSystem {
		t.Errorf("origin = %q, want system", loaded.CurrentSession.PauseOrigin)
	}
	rec := loaded.DayRecords["2026-02-27"]
	if len(rec.Laps) != 2 || !rec.Laps[1].Open() {
		t.Errorf("laps = %+v, want closed + open", rec.Laps)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("data dir has %d entries, want only state.json", len(entries))
	}
}

func TestLoadSnapshotCorrupt(t *testing.T) {
	base := t.TempDir()
	path := storage.StatePath(base)
	if err := os.WriteFile(path, []byte("{bad json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := storage.LoadSnapshot(base)
	if !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
	if _, err2 := os.Stat(path + ".corrupt"); os.IsNotExist(err2) {
		t.Error("expected backup file to exist after corrupt JSON")
	}
	if _, err2 := os.Stat(path); !os.IsNotExist(err2) {
		t.Error("expected corrupt file to be moved aside")
	}
}

func TestLoadDayNotExist(t *testing.T) {
	base := t.TempDir()
	rec, found, err := storage.LoadDay(base, "2026-02-27")
	if err != nil {
		t.Fatalf("LoadDay on missing file: %v", err)
	}
	if found {
		t.Error("found = true, want false")
	}
	if rec.Date != "2026-02-27" {
		t.Errorf("LoadDay date = %q, want %q", rec.Date, "2026-02-27")
	}
	if len(rec.Laps) != 0 {
		t.Errorf("LoadDay laps = %d, want 0", len(rec.Laps))
	}
}

func TestSaveDayAndLoadDay(t *testing.T) {
	base := t.TempDir()
	rec := model.DayRecord{
		Date:          "2026-02-27",
		TotalDuration: 90,
		Laps:          []model.Lap{{StartTime: 10, EndTime: ptr(100), Duration: ptr(90)}},
	}
	if err := storage.SaveDay(base, rec); err != nil {
		t.Fatalf("SaveDay: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "2026", "02", "27.json")); err != nil {
		t.Fatalf("archive file missing: %v", err)
	}

	loaded, found, err := storage.LoadDay(base, "2026-02-27")
	if err != nil || !found {
		t.Fatalf("LoadDay after save: found=%v err=%v", found, err)
	}
	if loaded.TotalDuration != 90 || len(loaded.Laps) != 1 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoadDayInvalidKey(t *testing.T) {
	if _, _, err := storage.LoadDay(t.TempDir(), "27.02.2026"); err == nil {
		t.Fatal("expected error for invalid day key")
	}
}

func TestLoadDayCorrupt(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "2026", "02", "27.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{bad json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := storage.LoadDay(base, "2026-02-27")
	if err == nil {
		t.Fatal("expected error for corrupt JSON, got nil")
	}
	if _, err2 := os.Stat(path + ".corrupt"); os.IsNotExist(err2) {
		t.Error("expected backup file to exist after corrupt JSON")
	}
}
