package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

func ptr(v int64) *int64 { return &v }

// 2026-02-27 09:00:00 UTC
const lapsStart = int64(1772182800)

func sampleLaps() []model.Lap {
	return []model.Lap{
		{StartTime: lapsStart, EndTime: ptr(lapsStart + 5400), Duration: ptr(5400)},
		{StartTime: lapsStart + 6000},
	}
}

func TestCsvEscape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"with space", "with space"},
		{"with,comma", `"with,comma"`},
		{`with"quote`, `"with""quote"`},
		{"with\nnewline", "\"with\nnewline\""},
		{"", ""},
	}
	for _, tt := range tests {
		got := csvEscape(tt.input)
		if got != tt.want {
			t.Errorf("csvEscape(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWriteLapsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := writeLaps(&buf, "csv", "2026-02-27", sampleLaps()); err != nil {
		t.Fatal(err)
	}
	want := "date,lap,start,end,duration_seconds\n" +
		"2026-02-27,1,2026-02-27T09:00:00Z,2026-02-27T10:30:00Z,5400\n" +
		"2026-02-27,2,2026-02-27T10:40:00Z,,\n"
	if buf.String() != want {
		t.Errorf("csv output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteLapsMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := writeLaps(&buf, "md", "2026-02-27", sampleLaps()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"2026-02-27\n", "#1", "(1h 30m)", "ongoing", "Total: 1h 30m"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printLaps(&buf, "2026-02-27", nil)
	if buf.String() != "No laps found.\n" {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestWriteLapsStructured(t *testing.T) {
	var buf bytes.Buffer
	if err := writeLaps(&buf, "json", "2026-02-27", sampleLaps()); err != nil {
		t.Fatal(err)
	}
	var fromJSON []model.Lap
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatal(err)
	}
	if len(fromJSON) != 2 || fromJSON[1].EndTime != nil {
		t.Errorf("json laps = %+v", fromJSON)
	}

	buf.Reset()
	if err := writeLaps(&buf, "yaml", "2026-02-27", sampleLaps()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "start_time: 1772182800") {
		t.Errorf("yaml output:\n%s", buf.String())
	}
	var fromYAML []model.Lap
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if len(fromYAML) != 2 || *fromYAML[0].Duration != 5400 {
		t.Errorf("yaml laps = %+v", fromYAML)
	}
}

func TestWriteLapsUnknownFormat(t *testing.T) {
	if err := writeLaps(&bytes.Buffer{}, "xml", "2026-02-27", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLapsDay(t *testing.T) {
	afterMidnight := time.Date(2026, 2, 28, 0, 30, 0, 0, time.UTC)
	session := &tracker.SessionState{DayKey: "2026-02-27"}

	tests := []struct {
		name    string
		date    string
		session *tracker.SessionState
		want    string
	}{
		{"explicit date", "2026-01-15", session, "2026-01-15"},
		{"session day across midnight", "", session, "2026-02-27"},
		{"no session", "", nil, "2026-02-28"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lapsDay(tt.date, tt.session, afterMidnight); got != tt.want {
				t.Errorf("lapsDay = %q, want %q", got, tt.want)
			}
		})
	}
}
