package logfields

import "log/slog"

// Canonical log field names.
const (
	KeyDay        = "day"
	KeyCommand    = "command"
	KeyEvent      = "event"
	KeyTransition = "transition"
	KeyCause      = "cause"
	KeyLap        = "lap"
	KeySeconds    = "seconds"
	KeyOrigin     = "origin"
	KeyPath       = "path"
	KeyJob        = "job"
	KeyAddr       = "addr"
	KeyError      = "error"
)

func Day(key string) slog.Attr        { return slog.String(KeyDay, key) }
func Command(name string) slog.Attr   { return slog.String(KeyCommand, name) }
func Event(name string) slog.Attr     { return slog.String(KeyEvent, name) }
func Transition(k string) slog.Attr   { return slog.String(KeyTransition, k) }
func Cause(c string) slog.Attr        { return slog.String(KeyCause, c) }
func Lap(i int) slog.Attr             { return slog.Int(KeyLap, i) }
func Seconds(s int64) slog.Attr       { return slog.Int64(KeySeconds, s) }
func Origin(o string) slog.Attr       { return slog.String(KeyOrigin, o) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Job(name string) slog.Attr       { return slog.String(KeyJob, name) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
