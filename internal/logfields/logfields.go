package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyRunState   = "run_state"
	KeyEvent      = "event"
	KeyBranch     = "branch"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPage       = "page"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyPlugin     = "plugin"
	KeyRule       = "rule"
	KeyCommit     = "commit"
	KeySchedule   = "schedule"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func RunState(s string) slog.Attr     { return slog.String(KeyRunState, s) }
func Event(name string) slog.Attr     { return slog.String(KeyEvent, name) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Page(src string) slog.Attr       { return slog.String(KeyPage, src) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Plugin(name string) slog.Attr    { return slog.String(KeyPlugin, name) }
func Rule(name string) slog.Attr      { return slog.String(KeyRule, name) }
func Commit(sha string) slog.Attr     { return slog.String(KeyCommit, sha) }
func Schedule(cron string) slog.Attr  { return slog.String(KeySchedule, cron) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Elapsed reports d under the duration_ms key.
func Elapsed(d time.Duration) slog.Attr { return DurationMS(float64(d.Microseconds()) / 1000) }
