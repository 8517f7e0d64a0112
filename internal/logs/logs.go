package logs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Level is shared by every logger built here.
var Level = new(slog.LevelVar)

// SetLevel parses a level name such as "debug" or "warn".
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return errors.Wrapf(err, "log level %q", name)
	}
	Level.Set(l)
	return nil
}

type Options struct {
	// Journal also sends records to the systemd journal when it is reachable.
	Journal bool
}

// New builds a logger that writes text to w and, when running as a
// systemd service or when asked to, to the journal.
func New(w io.Writer, opts Options) *slog.Logger {
	var handlers []slog.Handler

	service := isSystemdService()
	var terminal slog.Handler
	if !service {
		terminal = slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level})
		handlers = append(handlers, terminal)
	}

	if opts.Journal || service {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			Level:        Level,
			ReplaceGroup: toJournalKey,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if terminal != nil {
				record := slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable", 0)
				record.Add("error", err)
				_ = terminal.Handle(context.Background(), record)
			}
		} else {
			handlers = append(handlers, journal)
		}
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

func toJournalKey(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(s))
}

func isSystemdService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}
