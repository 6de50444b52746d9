package badgerstore

import (
	"fmt"
	"log/slog"
	"strings"
)

// badgerLogger routes Badger's printf-style logging into slog. Badger's
// info chatter is demoted to debug.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(msg(format, args))
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(msg(format, args))
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug(msg(format, args))
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(msg(format, args))
}

func msg(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
