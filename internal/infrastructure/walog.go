package infrastructure

import (
	log "github.com/sirupsen/logrus"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// logrusWALogger bridges whatsmeow's logger interface onto logrus so the
// transport logs land in the same stream as everything else.
type logrusWALogger struct {
	entry *log.Entry
}

func newWALogger(module string) waLog.Logger {
	return &logrusWALogger{entry: log.WithField("module", module)}
}

func (l *logrusWALogger) Warnf(msg string, args ...interface{})  { l.entry.Warnf(msg, args...) }
func (l *logrusWALogger) Errorf(msg string, args ...interface{}) { l.entry.Errorf(msg, args...) }
func (l *logrusWALogger) Infof(msg string, args ...interface{})  { l.entry.Infof(msg, args...) }
func (l *logrusWALogger) Debugf(msg string, args ...interface{}) { l.entry.Debugf(msg, args...) }

func (l *logrusWALogger) Sub(module string) waLog.Logger {
	return &logrusWALogger{entry: l.entry.WithField("submodule", module)}
}
