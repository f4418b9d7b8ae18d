package main

import (
	"github.com/pion/logging"
	"github.com/sirupsen/logrus"
)

// logrusFactory bridges pion/logging onto the daemon's logrus logger.
type logrusFactory struct {
	log *logrus.Logger
}

func (f *logrusFactory) NewLogger(scope string) logging.LeveledLogger {
	return &logrusLeveled{entry: f.log.WithField("scope", scope)}
}

type logrusLeveled struct {
	entry *logrus.Entry
}

func (l *logrusLeveled) Trace(msg string)                          { l.entry.Trace(msg) }
func (l *logrusLeveled) Tracef(format string, args ...interface{}) { l.entry.Tracef(format, args...) }
func (l *logrusLeveled) Debug(msg string)                          { l.entry.Debug(msg) }
func (l *logrusLeveled) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLeveled) Info(msg string)                           { l.entry.Info(msg) }
func (l *logrusLeveled) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLeveled) Warn(msg string)                           { l.entry.Warn(msg) }
func (l *logrusLeveled) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLeveled) Error(msg string)                          { l.entry.Error(msg) }
func (l *logrusLeveled) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
