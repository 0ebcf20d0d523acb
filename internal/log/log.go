// Package log is a thin wrapper around logrus shared by every graphd
// component: the metadata, graph, and storage services all take a
// log.Logger rather than reaching for a global.
package log

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// Fields aliases logrus.Fields.
type Fields = logrus.Fields

// Entry aliases logrus.Entry.
type Entry = logrus.Entry

// Logger is the interface every long-lived graphd component depends on.
type Logger interface {
	Debug(...interface{})
	Debugf(string, ...interface{})
	Info(...interface{})
	Infof(string, ...interface{})
	Warn(...interface{})
	Warnf(string, ...interface{})
	Error(...interface{})
	Errorf(string, ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(Fields) Logger
	WithContext(context.Context) Logger

	SetLevel(string) error
	SetOutput(io.Writer)
	SetJSONFormatter()
}

type logger struct {
	entry *logrus.Entry
}

// New creates a new, independent Logger.
func New() Logger {
	l := logrus.New()
	return logger{entry: logrus.NewEntry(l)}
}

func (l logger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l logger) Debugf(f string, args ...interface{})       { l.entry.Debugf(f, args...) }
func (l logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l logger) Infof(f string, args ...interface{})        { l.entry.Infof(f, args...) }
func (l logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l logger) Warnf(f string, args ...interface{})        { l.entry.Warnf(f, args...) }
func (l logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l logger) Errorf(f string, args ...interface{})       { l.entry.Errorf(f, args...) }

func (l logger) WithField(key string, value interface{}) Logger {
	return logger{l.entry.WithField(key, value)}
}

func (l logger) WithFields(fields Fields) Logger {
	return logger{l.entry.WithFields(fields)}
}

func (l logger) WithContext(ctx context.Context) Logger {
	return logger{l.entry.WithContext(ctx)}
}

func (l logger) SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.entry.Logger.SetLevel(lvl)
	return nil
}

func (l logger) SetOutput(w io.Writer) { l.entry.Logger.SetOutput(w) }

func (l logger) SetJSONFormatter() { l.entry.Logger.SetFormatter(&logrus.JSONFormatter{}) }

var global = New()

// Global returns the process-wide default logger.
func Global() Logger { return global }

// SetGlobal replaces the process-wide default logger, e.g. after config load.
func SetGlobal(l Logger) { global = l }
