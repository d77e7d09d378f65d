package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	Trace(args ...interface{})
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields logrus.Fields) Logger
	WithError(err error) Logger

	SetLevel(level logrus.Level)
}

type logger struct {
	*logrus.Entry
}

type ctxKey struct{}

func New() Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return &logger{logrus.NewEntry(l)}
}

// Discard returns a logger that writes nothing.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logger{logrus.NewEntry(l)}
}

func (l *logger) WithField(key string, value interface{}) Logger {
	return &logger{l.Entry.WithField(key, value)}
}

func (l *logger) WithFields(fields logrus.Fields) Logger {
	return &logger{l.Entry.WithFields(fields)}
}

func (l *logger) WithError(err error) Logger {
	return &logger{l.Entry.WithError(err)}
}

func (l *logger) SetLevel(level logrus.Level) {
	l.Logger.SetLevel(level)
}

func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func LoggerFromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return New()
}
