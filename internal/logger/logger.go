package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Logger writes every line at a fixed level, so call sites keep the
// familiar Printf/Println shape.
type Logger struct {
	entry *logrus.Entry
	level logrus.Level
}

func (l *Logger) Printf(format string, args ...interface{}) {
	l.entry.Logf(l.level, format, args...)
}

func (l *Logger) Println(args ...interface{}) {
	l.entry.Logln(l.level, args...)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

// WithField returns a Logger that adds key=value to every line.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value), level: l.level}
}

var (
	base  = newBase(os.Stdout)
	Info  = &Logger{entry: logrus.NewEntry(base), level: logrus.InfoLevel}
	Error = &Logger{entry: logrus.NewEntry(base), level: logrus.ErrorLevel}
)

func newBase(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	return l
}

// Init initializes the logger to write to both stdout and a file
func Init(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, "dbconsole.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	base.SetOutput(io.MultiWriter(os.Stdout, logFile))
	return nil
}

// SetOutput redirects all loggers, mostly for tests.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}
