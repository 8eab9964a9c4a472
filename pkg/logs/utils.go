package logs

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
)

// formatter prefixes every entry with the component that owns the logger.
type formatter struct {
	owner string
	lf    log.Formatter
}

// Format satisfies the log.Formatter interface.
func (f *formatter) Format(e *log.Entry) ([]byte, error) {
	e.Message = fmt.Sprintf("[%s] %s", f.owner, e.Message)
	return f.lf.Format(e)
}

func NewLogger(owner string) *log.Logger {
	logger := log.New()
	logger.SetFormatter(&formatter{
		owner: owner,
		lf: &log.TextFormatter{
			ForceColors:     true,
			FullTimestamp:   true,
			TimestampFormat: time.StampMilli,
		},
	})
	logger.SetLevel(defaultLevel)
	return logger
}

// Discard returns a logger that writes nowhere, for tests and library users
// that do not want output.
func Discard(owner string) *log.Logger {
	logger := NewLogger(owner)
	logger.SetOutput(io.Discard)
	return logger
}

var defaultLevel = log.InfoLevel

// SetDefaultLevel changes the level of loggers created from now on.
// Unknown level names are rejected.
func SetDefaultLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	defaultLevel = lvl
	return nil
}
