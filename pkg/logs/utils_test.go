package logs

import (
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestLoggerPrefixesOwner(t *testing.T) {
	logger := NewLogger("Owner")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)
	logger.Info("hello")
	if !strings.Contains(buf.String(), "[Owner] hello") {
		t.Errorf("missing owner prefix in %q", buf.String())
	}
}

func TestSetDefaultLevel(t *testing.T) {
	defer func() { defaultLevel = log.InfoLevel }()

	if err := SetDefaultLevel("debug"); err != nil {
		t.Fatal(err)
	}
	if lvl := NewLogger("x").GetLevel(); lvl != log.DebugLevel {
		t.Errorf("level = %s", lvl)
	}
	if err := SetDefaultLevel("loud"); err == nil {
		t.Error("expected unknown level to fail")
	}
}
