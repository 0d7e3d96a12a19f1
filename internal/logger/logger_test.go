package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLogger_Defaults(t *testing.T) {
	l := New(Config{Level: "DEBUG", Pretty: true})
	if l == nil {
		t.Fatal("Expected logger to be non-nil")
	}
	if got := l.(*DefaultLogger).Level(); got != zerolog.DebugLevel {
		t.Fatalf("level = %v, want debug", got)
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l := New(Config{Level: "INFO", Path: dir, MaxFileSize: 1, MaxBackupCount: 1})
	dl, ok := l.(*DefaultLogger)
	if !ok {
		t.Fatal("Expected DefaultLogger type")
	}
	if dl.lumberjackLog == nil {
		t.Fatal("Expected lumberjackLog to be initialized")
	}

	l.Info().Msg("hello")
	_ = dl.lumberjackLog.Close()

	data, err := os.ReadFile(filepath.Join(dir, "lifecard.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log output in file")
	}
}

func TestSetLogLevel(t *testing.T) {
	l := New(Config{Level: "DEBUG"}).(*DefaultLogger)

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"TRACE", zerolog.TraceLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{" ERROR ", zerolog.ErrorLevel},
		{"bogus", zerolog.Disabled},
	}
	for _, tt := range tests {
		l.SetLogLevel(tt.in)
		if got := l.Level(); got != tt.want {
			t.Errorf("SetLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMockDiscards(t *testing.T) {
	l := Mock()
	l.Info().Msg("ignored")
	l.Err(os.ErrNotExist).Msg("ignored")
	sub := l.With().Str("module", "test").Logger()
	sub.Debug().Msg("ignored")
}
