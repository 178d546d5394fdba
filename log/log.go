package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	diagName       = "diagnostics_log.txt"
	transcribeName = "transcribe_log.txt"
	crashName      = "crash_log.txt"
)

var (
	diagLog        zerolog.Logger
	diagWriter     *lumberjack.Logger
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

type PipelineMetrics struct {
	SessionID    string
	Format       string
	AudioS       float64
	PayloadKB    float64
	EncodeMs     float64
	TranscribeMs float64
	RefineMs     float64
	TotalMs      float64
}

func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return absolute(flagPath)
	}
	if envPath := os.Getenv("VOZFLOW_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}
	return defaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// CrashPath is where the runtime writes fatal panics once the caller
// hands it to debug.SetCrashOutput.
func CrashPath() string {
	return filepath.Join(dir, crashName)
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	transcribeFile, err = os.OpenFile(filepath.Join(dir, transcribeName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	diagWriter = &lumberjack.Logger{
		Filename:   filepath.Join(dir, diagName),
		MaxSize:    10,
		MaxBackups: 3,
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagWriter,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	// lumberjack opens lazily; touch the file so it exists right away.
	if _, err := diagWriter.Write(nil); err != nil {
		transcribeFile.Close()
		transcribeFile = nil
		return err
	}

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagWriter != nil {
		diagWriter.Close()
		diagWriter = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func ShortcutRegistered(accel string, fallback bool) {
	if !logReady {
		return
	}
	diagLog.Info().Str("shortcut", accel).Bool("fallback", fallback).Msg("shortcut_registered")
}

func StateChange(sessionID, from, to string) {
	if !logReady {
		return
	}
	diagLog.Info().Str("session", sessionID).Str("from", from).Str("to", to).Msg("state")
}

func Request(op string, status int, connReused bool, ttfb, total time.Duration) {
	if !logReady {
		return
	}
	conn := "new"
	if connReused {
		conn = "reused"
	}
	diagLog.Debug().
		Str("op", op).
		Int("status", status).
		Str("conn", conn).
		Float64("ttfb_ms", float64(ttfb.Milliseconds())).
		Float64("total_ms", float64(total.Milliseconds())).
		Msg("http")
}

func Pipeline(m PipelineMetrics) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", m.SessionID).
		Str("format", m.Format).
		Float64("audio_s", m.AudioS).
		Float64("payload_kb", m.PayloadKB).
		Float64("encode_ms", m.EncodeMs).
		Float64("transcribe_ms", m.TranscribeMs).
		Float64("refine_ms", m.RefineMs).
		Float64("total_ms", m.TotalMs).
		Msg("pipeline")
}

func TranscriptionText(text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if transcribeFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	transcribeFile.WriteString(line)
}

func SessionStart(shortcut, format string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("shortcut", shortcut).
		Str("format", format).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
