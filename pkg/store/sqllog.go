package store

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SQLLogConfig selects where executed statements are echoed.
type SQLLogConfig struct {
	// Path is "stdout", "stderr" or a file name. Empty disables the log.
	Path string `koanf:"path"`
	// Append keeps an existing file instead of truncating it.
	Append bool `koanf:"append"`
}

// NewSQLLogger returns a console logger writing to the configured
// destination and a function closing it.
func NewSQLLogger(cfg SQLLogConfig) (*zap.Logger, func() error, error) {
	var (
		ws      zapcore.WriteSyncer
		closeFn = func() error { return nil }
	)
	switch cfg.Path {
	case "":
		return zap.NewNop(), closeFn, nil
	case "stdout":
		ws = zapcore.Lock(os.Stdout)
	case "stderr":
		ws = zapcore.Lock(os.Stderr)
	default:
		flags := os.O_CREATE | os.O_WRONLY
		if cfg.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(cfg.Path, flags, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open sql log: %w", err)
		}
		ws = zapcore.Lock(f)
		closeFn = f.Close
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.LevelKey = ""
	enc.CallerKey = ""
	enc.NameKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), ws, zapcore.DebugLevel)
	return zap.New(core), closeFn, nil
}
