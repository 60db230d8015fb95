package logging

import (
	"log/slog"
)

// SetupQuietMode initializes logging for callers that print machine-readable
// output to stdout. Logs go to file only so they never interleave with the
// output being written to stdout.
func SetupQuietMode(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}
