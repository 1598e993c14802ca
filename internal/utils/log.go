package utils

import (
	"os"

	"github.com/kairos-io/kairos-sdk/types"
	"github.com/kentos-io/bootward/internal/constants"
	"github.com/rs/zerolog"
)

// Log is the process-wide logger.
var Log zerolog.Logger

func SetLogger(level string) {
	if level == "" {
		level = "info"
	}

	// Set debug level
	if os.Getenv("BOOTWARD_DEBUG") != "" {
		level = "debug"
	}
	_ = os.MkdirAll(constants.LogDir, os.ModeDir|os.ModePerm)

	if parsed, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(parsed)
	}
	Log = types.NewKairosLoggerWithExtraDirs("bootward", level, false, constants.LogDir).Logger
}
