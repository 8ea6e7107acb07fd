package logginglevel

import "go.uber.org/zap"

//nolint:gochecknoglobals // shared between the root command and the logger
var Level = zap.NewAtomicLevelAt(zap.InfoLevel)
