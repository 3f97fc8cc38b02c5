// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig is the configuration of the global logger.
type LogConfig struct {
	// Level is the zap level name: debug, info, warn, error, panic, fatal.
	Level string `toml:"level" json:"level"`
	// Format is the encoder kind: console or json.
	Format string `toml:"format" json:"format"`
	// Filename enables rotated file output when non-empty.
	Filename   string `toml:"filename" json:"filename"`
	MaxSize    int    `toml:"max-size" json:"max-size"`
	MaxDays    int    `toml:"max-days" json:"max-days"`
	MaxBackups int    `toml:"max-backups" json:"max-backups"`
}

var globalLogger atomic.Pointer[zap.Logger]

func init() {
	SetupGlobalLogger(LogConfig{Level: "info", Format: "console"})
}

// GetGlobalLogger returns the process-wide logger. It is never nil.
func GetGlobalLogger() *zap.Logger {
	return globalLogger.Load()
}

// SetupGlobalLogger builds a logger from cfg and installs it globally.
func SetupGlobalLogger(cfg LogConfig) *zap.Logger {
	logger := zap.New(zapcore.NewCore(cfg.getEncoder(), cfg.getSyncer(), cfg.getLevel()),
		zap.AddStacktrace(zapcore.FatalLevel),
		zap.AddCaller(),
	)
	globalLogger.Store(logger)
	return logger
}

func (cfg LogConfig) getLevel() zap.AtomicLevel {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}
	return level
}

func (cfg LogConfig) getEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func (cfg LogConfig) getSyncer() zapcore.WriteSyncer {
	if cfg.Filename == "" {
		return zapcore.AddSync(os.Stderr)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxDays,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
	})
}
