/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package logsink provides the daemon's structured logger (§4.K) and the
// fan-out mechanism (§4.J) that duplicates log records to a rotating file
// and, while a command is in flight, to the operator connection that asked
// for it.
package logsink

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006/01/02 15:04:05.000"))
}

// NewFileCore builds the zapcore.Core that writes to the rotating log file
// named by path. An empty path writes to stderr instead, matching the
// teacher's own "no log file configured" behavior.
func NewFileCore(path string, maxSizeMB, maxBackups int) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = timeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	var sink zapcore.WriteSyncer
	if path == "" {
		sink = zapcore.Lock(os.Stderr)
	} else {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     0,
			Compress:   false,
		})
	}

	return zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(zap.DebugLevel))
}

// New builds a plain logger whose every record goes to fileCore, with no
// tee; poweragent logs through it. The daemon instead wraps its file core in
// a TeeSink (see daemonlife.NewDaemon), and per-connection loggers wrap that
// logger's core in a TeeSink whose peer is the connection itself.
func New(fileCore zapcore.Core) *zap.SugaredLogger {
	return zap.New(fileCore, zap.AddCaller()).Sugar()
}
