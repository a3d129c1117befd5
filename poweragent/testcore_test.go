/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package main

import (
	"bytes"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newTestCore builds a minimal zapcore.Core that writes plain messages into
// buf, so tests can assert on what an Agent logged without a real log file.
func newTestCore(buf *bytes.Buffer) zapcore.Core {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	sink := zapcore.AddSync(buf)
	return zapcore.NewCore(encoder, sink, zap.DebugLevel)
}
