/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package logsink

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PeerSink is the narrow interface a connection handler exposes so its
// logger can forward LOG frames to the remote peer (§4.J, §4.I). It is
// satisfied by ap_common/conn.Handler; defining it here, rather than
// importing ap_common/conn, keeps logsink free of a dependency on the
// connection layer.
type PeerSink interface {
	SendLog(level, message string)
}

// TeeSink is a zapcore.Core that duplicates every record it sees to a
// PeerSink, on top of whatever the base core already does. This is the
// explicit replacement named in the design notes for the original's pattern
// of re-parenting a logger on the stack at shutdown time: instead of
// swapping the logger, swap the Tee target in and out.
type TeeSink struct {
	mu   sync.RWMutex
	peer PeerSink
}

// NewTeeSink returns a TeeSink with no peer attached; records pass through
// untouched until SetPeer is called.
func NewTeeSink() *TeeSink {
	return &TeeSink{}
}

// SetPeer attaches (or, with nil, detaches) the connection that should
// receive a copy of every subsequent log record -- e.g. the operator
// connection that issued `daemon stop`, for the duration of shutdown.
func (t *TeeSink) SetPeer(peer PeerSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peer = peer
}

// Wrap returns a logger built from base plus this tee, registered as an
// additional core so every record logged through the returned logger is
// also offered to whatever peer is currently attached.
func (t *TeeSink) Wrap(base zapcore.Core) *zap.SugaredLogger {
	core := zapcore.NewTee(base, teeCore{t})
	return zap.New(core, zap.AddCaller()).Sugar()
}

// teeCore adapts TeeSink to zapcore.Core; it never itself decides whether a
// level is enabled, it only forwards to whichever peer is attached right
// now.
type teeCore struct {
	sink *TeeSink
}

func (c teeCore) Enabled(zapcore.Level) bool { return true }

func (c teeCore) With(fields []zapcore.Field) zapcore.Core {
	return c
}

func (c teeCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return ce.AddCore(entry, c)
}

func (c teeCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	c.sink.mu.RLock()
	peer := c.sink.peer
	c.sink.mu.RUnlock()

	if peer != nil {
		peer.SendLog(entry.Level.String(), entry.Message)
	}
	return nil
}

func (c teeCore) Sync() error { return nil }
