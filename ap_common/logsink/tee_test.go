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
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type recordingPeer struct {
	levels   []string
	messages []string
}

func (p *recordingPeer) SendLog(level, message string) {
	p.levels = append(p.levels, level)
	p.messages = append(p.messages, message)
}

func TestTeeSinkWithNoPeerDropsRecordsSilently(t *testing.T) {
	tee := NewTeeSink()
	log := tee.Wrap(zapcore.NewNopCore())

	log.Infof("hello")
	log.Sync()
	// no peer attached, nothing to assert beyond "this didn't panic"
}

func TestTeeSinkForwardsToAttachedPeer(t *testing.T) {
	tee := NewTeeSink()
	peer := &recordingPeer{}
	tee.SetPeer(peer)

	log := tee.Wrap(zapcore.NewNopCore())
	log.Infof("shutting down")

	require.Equal(t, []string{"shutting down"}, peer.messages)
	require.Equal(t, []string{"info"}, peer.levels)
}

func TestTeeSinkSetPeerSwapsTarget(t *testing.T) {
	tee := NewTeeSink()
	first := &recordingPeer{}
	second := &recordingPeer{}

	tee.SetPeer(first)
	log := tee.Wrap(zapcore.NewNopCore())
	log.Infof("to first")

	tee.SetPeer(second)
	log.Infof("to second")

	require.Equal(t, []string{"to first"}, first.messages)
	require.Equal(t, []string{"to second"}, second.messages)
}

func TestTeeSinkSetPeerNilDetaches(t *testing.T) {
	tee := NewTeeSink()
	peer := &recordingPeer{}
	tee.SetPeer(peer)

	log := tee.Wrap(zapcore.NewNopCore())
	log.Infof("attached")

	tee.SetPeer(nil)
	log.Infof("detached")

	require.Equal(t, []string{"attached"}, peer.messages)
}
