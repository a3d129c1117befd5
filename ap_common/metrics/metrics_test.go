/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStateTransitionsCounts(t *testing.T) {
	StateTransitions.Reset()
	StateTransitions.WithLabelValues("bravo", "ON").Inc()
	StateTransitions.WithLabelValues("bravo", "ON").Inc()
	StateTransitions.WithLabelValues("bravo", "OFF").Inc()

	require.Equal(t, float64(2), testutil.ToFloat64(StateTransitions.WithLabelValues("bravo", "ON")))
	require.Equal(t, float64(1), testutil.ToFloat64(StateTransitions.WithLabelValues("bravo", "OFF")))
}

func TestPingRoundTripsCounts(t *testing.T) {
	PingRoundTrips.Reset()
	PingRoundTrips.WithLabelValues("bravo").Inc()

	require.Equal(t, float64(1), testutil.ToFloat64(PingRoundTrips.WithLabelValues("bravo")))
}
