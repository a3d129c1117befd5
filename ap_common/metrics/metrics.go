/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package metrics holds the daemon's two Prometheus counters, in a leaf
// package with no dependency on the rest of ap_common: both
// ap_common/statemachine (which produces state transitions) and
// ap_common/conn (which produces ping round trips) increment them directly,
// while ap_common/daemonlife mounts them on the metrics-only HTTP listener.
// Keeping this package dependency-free is what lets statemachine and conn
// both use it without creating an import cycle through daemonlife.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// StateTransitions counts each time a machine's state machine settles on a
// new status, labeled by machine name and the resulting state.
var StateTransitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleetpower_machine_state_transitions_total",
		Help: "Count of per-machine state-machine transitions, labeled by the resulting state.",
	},
	[]string{"machine", "state"},
)

// PingRoundTrips counts each completed PING_REQUEST/PING_ANSWER exchange,
// by machine.
var PingRoundTrips = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleetpower_ping_round_trips_total",
		Help: "Count of completed PING_REQUEST/PING_ANSWER round trips, by machine.",
	},
	[]string{"machine"},
)

func init() {
	prometheus.MustRegister(StateTransitions, PingRoundTrips)
}
