/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package daemonlife

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var startedAt = time.Now()

// ServeMetrics mounts /metrics and /healthz on their own listener, entirely
// separate from the control-protocol socket. Run calls it with
// Config.MetricsAddr before the accept loop starts; addr == "" disables the
// endpoint. The server runs until the process exits; it is not part of the
// ordered shutdown in §4.I because it carries no control operations (it is
// observability, not a second front door).
func ServeMetrics(addr string) {
	if addr == "" {
		return
	}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", healthzHandler)

	go http.ListenAndServe(addr, r)
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok, up " + time.Since(startedAt).Round(time.Second).String()))
}
