/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Command powerd is the daemon of §4.I: it owns the digital I/O board, the
// per-machine state machines, and the listening socket that operator
// clients and machine agents both dial into.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fleetpower/ap_common/aputil"
	"fleetpower/ap_common/daemonlife"
	"fleetpower/ap_common/powerio"
)

const pname = "powerd"

func newRootCmd() *cobra.Command {
	var (
		listenAddr   string
		portFile     string
		registryPath string
		logPath      string
		logMaxSizeMB int
		logBackups   int
		metricsAddr  string
		device       string
		baud         int
	)

	root := &cobra.Command{
		Use:           pname,
		Short:         "remote power-management daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := openBoard(device, baud)
			if err != nil {
				return fmt.Errorf("%s: %w", pname, err)
			}

			d, err := daemonlife.NewDaemon(daemonlife.Config{
				ListenAddr:   listenAddr,
				PortFile:     aputil.ExpandDirPath(portFile),
				RegistryPath: registryPath,
				LogPath:      aputil.ExpandDirPath(logPath),
				LogMaxSizeMB: logMaxSizeMB,
				LogBackups:   logBackups,
				MetricsAddr:  metricsAddr,
				Board:        board,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", pname, err)
			}

			d.Run()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&listenAddr, "listen", "127.0.0.1:0",
		"address:port the daemon listens on for operator and agent connections")
	root.PersistentFlags().StringVar(&portFile, "port-file", "/var/run/powerd.port",
		"path recording the listening port (single-instance guard, APROOT-relative); empty disables")
	root.PersistentFlags().StringVar(&registryPath, "registry", "/etc/fleetpower/machines.json",
		"path to the machine registry JSON file")
	root.PersistentFlags().StringVar(&logPath, "log", "/var/log/powerd.log",
		"path to the rotating log file (APROOT-relative); empty logs to stderr")
	root.PersistentFlags().IntVar(&logMaxSizeMB, "log-max-size-mb", 10,
		"rotate the log file once it exceeds this size")
	root.PersistentFlags().IntVar(&logBackups, "log-backups", 1,
		"number of rotated log generations to keep")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-listen", "127.0.0.1:9117",
		"address:port for the /metrics and /healthz endpoints; empty disables")
	root.PersistentFlags().StringVar(&device, "device", "sim",
		"power I/O board device path, or \"sim\" for the in-memory simulated board")
	root.PersistentFlags().IntVar(&baud, "baud", 9600, "serial baud rate for --device")

	return root
}

// openBoard resolves the --device flag to a powerio.Board: "sim" (the
// default, so the daemon is runnable without hardware) or a real serial
// device path. A failure here is fatal at startup, per §6's "failure to
// open is fatal" and §7 error kind 3.
func openBoard(device string, baud int) (*powerio.Board, error) {
	if device == "" || device == "sim" {
		return powerio.New(powerio.NewSimulated()), nil
	}

	drv, err := powerio.OpenSerial(device, baud)
	if err != nil {
		return nil, err
	}
	return powerio.New(drv), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
