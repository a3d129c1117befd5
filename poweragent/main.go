/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Command poweragent is the companion agent of FULL COMPONENT LIST item L:
// it runs on a target machine, dials the daemon, and carries out the
// shutdown/command/restart instructions the daemon sends it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fleetpower/ap_common/logsink"
)

const pname = "poweragent"

func newRootCmd() *cobra.Command {
	var (
		addr        string
		machineName string
		partition   string
		logPath     string
	)

	root := &cobra.Command{
		Use:           pname,
		Short:         "companion agent for powerd",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				return fmt.Errorf("--addr is required")
			}
			if machineName == "" {
				return fmt.Errorf("--name is required")
			}

			log := logsink.New(logsink.NewFileCore(logPath, 10, 1))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sig
				cancel()
			}()

			agent := NewAgent(addr, machineName, partition, log)
			agent.Run(ctx)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&addr, "addr", "", "powerd address (host:port)")
	root.PersistentFlags().StringVar(&machineName, "name", "", "this machine's canonicalName in the registry")
	root.PersistentFlags().StringVar(&partition, "partition", "", "this boot's partitionIdentifier, reported to the daemon at connect")
	root.PersistentFlags().StringVar(&logPath, "log", "", "path to this agent's log file; empty logs to stderr")

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", pname, err)
		os.Exit(1)
	}
}
