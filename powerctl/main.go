/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Command powerctl is the operator CLI of §4.G/§6: it dials the daemon's
// listening socket, sends exactly one USER-channel command, and prints
// whatever LOG/USER frames come back before disconnecting. Its table
// rendering is grounded on ap-ctl/ctl.go's printLine/printNode/printState.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fleetpower/ap_common/aputil"
)

const pname = "powerctl"

// usageError marks an argument-validation failure, as opposed to a runtime
// one, so main can map it to the "99, usage help shown" exit code of §6
// instead of the general "1, local error" code.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func exactArgs(n int, want string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError{fmt.Sprintf("%s: expected %s", cmd.Use, want)}
		}
		return nil
	}
}

func rangeArgs(min, max int, want string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			return usageError{fmt.Sprintf("%s: expected %s", cmd.Use, want)}
		}
		return nil
	}
}

func minArgs(n int, want string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usageError{fmt.Sprintf("%s: expected %s", cmd.Use, want)}
		}
		return nil
	}
}

func newRootCmd() *cobra.Command {
	var addr, portFile string

	root := &cobra.Command{
		Use:           pname,
		Short:         "operator CLI for powerd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", "",
		"powerd address (host:port); if empty, resolved from --port-file")
	root.PersistentFlags().StringVar(&portFile, "port-file", "/var/run/powerd.port",
		"path powerd recorded its listening port in (APROOT-relative), used when --addr is empty")

	// The same APROOT expansion powerd applies when writing the file.
	resolve := func() (string, error) { return resolveAddr(addr, aputil.ExpandDirPath(portFile)) }

	daemonCmd := &cobra.Command{
		Use:           "daemon {stop|restart}",
		Short:         "stop or restart the daemon",
		Args:          exactArgs(1, "stop or restart"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve()
			if err != nil {
				// A stopped daemon has removed its port file.
				if args[0] == "stop" && errors.Is(err, os.ErrNotExist) {
					return nil
				}
				return err
			}
			return runCommand(a, "daemon", args)
		},
	}
	root.AddCommand(daemonCmd)

	var machineReadable bool
	statusCmd := &cobra.Command{
		Use:           "status [names...]",
		Short:         "query machine status",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve()
			if err != nil {
				return err
			}
			reqArgs := args
			if machineReadable {
				reqArgs = append([]string{"--machine-readable"}, args...)
			}
			return runCommand(a, "status", reqArgs)
		},
	}
	statusCmd.Flags().BoolVar(&machineReadable, "machine-readable", false,
		"print exactly one state-name token per machine, not a table")
	root.AddCommand(statusCmd)

	startCmd := &cobra.Command{
		Use:           "start name [os]",
		Short:         "power on a machine, optionally into a chosen OS",
		Args:          rangeArgs(1, 2, "a machine name and an optional OS"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve()
			if err != nil {
				return err
			}
			return runCommand(a, "start", args)
		},
	}
	root.AddCommand(startCmd)

	restartCmd := &cobra.Command{
		Use:           "restart name [os]",
		Short:         "reboot a machine, optionally into a chosen OS",
		Args:          rangeArgs(1, 2, "a machine name and an optional OS"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve()
			if err != nil {
				return err
			}
			return runCommand(a, "restart", args)
		},
	}
	root.AddCommand(restartCmd)

	stopCmd := &cobra.Command{
		Use:           "stop name",
		Short:         "gracefully shut a machine down",
		Args:          exactArgs(1, "a machine name"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve()
			if err != nil {
				return err
			}
			return runCommand(a, "stop", args)
		},
	}
	root.AddCommand(stopCmd)

	killCmd := &cobra.Command{
		Use:           "kill name",
		Short:         "cut a machine's power unconditionally",
		Args:          exactArgs(1, "a machine name"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve()
			if err != nil {
				return err
			}
			return runCommand(a, "kill", args)
		},
	}
	root.AddCommand(killCmd)

	commandCmd := &cobra.Command{
		Use:           "command name argv...",
		Short:         "run an arbitrary command on a machine's agent",
		Args:          minArgs(2, "a machine name and an argument vector"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve()
			if err != nil {
				return err
			}
			return runCommand(a, "command", args)
		},
	}
	root.AddCommand(commandCmd)

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "list configured machines",
		Args:          exactArgs(0, "no arguments"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve()
			if err != nil {
				return err
			}
			return runCommand(a, "list", nil)
		},
	}
	root.AddCommand(listCmd)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", pname, err)
		var uerr usageError
		if errors.As(err, &uerr) {
			os.Exit(99)
		}
		os.Exit(1)
	}
}
