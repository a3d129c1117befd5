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
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestExactArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "stop"}
	validate := exactArgs(1, "a machine name")

	require.NoError(t, validate(cmd, []string{"m1"}))

	err := validate(cmd, nil)
	require.Error(t, err)
	var uerr usageError
	require.True(t, errors.As(err, &uerr))

	require.Error(t, validate(cmd, []string{"m1", "m2"}))
}

func TestRangeArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "start"}
	validate := rangeArgs(1, 2, "a machine name and an optional OS")

	require.NoError(t, validate(cmd, []string{"m1"}))
	require.NoError(t, validate(cmd, []string{"m1", "linux"}))
	require.Error(t, validate(cmd, nil))
	require.Error(t, validate(cmd, []string{"m1", "linux", "extra"}))
}

func TestMinArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "command"}
	validate := minArgs(2, "a machine name and an argument vector")

	require.NoError(t, validate(cmd, []string{"m1", "ls"}))
	require.NoError(t, validate(cmd, []string{"m1", "ls", "-la"}))
	require.Error(t, validate(cmd, []string{"m1"}))
}

func TestNewRootCmdWiresAllSubcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"daemon", "status", "start", "restart", "stop", "kill", "command", "list"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		require.True(t, found, "expected subcommand %q", name)
	}
}
