/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package machine holds the static machine/OS catalogue (§4.C) and the
// mutable per-machine runtime state (§4.E) that the state machine operates
// on. Loading the catalogue is grounded on ap.mcp's mcp.json loader
// (daemon.go: loadDefinitions), adapted from a daemon-process catalogue to
// the Machine/OperatingSystem schema this spec requires.
package machine

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
)

// NoOS is the sentinel OS name meaning "no operating system requested or
// known". It is never a valid entry in an OperatingSystem list.
const NoOS = ""

// OperatingSystem describes one bootable OS on a machine (§3).
type OperatingSystem struct {
	Name                 string   `json:"name"`
	Aliases              []string `json:"aliases,omitempty"`
	PartitionIdentifier  string   `json:"partitionIdentifier"`
	CmdBootToSelf        []string `json:"cmdBootToSelf"`
	CmdBootToBootManager []string `json:"cmdBootToBootManager"`
}

// Machine is the immutable, configuration-derived description of one
// fleet member (§3).
type Machine struct {
	CanonicalName    string            `json:"canonicalName"`
	Aliases          []string          `json:"aliases,omitempty"`
	PowerBitMask     uint8             `json:"powerBitMask"`
	OperatingSystems []OperatingSystem `json:"operatingSystems"`
	BootManagerName  string            `json:"bootManagerName,omitempty"`
}

// MonitorsPower reports whether this machine's power-sense bit is wired
// (invariant 4: powerBitMask == 0 disables sense-driven transitions).
func (m *Machine) MonitorsPower() bool {
	return m.PowerBitMask != 0
}

// OSByName resolves a name or alias to one of the machine's OperatingSystems.
func (m *Machine) OSByName(name string) (OperatingSystem, bool) {
	for _, os := range m.OperatingSystems {
		if os.Name == name {
			return os, true
		}
		for _, a := range os.Aliases {
			if a == name {
				return os, true
			}
		}
	}
	return OperatingSystem{}, false
}

// OSByPartition resolves the partition identifier an agent reports on
// connect (§6) to one of the machine's OperatingSystems.
func (m *Machine) OSByPartition(partition string) (OperatingSystem, bool) {
	for _, os := range m.OperatingSystems {
		if os.PartitionIdentifier == partition {
			return os, true
		}
	}
	return OperatingSystem{}, false
}

// BootManagerOS returns the machine's designated boot-manager OS, if it has
// one (legacy single-boot machines may not).
func (m *Machine) BootManagerOS() (OperatingSystem, bool) {
	if m.BootManagerName == "" {
		return OperatingSystem{}, false
	}
	return m.OSByName(m.BootManagerName)
}

// Registry is the static, load-once catalogue of configured machines,
// indexed by every name and alias that resolves to them.
type Registry struct {
	byName map[string]*Machine
	all    []*Machine
}

// Load reads the machine registry from a JSON file: a top-level array of
// Machine records. This file is the authoritative external input named (but
// left out of scope) by spec §9; its exact provenance is not this daemon's
// concern, only that it round-trips into the schema above.
func Load(path string) (*Registry, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading machine registry %s: %w", path, err)
	}

	var machines []*Machine
	if err := json.Unmarshal(data, &machines); err != nil {
		return nil, fmt.Errorf("parsing machine registry %s: %w", path, err)
	}

	return newRegistry(machines)
}

func newRegistry(machines []*Machine) (*Registry, error) {
	reg := &Registry{byName: make(map[string]*Machine)}

	seenBits := make(map[uint8]string)
	for _, m := range machines {
		if m.CanonicalName == "" {
			return nil, fmt.Errorf("machine entry with no canonicalName")
		}
		if m.PowerBitMask != 0 {
			if other, ok := seenBits[m.PowerBitMask]; ok {
				return nil, fmt.Errorf("machines %s and %s share power bit mask 0x%02x",
					other, m.CanonicalName, m.PowerBitMask)
			}
			seenBits[m.PowerBitMask] = m.CanonicalName
		}

		names := append([]string{m.CanonicalName}, m.Aliases...)
		for _, n := range names {
			if _, dup := reg.byName[n]; dup {
				return nil, fmt.Errorf("name %q resolves to more than one machine", n)
			}
			reg.byName[n] = m
		}
		reg.all = append(reg.all, m)
	}

	return reg, nil
}

// Lookup resolves a canonical name or alias to its Machine.
func (r *Registry) Lookup(name string) (*Machine, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// All returns every configured machine, in registry order.
func (r *Registry) All() []*Machine {
	return r.all
}
