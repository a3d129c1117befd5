/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package aputil

import (
	"bufio"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
)

// Child tracks a launched subprocess and, optionally, relays its combined
// stdout/stderr to a logger a line at a time. The daemon restart procedure
// (§4.I) uses this to relay its successor's early output back into its own
// log, and therefore to whichever operator asked for the restart. The
// parent never waits for the successor; it hands off and exits.
type Child struct {
	Cmd     *exec.Cmd
	Process *os.Process

	logger *log.Logger
	prefix string
}

func handlePipe(c *Child, r io.ReadCloser) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if c.logger != nil {
			c.logger.Printf("%s%s\n", c.prefix, scanner.Text())
		}
	}
}

// Start launches the prepared child process.
func (c *Child) Start() error {
	err := c.Cmd.Start()
	if err == nil {
		c.Process = c.Cmd.Process
	}
	return err
}

// LogOutputTo causes the child's stdout/stderr to be captured and relayed,
// one line at a time, to w with prefix prepended to each line.
func (c *Child) LogOutputTo(prefix string, w io.Writer) {
	c.logger = log.New(w, "", 0)
	c.prefix = prefix

	if stdout, err := c.Cmd.StdoutPipe(); err == nil {
		go handlePipe(c, stdout)
	}
	if stderr, err := c.Cmd.StderrPipe(); err == nil {
		go handlePipe(c, stderr)
	}
}

// NewChild instantiates the tracking structure for a not-yet-started child
// process.
func NewChild(execpath string, args ...string) *Child {
	return &Child{Cmd: exec.Command(execpath, args...)}
}

// ExpandDirPath translates a leading-'/' path into one relative to APROOT,
// leaves already-relative paths unchanged, and turns a '//'-prefixed path
// into an absolute one by dropping one leading slash. The port file and log
// file configuration both accept paths in this form.
func ExpandDirPath(path string) string {
	if !strings.HasPrefix(path, "/") {
		return path
	}
	if strings.HasPrefix(path, "//") {
		return strings.TrimPrefix(path, "/")
	}

	root := os.Getenv("APROOT")
	if root == "" {
		root = "./"
	}
	return root + path
}
