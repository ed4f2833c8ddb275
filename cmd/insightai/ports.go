package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// stdinConfirmer asks on the terminal; only y or yes counts as consent
type stdinConfirmer struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func newConfirmer(in io.Reader, out io.Writer, yes bool) *stdinConfirmer {
	return &stdinConfirmer{in: bufio.NewReader(in), out: out, yes: yes}
}

func (c *stdinConfirmer) Confirm(prompt string) bool {
	if c.yes {
		return true
	}
	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// stdoutClipboard prints the copied text; terminals have no shared clipboard to write to
type stdoutClipboard struct {
	out io.Writer
}

func (c stdoutClipboard) Copy(text string) error {
	_, err := fmt.Fprintln(c.out, text)
	return err
}

// terminalNavigator prints where the browser client would go next
type terminalNavigator struct {
	out       io.Writer
	publicURL string
}

func (n terminalNavigator) Navigate(route string) {
	fmt.Fprintf(n.out, "Open %s%s\n", n.publicURL, route)
}
