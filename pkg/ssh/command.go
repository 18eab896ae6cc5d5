// Copyright (C) 2023, Lux Partners Limited, All rights reserved.
// See the file LICENSE for licensing terms.
package ssh

import (
	"regexp"
	"strings"
)

var safeWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Command is a remote command built from an argument list. Each argument is
// quoted when rendered, so names and paths never reach the remote shell
// unescaped.
type Command struct {
	Name string
	Args []string
	// Dir, when set, is entered before running the command.
	Dir  string
	Sudo bool

	raw string
}

func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Shell wraps an operator supplied command line. It is sent verbatim.
func Shell(line string) Command {
	return Command{raw: line}
}

// Cat reads a remote file.
func Cat(path string) Command {
	return NewCommand("cat", path)
}

func (c Command) InDir(dir string) Command {
	c.Dir = dir
	return c
}

func (c Command) AsRoot() Command {
	c.Sudo = true
	return c
}

// String renders the command for a POSIX shell.
func (c Command) String() string {
	if c.raw != "" {
		return c.raw
	}
	words := make([]string, 0, len(c.Args)+2)
	if c.Sudo {
		words = append(words, "sudo")
	}
	words = append(words, Quote(c.Name))
	for _, a := range c.Args {
		words = append(words, Quote(a))
	}
	line := strings.Join(words, " ")
	if c.Dir != "" {
		line = "cd " + Quote(c.Dir) + " && " + line
	}
	return line
}

// Quote returns s quoted for a POSIX shell.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if safeWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
