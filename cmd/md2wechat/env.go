package main

import (
	"io"
	"os"
	"runtime"
	"time"

	md2wechat "github.com/alnah/go-md2wechat"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment and converter collaborators.
type Environment struct {
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string
	GOOS    string

	// Options are appended to every converter the CLI builds, after the
	// ones derived from config and flags. Tests inject mock rasterizers
	// and clipboards here.
	Options []md2wechat.Option
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
		GOOS:    runtime.GOOS,
	}
}
