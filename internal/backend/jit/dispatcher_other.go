//go:build !amd64

// Package jit's real dynamic binary translator is amd64-only (spec.md
// §1 Non-goals: "portability of the JIT beyond x86_64 (other hosts
// must fall back to an interpreter backend)"). On every other
// architecture this file supplies a Backend that satisfies the same
// contract and fails loudly at construction time, so a controller can
// always reference jit.New() and let the caller decide to fall back
// to an interpreter/cached backend instead.
package jit

import (
	"errors"

	"github.com/arlobrennan/chip8x/internal/blockcache"
	"github.com/arlobrennan/chip8x/internal/chip8"
)

// ErrUnsupportedHost is returned by New on any non-amd64 host.
var ErrUnsupportedHost = errors.New("jit backend requires amd64; fall back to an interpreter backend")

// Backend is an inert stand-in; New never returns one that works.
type Backend struct{}

// New always fails on non-amd64 hosts.
func New() (*Backend, error) { return nil, ErrUnsupportedHost }

func (*Backend) Name() string { return "jit-unsupported" }

func (*Backend) RunQuantum(*chip8.Machine, *blockcache.Cache, int) (int, error) {
	return 0, ErrUnsupportedHost
}

func (*Backend) StepOne(*chip8.Machine, *blockcache.Cache) error {
	return ErrUnsupportedHost
}

// OnCacheFlush and Close exist only so controller.Controller (which
// calls them unconditionally on the *jit.Backend it holds, not
// through the backend.Backend interface) builds on every
// architecture; neither is ever reached, since New never returns a
// non-nil *Backend here.
func (*Backend) OnCacheFlush() func() { return func() {} }

func (*Backend) Close() error { return nil }
