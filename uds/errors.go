// Copyright (c) Subtrace, Inc.
// SPDX-License-Identifier: BSD-3-Clause

package uds

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by the data path and dispatcher entry points to
// mean "don't reply yet" (MINIX's EDONTREPLY): the caller either parks the
// request (blocking) or converts it to EAGAIN/EINPROGRESS (non-blocking).
// It is never itself delivered to an application.
var ErrWouldBlock = errors.New("uds: would block")

// Error kinds the core returns directly, represented as syscall.Errno via
// golang.org/x/sys/unix rather than a bespoke enum.
var (
	ErrNoSuchDevice    = unix.ENXIO   // minor out of range
	ErrInvalidArgument = unix.EINVAL  // slot not INUSE
	ErrNoFile          = unix.ENFILE  // no free slot on open
	ErrOutOfMemory     = unix.ENOMEM  // ring allocation failed
	ErrBrokenPipe      = unix.EPIPE   // half shut down, or write to closed reader
	ErrNotConnected    = unix.ENOTCONN
	ErrConnectionReset = unix.ECONNRESET
	ErrMessageSize     = unix.EMSGSIZE
	ErrNoEntry         = unix.ENOENT
	ErrInProgress      = unix.EINPROGRESS
	ErrAgain           = unix.EAGAIN
	ErrInterrupted     = unix.EINTR
	ErrConnRefused     = unix.ECONNREFUSED
	ErrAddrInUse       = unix.EADDRINUSE
	ErrBadFileDesc     = unix.EBADF
)

// invariant panics on a breach of a core invariant: reader blocked on a
// full buffer, writer blocked on an empty buffer, unknown suspension kind,
// listening-state inconsistency. These denote a bug inside the core, not
// a reportable application error.
func invariant(format string, args ...any) {
	panic(fmt.Errorf("uds: invariant violated: "+format, args...))
}
