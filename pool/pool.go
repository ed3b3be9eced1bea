/*
DESCRIPTION
  pool.go provides a fixed-size pool of reusable frame buffers, keyed by
  pixel dimensions and format, so the pipeline's hot loop can acquire and
  release frame storage without allocating on every iteration.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pool provides a class-keyed pool of reusable frame buffers.
package pool

import (
	"fmt"
	"sync"

	"github.com/ausocean/utils/logging"
)

// PixFmt identifies the pixel layout of a buffer's contents.
type PixFmt int

// Pixel formats the pipeline moves buffers between.
const (
	FmtUnknown PixFmt = iota
	FmtMJPEG          // Compressed, variable length; Buffer.Bytes is valid only up to Buffer.Len.
	FmtYUYV
	FmtRGB24
)

// Class identifies a buffer shape: width, height and pixel format together
// determine the required byte capacity.
type Class struct {
	Width, Height uint32
	Format        PixFmt
}

// Size returns the number of bytes a buffer of this class requires.
// MJPEG has no fixed size; callers of an MJPEG class get a buffer sized to
// a generous upper bound and track actual length themselves via Buffer.Len.
func (c Class) Size() int {
	switch c.Format {
	case FmtRGB24:
		return int(c.Width) * int(c.Height) * 3
	case FmtYUYV:
		return int(c.Width) * int(c.Height) * 2
	case FmtMJPEG:
		// Generous bound; real compressed frames are almost always smaller.
		return int(c.Width) * int(c.Height) * 2
	default:
		return 0
	}
}

// Buffer is a single reusable allocation handed out by a Pool. Bytes is
// sized to the owning class; Len records how much of Bytes holds valid
// frame data for variable-length formats (e.g. MJPEG).
type Buffer struct {
	Bytes []byte
	Len   int
	class Class
	// fallback marks a buffer allocated on pool exhaustion rather than
	// drawn from the class's free list; it is discarded instead of
	// returned on Release.
	fallback bool
}

// Pool owns a bounded set of reusable Buffers per Class. It never
// allocates in steady state: Acquire draws from an idle free list and
// Release returns a Buffer to it. On exhaustion, Acquire allocates a
// one-shot fallback buffer that Release discards rather than recycles,
// so a burst of concurrent holders never blocks the caller.
type Pool struct {
	mu      sync.Mutex
	log     logging.Logger
	perSize int
	free    map[Class][]*Buffer
	// outstanding counts buffers currently held by callers, per class, for
	// the Pool Conservation invariant and for diagnostics.
	outstanding map[Class]int
}

// New returns a Pool that keeps up to perSize idle buffers per class.
func New(perSize int, log logging.Logger) *Pool {
	if perSize <= 0 {
		perSize = 4
	}
	return &Pool{
		log:         log,
		perSize:     perSize,
		free:        make(map[Class][]*Buffer),
		outstanding: make(map[Class]int),
	}
}

// Acquire returns an idle Buffer for class c, allocating a fresh one if
// none are idle and the class has not yet reached perSize outstanding
// buffers tracked by the pool; beyond that it still returns a buffer, but
// a fallback one that Release will not recycle.
func (p *Pool) Acquire(c Class) *Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if bufs := p.free[c]; len(bufs) > 0 {
		b := bufs[len(bufs)-1]
		p.free[c] = bufs[:len(bufs)-1]
		p.outstanding[c]++
		b.Len = 0
		return b
	}

	size := c.Size()
	b := &Buffer{Bytes: make([]byte, size), class: c}
	if p.outstanding[c] >= p.perSize {
		b.fallback = true
		p.log.Debug(pkg+"pool exhausted, allocating fallback buffer", "class", fmt.Sprintf("%+v", c))
	}
	p.outstanding[c]++
	return b
}

// Release returns b to its class's idle list, unless b was a fallback
// allocation made on exhaustion, in which case it is simply dropped for
// the garbage collector.
func (p *Pool) Release(b *Buffer) {
	if b == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.outstanding[b.class]--
	if b.fallback {
		return
	}
	if len(p.free[b.class]) >= p.perSize {
		return
	}
	p.free[b.class] = append(p.free[b.class], b)
}

// Outstanding returns the number of buffers of class c currently held by
// callers (acquired but not yet released). Used by tests to check the
// Pool Conservation invariant.
func (p *Pool) Outstanding(c Class) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding[c]
}

const pkg = "pool: "
