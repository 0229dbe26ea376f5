// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package buffer is a growable, prependable FIFO byte buffer that
// reads from and writes to nonblocking file descriptors.
//
// A Buffer is a contiguous region with read_index <= write_index <=
// cap. Growth doubles capacity; compaction (sliding the readable
// region to offset 0) is preferred over growth whenever the combined
// prependable and writable space already covers the request. A
// Buffer has a single owner and is never touched concurrently — see
// the package doc of internal/reactor for the single-reactor-goroutine
// rule that makes this safe without a mutex.
//
// ReadFd/WriteFd follow the same nonblocking control-flow vocabulary
// as code.hybscloud.com/iox: a negative return paired with
// ErrWouldBlock or ErrInterrupted means "no progress, retry on the
// next readiness event", not a failure.
package buffer

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/iox"
)

// initialCapacity is the allocation size for a freshly created Buffer,
// matching the original's buffer_create default.
const initialCapacity = 1024

// ErrWouldBlock reports that a read or write made no progress because
// the underlying fd is not currently ready. Re-exported from
// code.hybscloud.com/iox so callers share one nonblocking vocabulary
// across this module's fd-level buffers and the teacher stack's
// message-framing layer.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrInterrupted reports that a read or write was interrupted
// (EINTR) and should simply be retried.
var ErrInterrupted = errors.New("buffer: interrupted")

// Buffer is a growable FIFO byte region.
type Buffer struct {
	data     []byte
	readIdx  int
	writeIdx int
}

// New allocates a Buffer with the given initial capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = initialCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Readable returns the number of bytes available to consume.
func (b *Buffer) Readable() int { return b.writeIdx - b.readIdx }

func (b *Buffer) writable() int { return len(b.data) - b.writeIdx }

func (b *Buffer) prependable() int { return b.readIdx }

// Bytes returns the readable region without copying. The slice is
// only valid until the next mutating call on b.
func (b *Buffer) Bytes() []byte { return b.data[b.readIdx:b.writeIdx] }

func (b *Buffer) grow() {
	newCap := len(b.data) * 2
	if newCap == 0 {
		newCap = initialCapacity
	}
	grown := make([]byte, newCap)
	copy(grown, b.data[:b.writeIdx])
	b.data = grown
}

func (b *Buffer) compact() {
	n := copy(b.data, b.data[b.readIdx:b.writeIdx])
	b.readIdx = 0
	b.writeIdx = n
}

// Append copies src into the buffer, compacting or growing as needed.
// Compaction is chosen over growth whenever prependable+writable
// already covers len(src); otherwise capacity doubles until it fits.
func (b *Buffer) Append(src []byte) {
	need := len(src)
	for {
		if b.writable() >= need {
			break
		}
		if b.prependable()+b.writable() >= need {
			b.compact()
			break
		}
		b.grow()
	}
	b.writeIdx += copy(b.data[b.writeIdx:], src)
}

// Concat appends all of src's readable bytes to b. It does not clear
// src; callers clear src themselves after a successful Concat so that
// half-close drains retain the source data until the copy is known to
// have succeeded.
func (b *Buffer) Concat(src *Buffer) {
	b.Append(src.Bytes())
}

// Consume copies the next n bytes into dst and advances read_index.
// Precondition: n <= Readable().
func (b *Buffer) Consume(dst []byte, n int) {
	copy(dst, b.data[b.readIdx:b.readIdx+n])
	b.readIdx += n
}

// Skip advances read_index by n without copying.
// Precondition: n <= Readable().
func (b *Buffer) Skip(n int) { b.readIdx += n }

// Clear resets both indices to zero without shrinking the backing
// array.
func (b *Buffer) Clear() {
	b.readIdx = 0
	b.writeIdx = 0
}

// ReadFd fills the buffer's tail from fd. It ensures at least one byte
// of writable space by growing first if the buffer is full. Returns
// (n>0, nil) on progress, (0, io.EOF) on orderly close, or (-1, err)
// with err one of ErrInterrupted, ErrWouldBlock, or the raw errno.
func (b *Buffer) ReadFd(fd int) (int, error) {
	if b.writable() == 0 {
		b.grow()
	}
	n, err := unix.Read(fd, b.data[b.writeIdx:])
	if err != nil {
		return -1, translateErrno(err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	b.writeIdx += n
	return n, nil
}

// WriteFd drains the buffer's head to fd. Returns (n>0, nil) on
// progress, (0, nil) when there was nothing to write, or (-1, err)
// with err one of ErrInterrupted, ErrWouldBlock, or the raw errno.
func (b *Buffer) WriteFd(fd int) (int, error) {
	readable := b.Readable()
	if readable == 0 {
		return 0, nil
	}
	n, err := unix.Write(fd, b.data[b.readIdx:b.writeIdx])
	if err != nil {
		return -1, translateErrno(err)
	}
	b.readIdx += n
	return n, nil
}

func translateErrno(err error) error {
	switch {
	case errors.Is(err, unix.EINTR):
		return ErrInterrupted
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
		return ErrWouldBlock
	default:
		return err
	}
}
