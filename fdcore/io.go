// Package fdcore implements the generic I/O object interface and its
// concrete variants: an in-memory literal file, a line-discipline wrapper,
// a character-device stand-in, and a block-device-backed file. Grounded on
// original_source/src/kern/io.c (io_lit_*, ioterm_*) and on the generic
// capability-set shape of biscuit's fd/fdops packages, reworked around a
// single Io_i interface rather than biscuit's larger Fd_t/Fdops_i surface
// (this core's §4.6 names exactly four capabilities).
package fdcore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// Io_i is the generic I/O object capability set (spec 4.6): {close, read,
// write, ctl}. Every descriptor-table slot holds one of these.
type Io_i interface {
	Close()
	Read(buf []byte) (int, vkdefs.Err_t)
	Write(buf []byte) (int, vkdefs.Err_t)
	Ctl(cmd int, arg int) (int, vkdefs.Err_t)
}

// IoreadFull loops Read until buf is full, an error occurs, or a zero
// byte-count signals EOF/no-progress (spec 4.6: ioread_full).
func IoreadFull(io Io_i, buf []byte) (int, vkdefs.Err_t) {
	total := 0
	for total < len(buf) {
		n, errno := io.Read(buf[total:])
		if errno != 0 {
			return total, errno
		}
		if n == 0 {
			break
		}
		total += n
	}
	return total, 0
}

// Iowrite loops Write until buf has been fully transferred, an error
// occurs, or a zero byte-count signals no progress (spec 4.6: iowrite).
func Iowrite(io Io_i, buf []byte) (int, vkdefs.Err_t) {
	total := 0
	for total < len(buf) {
		n, errno := io.Write(buf[total:])
		if errno != 0 {
			return total, errno
		}
		if n == 0 {
			break
		}
		total += n
	}
	return total, 0
}
