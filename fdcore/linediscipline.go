package fdcore

import "github.com/Ziheng-Qi/Operating-System-Kernel/vkdefs"

// LineDiscipline_t is io_term's equivalent: input/output CRLF normalization
// plus a line editor, wrapping a raw character device (spec 3:
// "line-discipline wrapper (CRLF normalization + line editor)"). The state
// machines are ported in behavior, not in code, from
// original_source/src/kern/io.c's documented ioterm_read/ioterm_write
// comments.
type LineDiscipline_t struct {
	raw   Io_i
	crIn  bool
	crOut bool
}

// NewLineDiscipline wraps raw, an out-of-scope UART/console collaborator
// satisfying Io_i, with CRLF normalization and line editing.
func NewLineDiscipline(raw Io_i) *LineDiscipline_t {
	return &LineDiscipline_t{raw: raw}
}

func (t *LineDiscipline_t) Close() { t.raw.Close() }

// Read fills buf from the raw device and fixes up line endings in place:
// \r\n and lone \r both collapse to \n, lone \n passes through. Always
// returns at least one byte unless the raw device itself returns 0/error.
func (t *LineDiscipline_t) Read(buf []byte) (int, vkdefs.Err_t) {
	for {
		cnt, errno := t.raw.Read(buf)
		if errno != 0 {
			return 0, errno
		}
		if cnt == 0 {
			return 0, 0
		}

		w := 0
		for r := 0; r < cnt; r++ {
			ch := buf[r]
			if t.crIn {
				switch ch {
				case '\r':
					buf[w] = '\n'
					w++
				case '\n':
					t.crIn = false
				default:
					t.crIn = false
					buf[w] = ch
					w++
				}
			} else if ch == '\r' {
				t.crIn = true
				buf[w] = '\n'
				w++
			} else {
				buf[w] = ch
				w++
			}
		}

		// A buffer containing only a lone \n right after a \r is fully
		// absorbed (cr_in consumes it); read again rather than return
		// zero bytes to the caller.
		if w > 0 {
			return w, 0
		}
	}
}

// putc writes a single raw byte to the backing device, bypassing
// normalization -- used for the bytes this layer itself injects (the
// second half of an expanded \r\n, bell, backspace sequences).
func (t *LineDiscipline_t) putc(raw Io_i, c byte) vkdefs.Err_t {
	_, errno := Iowrite(raw, []byte{c})
	return errno
}

// Write normalizes outgoing line endings: lone \r or \n become \r\n,
// existing \r\n sequences pass through unchanged.
func (t *LineDiscipline_t) Write(buf []byte) (int, vkdefs.Err_t) {
	acc := 0
	wp := 0

	for rp := 0; rp < len(buf); rp++ {
		ch := buf[rp]
		switch ch {
		case '\r':
			if rp+1 < len(buf) && buf[rp+1] == '\n' {
				t.crOut = false
				rp++
				continue
			}
			n, errno := Iowrite(t.raw, buf[wp:rp+1])
			acc += n
			if errno != 0 {
				return acc, errno
			}
			wp = rp + 1
			if errno := t.putc(t.raw, '\n'); errno != 0 {
				return acc, errno
			}
			t.crOut = true

		case '\n':
			if t.crOut {
				t.crOut = false
				wp = rp + 1
				continue
			}
			if wp != rp {
				n, errno := Iowrite(t.raw, buf[wp:rp])
				acc += n
				if errno != 0 {
					return acc, errno
				}
				wp = rp
			}
			if errno := t.putc(t.raw, '\r'); errno != 0 {
				return acc, errno
			}
			t.crOut = false

		default:
			t.crOut = false
		}
	}

	if wp != len(buf) {
		n, errno := Iowrite(t.raw, buf[wp:])
		acc += n
		if errno != 0 {
			return acc, errno
		}
	}
	return acc, 0
}

// Ctl passes everything through to the backing device except SETPOS, which
// is unsupported because this layer tracks per-character CRLF state that a
// seek would invalidate.
func (t *LineDiscipline_t) Ctl(cmd int, arg int) (int, vkdefs.Err_t) {
	if cmd == vkdefs.IOCTL_SETPOS {
		return 0, vkdefs.ENOTSUP
	}
	return t.raw.Ctl(cmd, arg)
}

const (
	chBackspace = '\b'
	chDelete    = 0177
	chBell      = '\a'
	chEscape    = 033
)

// GetLine implements ioterm_getsn: reads already-normalized characters one
// at a time, applying backspace/delete editing and echoing to the raw
// device, until a newline terminates the line. Returns the line without
// its trailing newline.
func (t *LineDiscipline_t) GetLine(max int) (string, vkdefs.Err_t) {
	buf := make([]byte, 0, max)
	one := make([]byte, 1)

	for {
		n, errno := t.Read(one)
		if errno != 0 {
			return "", errno
		}
		if n == 0 {
			continue
		}
		ch := one[0]

		switch ch {
		case chEscape:
			t.crIn = false

		case '\r', '\n':
			if errno := t.putc(t.raw, '\r'); errno != 0 {
				return "", errno
			}
			if errno := t.putc(t.raw, '\n'); errno != 0 {
				return "", errno
			}
			return string(buf), 0

		case chBackspace, chDelete:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				for _, c := range []byte{'\b', ' ', '\b'} {
					if errno := t.putc(t.raw, c); errno != 0 {
						return "", errno
					}
				}
			} else if errno := t.putc(t.raw, chBell); errno != 0 {
				return "", errno
			}

		default:
			if len(buf) < max {
				if errno := t.putc(t.raw, ch); errno != 0 {
					return "", errno
				}
				buf = append(buf, ch)
			} else if errno := t.putc(t.raw, chBell); errno != 0 {
				return "", errno
			}
		}
	}
}
