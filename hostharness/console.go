// Package hostharness plays the out-of-scope collaborators spec.md
// section 1 places outside the core -- UART, virtio-block, the boot
// sequence -- so the core packages can be exercised against a real
// terminal and a real file rather than in-memory fakes. Grounded on
// biscuit's kernel/main.go boot sequence (detect devices, open the init
// binary, jump to user mode) adapted to a hosted process: there is no
// real interrupt controller or disk controller to drive, so this
// package's job is entirely "be a faithful stand-in fdcore/vkabi can't
// tell apart from the real thing."
package hostharness

import (
	"os"

	"golang.org/x/term"
)

// Console is the UART stand-in: the controlling terminal put into raw
// mode so fdcore.LineDiscipline_t's own CRLF/editing state machine -- not
// the host terminal driver's -- is what actually processes keystrokes.
// Grounded on golang.org/x/term (the examples pack's one terminal
// raw-mode precedent, vendored as the predecessor x/crypto/ssh/terminal
// package in CongLeSolutionX-go_community).
type Console struct {
	in    *os.File
	out   *os.File
	state *term.State
}

// NewConsole puts in into raw mode, if in is a terminal, and returns a
// Console ready to be wrapped by fdcore.NewCharDevice. Callers not attached
// to a real terminal (tests, piped input) get a Console that reads in and
// writes out as-is, with nothing to restore: term.MakeRaw is only called
// when in is a terminal, and an error from it is returned.
func NewConsole(in, out *os.File) (*Console, error) {
	c := &Console{in: in, out: out}
	if term.IsTerminal(int(in.Fd())) {
		state, err := term.MakeRaw(int(in.Fd()))
		if err != nil {
			return nil, err
		}
		c.state = state
	}
	return c, nil
}

// Restore puts the terminal back into its original mode. Safe to call on
// a Console that was never actually raw (a no-op).
func (c *Console) Restore() error {
	if c.state == nil {
		return nil
	}
	return term.Restore(int(c.in.Fd()), c.state)
}

func (c *Console) Read(p []byte) (int, error) {
	return c.in.Read(p)
}

func (c *Console) Write(p []byte) (int, error) {
	return c.out.Write(p)
}
