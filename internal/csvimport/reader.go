package csvimport

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"
)

// ErrTooLarge is returned by a LimitReader once the byte limit is passed.
var ErrTooLarge = errors.New("file exceeds maximum size")

// cleanReader strips a leading UTF-8 byte-order mark and replaces invalid
// UTF-8 sequences with U+FFFD, so that spreadsheet exports with stray
// Windows-1252 bytes still parse.
type cleanReader struct {
	br         *bufio.Reader
	bomChecked bool
	pending    []byte // encoded rune that did not fit the caller's buffer
}

// NewCleanReader wraps r with BOM stripping and UTF-8 repair.
func NewCleanReader(r io.Reader) io.Reader {
	return &cleanReader{br: bufio.NewReader(r)}
}

func (c *cleanReader) Read(p []byte) (int, error) {
	if !c.bomChecked {
		c.bomChecked = true
		if b, err := c.br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
			_, _ = c.br.Discard(3)
		}
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]

	var buf [utf8.UTFMax]byte
	for n < len(p) {
		r, _, err := c.br.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		// Invalid bytes come back as utf8.RuneError and are re-encoded as U+FFFD.
		w := utf8.EncodeRune(buf[:], r)
		copied := copy(p[n:], buf[:w])
		n += copied
		if copied < w {
			c.pending = append(c.pending[:0], buf[copied:w]...)
			break
		}
	}
	return n, nil
}

// LimitReader returns a reader that fails with ErrTooLarge after max bytes.
// A max of zero or less disables the limit.
func LimitReader(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return &limitReader{r: r, remaining: max}
}

type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrTooLarge
	}
	// Read one byte past the limit so an exactly-full file is accepted.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
