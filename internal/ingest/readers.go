package ingest

// readers.go holds the streaming transforms applied to raw input before CSV
// parsing:
//
//   - bomSkipper drops a leading UTF-8 BOM (0xEF 0xBB 0xBF) left by
//     spreadsheet exports.
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?' and counts them.
//
// Both run in constant memory.

import (
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type bomSkipper struct {
	r       io.Reader
	checked bool
	head    []byte
}

func newBOMSkipper(r io.Reader) *bomSkipper {
	return &bomSkipper{r: r}
}

func (b *bomSkipper) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		buf := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
		if n == len(utf8BOM) && bytes.Equal(buf, utf8BOM) {
			n = 0
		}
		b.head = buf[:n]
	}

	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}
	return b.r.Read(p)
}

type utf8Sanitizer struct {
	r        io.Reader
	pending  []byte // Incomplete sequence carried into the next Read
	out      []byte // Sanitized bytes that did not fit the caller's buffer
	outErr   error  // Returned once out is drained
	replaced int
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

// Replaced returns the number of bytes replaced so far.
func (s *utf8Sanitizer) Replaced() int {
	return s.replaced
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(s.out) > 0 {
		n := copy(p, s.out)
		s.out = s.out[n:]
		if len(s.out) > 0 {
			return n, nil
		}
		err := s.outErr
		s.outErr = nil
		return n, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	// p cannot hold the carried sequence plus new input.
	if len(p) <= len(s.pending) {
		var buf [2 * utf8.UTFMax]byte
		n, err := s.Read(buf[:])
		m := copy(p, buf[:n])
		if m < n {
			s.out = append(s.out[:0], buf[m:n]...)
			s.outErr = err
			return m, nil
		}
		return m, err
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:copy(s.pending, s.pending[offset:])]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the usable length. Unless
// atEOF, a trailing partial rune is held back for the next call.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		c := data[read]
		if c < utf8.RuneSelf {
			data[write] = c
			write++
			read++
			continue
		}

		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			s.replaced++
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}
