package tabular

// streaming.go cleans CSV byte streams before parsing without buffering the
// whole file:
//
//   - a leading UTF-8 BOM (0xEF 0xBB 0xBF), common in files saved by Excel on
//     Windows, is dropped
//   - invalid UTF-8 bytes are replaced with U+FFFD

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SanitizingReader wraps an io.Reader, skipping a UTF-8 BOM and replacing
// invalid UTF-8 sequences on the fly.
type SanitizingReader struct {
	br         *bufio.Reader
	bomChecked bool
	pending    []byte // encoded bytes that did not fit into the last Read
	err        error
}

// NewSanitizingReader creates a new sanitizing reader.
func NewSanitizingReader(r io.Reader) *SanitizingReader {
	return &SanitizingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (s *SanitizingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if !s.bomChecked {
		s.bomChecked = true
		if head, err := s.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = s.br.Discard(len(utf8BOM))
		}
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	var buf [utf8.UTFMax]byte
	for n < len(p) && s.err == nil {
		// Do not block on the underlying reader once we have data to return.
		if n > 0 && s.br.Buffered() == 0 {
			break
		}

		r, _, err := s.br.ReadRune()
		if err != nil {
			s.err = err
			break
		}

		// ReadRune reports invalid bytes as (RuneError, 1); encoding RuneError
		// yields the replacement character.
		w := utf8.EncodeRune(buf[:], r)
		m := copy(p[n:], buf[:w])
		n += m
		if m < w {
			s.pending = append(s.pending, buf[m:w]...)
		}
	}

	if n > 0 {
		return n, nil
	}
	return 0, s.err
}
