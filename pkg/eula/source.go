package eula

import (
	"bufio"
	"io"
	"strings"
)

// LineSource yields one line of input per call. It returns io.EOF once the
// stream is closed; any other error is treated the same way by the gate.
type LineSource interface {
	ReadLine() (string, error)
}

// ScannerSource reads lines of any length from an io.Reader such as
// os.Stdin.
type ScannerSource struct {
	r *bufio.Reader
}

// NewScannerSource wraps r. Trailing "\n" and "\r\n" are removed from lines.
func NewScannerSource(r io.Reader) *ScannerSource {
	return &ScannerSource{r: bufio.NewReader(r)}
}

// ReadLine returns the next line, or io.EOF when r is exhausted. A final
// line without a newline is still returned.
func (s *ScannerSource) ReadLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSuffix(line, "\r"), nil
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
