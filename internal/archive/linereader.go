package archive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	initialLineBufSize = 64 * 1024        // 64KB
	maxLineLen         = 20 * 1024 * 1024 // 20MB
)

// Line is one non-blank line of a JSONL file. Index is the 0-based
// ordinal among non-blank lines only; blank or whitespace-only lines
// never consume an index slot.
type Line struct {
	Index int
	Text  string
}

// ReadLines reads the file at path and returns its non-blank lines
// with contiguous 0-based indices. Each call opens the file fresh and
// holds no handle afterwards. A line that is not valid UTF-8, or that
// exceeds maxLineLen, is a fatal read error for the whole file: a
// silently dropped line would shift every later session index.
func ReadLines(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []Line
	lr := newLineReader(f, maxLineLen)
	for {
		text, ok := lr.next()
		if !ok {
			break
		}
		lines = append(lines, Line{Index: len(lines), Text: text})
	}
	if err := lr.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

// lineReader reads JSONL input line by line, skipping blank lines.
// The buffer starts small and grows on demand up to maxLen.
type lineReader struct {
	r      *bufio.Reader
	maxLen int
	buf    []byte
	err    error
}

func newLineReader(r io.Reader, maxLen int) *lineReader {
	return &lineReader{
		r:      bufio.NewReaderSize(r, initialLineBufSize),
		maxLen: maxLen,
		buf:    make([]byte, 0, initialLineBufSize),
	}
}

// next returns the next non-blank line (without trailing newline or
// carriage return) and true, or ("", false) at EOF or on error. After
// a false return, Err distinguishes EOF from failure.
func (lr *lineReader) next() (string, bool) {
	for {
		line, err := lr.readLine()
		if err != nil {
			if err != io.EOF {
				lr.err = err
			}
			return "", false
		}
		if strings.TrimSpace(line) != "" {
			return line, true
		}
		// Blank line — continue without consuming an index.
	}
}

// Err returns the first non-EOF error encountered, if any.
func (lr *lineReader) Err() error {
	return lr.err
}

// readLine reads a full line, accumulating prefix chunks for lines
// longer than the bufio buffer.
func (lr *lineReader) readLine() (string, error) {
	lr.buf = lr.buf[:0]

	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			if len(lr.buf) > 0 && err == io.EOF {
				break
			}
			return "", err
		}

		lr.buf = append(lr.buf, chunk...)
		if len(lr.buf) > lr.maxLen {
			return "", fmt.Errorf(
				"line exceeds %d bytes", lr.maxLen,
			)
		}
		if !isPrefix {
			break
		}
	}

	if !utf8.Valid(lr.buf) {
		return "", fmt.Errorf("invalid UTF-8 sequence")
	}
	return strings.TrimSuffix(string(lr.buf), "\r"), nil
}
