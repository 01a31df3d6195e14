package docstore

import (
	"io"
	"os"
)

// tailChunkSize is how many bytes each backward read fetches.
const tailChunkSize = 4096

// Tail returns up to the last n non-empty newline-delimited records of the
// file at path, oldest first. The file is read backwards from its end and
// never scanned forward from the start.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return TailReader(f, info.Size(), n)
}

// TailReader is Tail over any random-access source of the given size.
//
// Bytes are consumed one at a time from the end, each accumulated into a
// reversed line buffer. A newline completes the buffered line (empty lines are
// skipped). Whatever remains buffered when the start is reached is the oldest
// line.
func TailReader(r io.ReaderAt, size int64, n int) ([]string, error) {
	if n <= 0 || size <= 0 {
		return []string{}, nil
	}

	// lines collects newest first; reversed once at the end.
	lines := make([]string, 0, n)
	var rev []byte
	chunk := make([]byte, tailChunkSize)

	pos := size
	for pos > 0 && len(lines) < n {
		step := int64(tailChunkSize)
		if pos < step {
			step = pos
		}
		pos -= step

		buf := chunk[:step]
		if _, err := r.ReadAt(buf, pos); err != nil && err != io.EOF {
			return nil, err
		}

		for i := len(buf) - 1; i >= 0 && len(lines) < n; i-- {
			c := buf[i]
			if c != '\n' {
				rev = append(rev, c)
				continue
			}
			if len(rev) > 0 {
				lines = append(lines, reverseString(rev))
				rev = rev[:0]
			}
		}
	}

	if len(rev) > 0 && len(lines) < n {
		lines = append(lines, reverseString(rev))
	}

	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}

func reverseString(rev []byte) string {
	out := make([]byte, len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return string(out)
}
