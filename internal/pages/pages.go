// Package pages splits a text file into fixed-size pages of lines.
//
// A page is the unit handed to a synthesis backend in one call. Pages are
// numbered from zero in file order, and the same input always produces the
// same pages.
package pages

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultSize is the number of lines per page.
const DefaultSize = 25

// maxLineBytes bounds a single line; prose files can carry whole paragraphs
// on one line.
const maxLineBytes = 4 << 20

// ReadLines returns the lines of the file at path without line terminators.
// Both LF and CRLF endings are accepted. A trailing newline does not produce
// an extra empty line.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

// Paginate partitions items into consecutive pages of at most size elements.
// Every page but the last holds exactly size elements. It panics if size is
// not positive.
func Paginate[T any](items []T, size int) [][]T {
	if size <= 0 {
		panic(fmt.Sprintf("pages: invalid page size %d", size))
	}

	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}

// Join renders a page as the text sent for synthesis.
func Join(page []string) string {
	return strings.Join(page, "\n")
}
