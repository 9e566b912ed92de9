package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadSeries parses an entropy series: one sample per line, blank lines
// and lines starting with '#' ignored. For comma-separated lines the last
// field is the sample, so "tick,entropy" CSV works unchanged; a
// non-numeric first line is treated as a CSV header.
func ReadSeries(r io.Reader) ([]float64, error) {
	var out []float64
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if i := strings.LastIndexByte(text, ','); i >= 0 {
			text = strings.TrimSpace(text[i+1:])
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			if len(out) == 0 && lineNo == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: invalid sample %q: %w", lineNo, text, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading series: %w", err)
	}
	return out, nil
}
