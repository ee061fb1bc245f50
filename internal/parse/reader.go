package parse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Record is one accepted line of a chat file.
type Record struct {
	Index int // 0 for the header, then 1, 2, ... for messages
	Line  int // physical 1-based line number
	Raw   json.RawMessage
}

// Reader yields the JSON lines of a chat file. Blank lines, lines that are
// not a single JSON value and JSON null lines are skipped and do not count.
type Reader struct {
	br      *bufio.Reader
	lineNum int
	next    int
	done    bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next accepted record, or io.EOF.
func (r *Reader) Next() (Record, error) {
	for !r.done {
		line, err := r.br.ReadBytes('\n')
		if err == io.EOF {
			r.done = true
			if len(line) == 0 {
				break
			}
		} else if err != nil {
			return Record{}, err
		}
		r.lineNum++
		if r.lineNum == 1 {
			line = bytes.TrimPrefix(line, utf8BOM)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) || kindOf(line) == kindNull {
			continue
		}

		rec := Record{Index: r.next, Line: r.lineNum, Raw: json.RawMessage(line)}
		r.next++
		return rec, nil
	}
	return Record{}, io.EOF
}

// Accepted is the number of records returned so far.
func (r *Reader) Accepted() int {
	return r.next
}
