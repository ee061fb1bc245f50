package parse

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Options controls how a chat file is converted.
type Options struct {
	// Strict aborts on the first message line that fails to map. Otherwise
	// such lines are dropped and conversion continues.
	Strict bool

	// RequireCreateDate makes a header without create_date an error.
	RequireCreateDate bool

	// Location anchors parsed wall-clock dates. Nil means UTC.
	Location *time.Location

	// OnLineError, when set, receives every message line dropped in
	// lenient mode. It is not called in strict mode.
	OnLineError func(*LineError)

	Logger *slog.Logger
}

func (o Options) dates() DateNormalizer {
	return DateNormalizer{Location: o.Location}
}

// ConvertFile opens path and converts it. The file is closed on return.
func ConvertFile(path string, opts Options) (*ChatDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Convert(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Convert reads a whole chat file from r. A header failure is always
// fatal; message failures are governed by opts.Strict.
func Convert(r io.Reader, opts Options) (*ChatDocument, error) {
	reader := NewReader(r)
	var (
		header   Header
		messages []MessageRecord
	)

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line: %w", err)
		}

		if rec.Index == 0 {
			header, err = MapHeader(rec.Raw, opts)
			if err != nil {
				return nil, &LineError{Index: rec.Index, Line: rec.Line, Err: err}
			}
			continue
		}

		msg, err := MapMessage(rec.Raw, rec.Index, opts)
		if err != nil {
			lineErr := &LineError{Index: rec.Index, Line: rec.Line, Err: err}
			if opts.Strict {
				return nil, lineErr
			}
			if opts.OnLineError != nil {
				opts.OnLineError(lineErr)
			}
			if opts.Logger != nil {
				opts.Logger.Debug("dropped message line", "index", rec.Index, "line", rec.Line, "error", err)
			}
			continue
		}
		msg.SourceLine = rec.Line
		messages = append(messages, msg)
	}

	if reader.Accepted() == 0 {
		return nil, malformed("no lines were parsed")
	}
	header.LineCount = reader.Accepted()
	if len(messages) == 0 {
		return nil, malformed("no messages were parsed")
	}

	return &ChatDocument{Header: header, Messages: messages}, nil
}
