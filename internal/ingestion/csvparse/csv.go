package csvparse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyFile     = errors.New("csv: empty file")
	ErrNoRows        = errors.New("csv: no data rows")
	ErrMissingHeader = errors.New("csv: missing required columns")
)

// Warning is a non-fatal issue with one row. Row numbers are 1-based and
// count the header as row 1, matching what a spreadsheet shows.
type Warning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Record is one data row keyed by trimmed header.
type Record struct {
	Line   int
	Values map[string]string
}

type Result struct {
	Encoding string
	Headers  []string
	Records  []Record
	Warnings []Warning
	// Errors lists rows that could not be read at all. Callers must not treat
	// a Result with Errors as complete.
	Errors []Warning
}

// Parse reads a whole CSV document. Short rows are padded and long rows are
// truncated to the header width, each with a warning; rows that fail to parse
// are collected in Result.Errors. required lists headers that must be present.
func Parse(r io.Reader, required ...string) (*Result, error) {
	return parse(r, true, required)
}

func parse(r io.Reader, lazyQuotes bool, required []string) (*Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	decoded, enc, err := DetectAndDecode(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = lazyQuotes

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	for i, h := range headers {
		headers[i] = cleanHeader(h)
	}
	if missing := missingHeaders(headers, required); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, strings.Join(missing, ", "))
	}

	res := &Result{Encoding: enc, Headers: headers}
	width := len(headers)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.StartLine
			}
			res.Errors = append(res.Errors, Warning{Row: line, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}
		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}
		switch {
		case len(row) < width:
			res.Warnings = append(res.Warnings, Warning{
				Row:     line,
				Message: fmt.Sprintf("row has %d columns, expected %d; padding with empty values", len(row), width),
			})
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		case len(row) > width:
			res.Warnings = append(res.Warnings, Warning{
				Row:     line,
				Message: fmt.Sprintf("row has %d columns, expected %d; truncating extra columns", len(row), width),
			})
			row = row[:width]
		}

		values := make(map[string]string, width)
		for i, h := range headers {
			values[h] = strings.TrimSpace(row[i])
		}
		res.Records = append(res.Records, Record{Line: line, Values: values})
	}

	if len(res.Records) == 0 && len(res.Errors) == 0 {
		return nil, ErrNoRows
	}
	return res, nil
}

func cleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return norm.NFC.String(strings.TrimSpace(h))
}

func missingHeaders(headers, required []string) []string {
	have := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		have[h] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := have[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
