package csvparse

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

func TestParseBasic(t *testing.T) {
	in := "EmployeeID, Name ,Age\nE-1,Ana,30\n\nE-2, Bo ,41\n"
	res, err := Parse(strings.NewReader(in), "EmployeeID", "Age")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Encoding != EncodingUTF8 {
		t.Fatalf("encoding=%s", res.Encoding)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records=%d", len(res.Records))
	}
	if got := res.Records[1].Values["Name"]; got != "Bo" {
		t.Fatalf("name=%q", got)
	}
	if res.Records[0].Line != 2 || res.Records[1].Line != 4 {
		t.Fatalf("lines=%d,%d", res.Records[0].Line, res.Records[1].Line)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings=%v", res.Warnings)
	}
}

func TestParseEncodings(t *testing.T) {
	body := "EmployeeID,Name\nE-1,José\n"

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(body)
	if err != nil {
		t.Fatalf("encode utf16: %v", err)
	}
	utf16be, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().String(body)
	if err != nil {
		t.Fatalf("encode utf16be: %v", err)
	}
	latin1 := bytes.ReplaceAll([]byte(body), []byte("é"), []byte{0xE9})

	cases := map[string]struct {
		data []byte
		enc  string
	}{
		"utf-8":     {[]byte(body), EncodingUTF8},
		"utf-8 bom": {append([]byte{0xEF, 0xBB, 0xBF}, body...), EncodingUTF8BOM},
		"utf-16le":  {[]byte(utf16), EncodingUTF16LE},
		"utf-16be":  {[]byte(utf16be), EncodingUTF16BE},
		"latin-1":   {latin1, EncodingLatin1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := Parse(bytes.NewReader(tc.data), "EmployeeID")
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if res.Encoding != tc.enc {
				t.Fatalf("encoding=%s want %s", res.Encoding, tc.enc)
			}
			if got := res.Records[0].Values["Name"]; got != "José" {
				t.Fatalf("name=%q", got)
			}
			if _, ok := res.Records[0].Values["EmployeeID"]; !ok {
				t.Fatalf("header not cleaned: %v", res.Headers)
			}
		})
	}
}

func TestParsePadsAndTruncates(t *testing.T) {
	in := "a,b,c\n1,2\n1,2,3,4\n"
	res, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Records) != 2 || len(res.Warnings) != 2 {
		t.Fatalf("records=%d warnings=%d", len(res.Records), len(res.Warnings))
	}
	if res.Records[0].Values["c"] != "" || res.Warnings[0].Row != 2 {
		t.Fatalf("short row not padded: %+v %+v", res.Records[0], res.Warnings[0])
	}
	if len(res.Records[1].Values) != 3 || res.Warnings[1].Row != 3 {
		t.Fatalf("long row not truncated: %+v %+v", res.Records[1], res.Warnings[1])
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := Parse(strings.NewReader("EmployeeID,Age\n")); !errors.Is(err, ErrNoRows) {
		t.Fatalf("no rows: %v", err)
	}
	_, err := Parse(strings.NewReader("EmployeeID\nE-1\n"), "EmployeeID", "Age", "Gender")
	if !errors.Is(err, ErrMissingHeader) {
		t.Fatalf("missing header: %v", err)
	}
	if !strings.Contains(err.Error(), "Age, Gender") {
		t.Fatalf("missing columns not listed: %v", err)
	}
}

func TestParseCollectsUnreadableRows(t *testing.T) {
	in := "EmployeeID,Name,Age\nE-1,Ana,30\nE-2,B\"o,41\nE-3,Cy,52\n"
	res, err := parse(strings.NewReader(in), false, []string{"EmployeeID"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Records) != 2 || res.Records[1].Values["EmployeeID"] != "E-3" {
		t.Fatalf("unexpected records: %+v", res.Records)
	}
	if len(res.Errors) != 1 || res.Errors[0].Row != 3 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("parse errors must not be reported as warnings: %+v", res.Warnings)
	}
}

func TestParseOnlyUnreadableRowsIsNotEmpty(t *testing.T) {
	res, err := parse(strings.NewReader("EmployeeID,Name\nE-1,B\"o\n"), false, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected one row error, got %+v", res.Errors)
	}
}
