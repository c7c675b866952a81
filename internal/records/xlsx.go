package records

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// ErrSheetNotFound is returned when Options.Sheet names no worksheet.
var ErrSheetNotFound = errors.New("sheet not found")

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Load reads one worksheet: the one named by opt.Sheet, else the first.
func (xlsxLoader) Load(r io.Reader, opt Options) ([]Record, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}

	sheets := workbookSheets(zipEntry(zr, "xl/workbook.xml"))
	rels := workbookRels(zipEntry(zr, "xl/_rels/workbook.xml.rels"))
	target := ""
	if opt.Sheet != "" {
		for _, s := range sheets {
			if strings.EqualFold(s.name, opt.Sheet) {
				target = sheetPath(rels[s.rid])
				break
			}
		}
		if target == "" {
			names := make([]string, len(sheets))
			for i, s := range sheets {
				names[i] = s.name
			}
			return nil, fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, opt.Sheet, strings.Join(names, ", "))
		}
	} else if len(sheets) > 0 {
		target = sheetPath(rels[sheets[0].rid])
	}
	if target == "" {
		target = "xl/worksheets/sheet1.xml"
	}

	data := zipEntry(zr, target)
	if data == nil {
		return nil, fmt.Errorf("open xlsx: missing %s", target)
	}
	rows := &sheetRows{
		dec:    xml.NewDecoder(bytes.NewReader(data)),
		shared: sharedStrings(zipEntry(zr, "xl/sharedStrings.xml")),
	}
	return fromRows(rows.next, opt)
}

type sheetRef struct {
	name string
	rid  string
}

func workbookSheets(data []byte) []sheetRef {
	var out []sheetRef
	eachStart(data, "sheet", func(se xml.StartElement) {
		var s sheetRef
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.name = a.Value
			case "id":
				s.rid = a.Value
			}
		}
		out = append(out, s)
	})
	return out
}

func workbookRels(data []byte) map[string]string {
	out := map[string]string{}
	eachStart(data, "Relationship", func(se xml.StartElement) {
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

// sheetPath turns a relationship target into a zip entry name; targets may be
// absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func sheetPath(rel string) string {
	if rel == "" {
		return ""
	}
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}

func eachStart(data []byte, local string, fn func(xml.StartElement)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == local {
			fn(se)
		}
	}
}

func zipEntry(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

func sharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	inT := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

// sheetRows streams rows of a worksheet; next returns io.EOF after the last row.
type sheetRows struct {
	dec    *xml.Decoder
	shared []string
}

func (r *sheetRows) next() ([]string, error) {
	var row []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("parse sheet: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch {
			case se.Name.Local == "row":
				inRow = true
				row = nil
			case inRow && se.Name.Local == "c":
				var ref, typ string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				col := columnIndex(ref)
				if col < 0 {
					col = len(row)
				}
				for len(row) <= col {
					row = append(row, "")
				}
				row[col] = r.cellValue(typ)
			}
		case xml.EndElement:
			if se.Name.Local == "row" && inRow {
				return row, nil
			}
		}
	}
}

// cellValue reads up to the end of the current <c>, resolving shared strings.
func (r *sheetRows) cellValue(typ string) string {
	var val strings.Builder
	depth := 0
	for {
		tok, err := r.dec.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				depth++
			}
		case xml.CharData:
			if depth > 0 {
				val.Write(se)
			}
		case xml.EndElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				depth--
			}
			if se.Name.Local == "c" {
				if typ == "s" {
					idx, err := strconv.Atoi(strings.TrimSpace(val.String()))
					if err != nil || idx < 0 || idx >= len(r.shared) {
						return ""
					}
					return r.shared[idx]
				}
				return val.String()
			}
		}
	}
	return val.String()
}

// columnIndex converts the letters of a cell ref ("C12") to a 0-based column.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}
