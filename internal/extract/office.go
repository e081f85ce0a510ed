package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXLSX renders a workbook as sheet-prefixed, tab-joined rows.
func extractXLSX(path string) (string, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = workbook.Close() }()

	var b strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}

		b.WriteString("Sheet: " + sheet + "\n")
		for _, row := range rows {
			line := strings.Join(row, "\t")
			if strings.TrimSpace(line) != "" {
				b.WriteString(line + "\n")
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// extractDOCX joins the document's paragraph runs, one paragraph per line.
func extractDOCX(path string) (string, error) {
	text, err := ooxmlPartText(path, "word/document.xml", "t", "p")
	if err != nil {
		return "", fmt.Errorf("extract docx: %w", err)
	}
	return text, nil
}

// extractPPTX walks the slide parts in order and prefixes each slide's
// text with its number.
func extractPPTX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}
	defer func() { _ = archive.Close() }()

	var slides []string
	for _, file := range archive.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml") {
			slides = append(slides, file.Name)
		}
	}
	// Archive order is not slide order.
	sort.Strings(slides)

	var b strings.Builder
	for i, name := range slides {
		rc, err := openZipEntry(&archive.Reader, name)
		if err != nil {
			return "", fmt.Errorf("open slide %s: %w", name, err)
		}
		text, err := xmlElementText(rc, "t", "")
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("parse slide %s: %w", name, err)
		}

		b.WriteString(fmt.Sprintf("Slide %d:\n", i+1))
		if text != "" {
			b.WriteString(text + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// ooxmlPartText extracts the text of one XML part inside an OOXML zip.
func ooxmlPartText(path, part, textElem, breakElem string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = archive.Close() }()

	rc, err := openZipEntry(&archive.Reader, part)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	return xmlElementText(rc, textElem, breakElem)
}

func openZipEntry(archive *zip.Reader, name string) (io.ReadCloser, error) {
	for _, file := range archive.File {
		if file.Name == name {
			return file.Open()
		}
	}
	return nil, fmt.Errorf("missing archive part %s", name)
}

// xmlElementText streams an XML document and concatenates the character
// data inside every element with local name textElem. Closing breakElem
// elements emit a newline, which turns word-processing paragraphs into
// lines. Namespace prefixes are ignored.
func xmlElementText(r io.Reader, textElem, breakElem string) (string, error) {
	decoder := xml.NewDecoder(r)

	var b strings.Builder
	depth := 0 // nesting depth inside textElem elements
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == textElem {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == textElem && depth > 0 {
				depth--
			}
			if breakElem != "" && t.Name.Local == breakElem {
				b.WriteString("\n")
			}
		case xml.CharData:
			if depth > 0 {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
