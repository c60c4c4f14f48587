package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

// DocumentTextExtractor pulls flat text out of PDF and DOCX files.
type DocumentTextExtractor interface {
	ExtractPDF(ctx context.Context, path string) (string, error)
	ExtractDOCX(ctx context.Context, path string) (string, error)
}

// PDFOCR reads scanned PDFs. gcp.Document satisfies it.
type PDFOCR interface {
	ExtractPDFText(ctx context.Context, pdfPath string) (string, error)
}

type documentTextExtractor struct {
	log *logger.Logger
	ocr PDFOCR
}

// NewDocumentTextExtractor builds the extractor. ocr may be nil; when set it is
// consulted only for PDFs whose text layer is empty.
func NewDocumentTextExtractor(log *logger.Logger, ocr PDFOCR) DocumentTextExtractor {
	return &documentTextExtractor{log: log.With("service", "DocumentTextExtractor"), ocr: ocr}
}

func (e *documentTextExtractor) ExtractPDF(ctx context.Context, path string) (string, error) {
	ctx = ctxutil.Default(ctx)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.ExtractionError{Format: "pdf", Path: path, Err: err}
	}
	if !isPDF(data) {
		return "", &domain.ExtractionError{Format: "pdf", Path: path, Err: fmt.Errorf("missing %%PDF header (head=%s)", firstBytesHex(data, 16))}
	}
	text, err := extractPDF(data)
	if err != nil {
		return "", &domain.ExtractionError{Format: "pdf", Path: path, Err: err}
	}
	if strings.TrimSpace(text) != "" || e.ocr == nil {
		return text, nil
	}

	e.log.Info("pdf has no text layer, using OCR", "path", path)
	text, err = e.ocr.ExtractPDFText(ctx, path)
	if err != nil {
		return "", &domain.ExtractionError{Format: "pdf", Path: path, Err: fmt.Errorf("ocr fallback: %w", err)}
	}
	return text, nil
}

func (e *documentTextExtractor) ExtractDOCX(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.ExtractionError{Format: "docx", Path: path, Err: err}
	}
	if !isZip(data) {
		return "", &domain.ExtractionError{Format: "docx", Path: path, Err: fmt.Errorf("not a valid zip container")}
	}
	text, err := extractDOCX(data)
	if err != nil {
		return "", &domain.ExtractionError{Format: "docx", Path: path, Err: err}
	}
	return text, nil
}

// ------------------------
// Sniff helpers
// ------------------------

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func firstBytesHex(b []byte, n int) string {
	n = min(len(b), n)
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, hexdigits[b[i]>>4], hexdigits[b[i]&0x0f])
	}
	return string(out)
}

// ------------------------
// Extractors
// ------------------------

func extractPDF(data []byte) (text string, err error) {
	// The reader panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// extractDOCX returns the body paragraphs of word/document.xml, one per line.
// Tables, headers and footers are not included.
func extractDOCX(zipBytes []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", err
	}
	f := findZipFile(zr, "word/document.xml")
	if f == nil {
		return "", fmt.Errorf("zip does not look like docx (no word/document.xml)")
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	paras, err := bodyParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("document.xml: %w", err)
	}
	return strings.Join(paras, "\n"), nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func bodyParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		stack  []string
		paras  []string
		cur    strings.Builder
		inPara int // depth of the open body paragraph, 0 when none
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			if local == "p" && inPara == 0 && len(stack) > 0 && stack[len(stack)-1] == "body" {
				inPara = len(stack) + 1
				cur.Reset()
			}
			if inPara > 0 {
				switch local {
				case "t":
					inText = true
				case "tab":
					cur.WriteString("\t")
				case "br", "cr":
					cur.WriteString("\n")
				}
			}
			stack = append(stack, local)
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
			if inPara > 0 && t.Name.Local == "p" && len(stack) == inPara {
				paras = append(paras, cur.String())
				inPara = 0
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if inPara > 0 && inText {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}
