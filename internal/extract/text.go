package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

// encodingSniffLen bounds how much of a file feeds the charset detector.
const encodingSniffLen = 32 * 1024

// extractText reads a plain-text file, detecting its encoding and decoding
// to UTF-8. An undetectable or mis-detected encoding degrades to a lossy
// UTF-8 read rather than a failure.
func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	if decoded, ok := decodeDetected(data); ok {
		return decoded, nil
	}

	// Lossy fallback: drop invalid sequences.
	return strings.ToValidUTF8(string(data), ""), nil
}

// decodeDetected runs charset detection over the head of the data and
// decodes the whole buffer with the detected encoding.
func decodeDetected(data []byte) (string, bool) {
	sniff := data
	if len(sniff) > encodingSniffLen {
		sniff = sniff[:encodingSniffLen]
	}

	result, err := chardet.NewTextDetector().DetectBest(sniff)
	if err != nil || result == nil {
		return "", false
	}

	enc, err := htmlindex.Get(result.Charset)
	if err != nil || enc == nil {
		return "", false
	}

	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
