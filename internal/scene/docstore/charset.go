package docstore

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// toUTF8 transcodes hand-edited documents saved in a legacy encoding.
// Valid UTF-8 is returned unchanged.
func toUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}

	name := detectCharset(data)
	enc, canonical := charset.Lookup(name)
	if enc == nil {
		return nil, fmt.Errorf("document is not UTF-8 and charset %q is not supported", name)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("transcode from %s: %w", canonical, err)
	}
	return out, nil
}

func detectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "windows-1252"
	}
	return strings.ToLower(result.Charset)
}
