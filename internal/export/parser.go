package export

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// MarkdownParser recovers a bundle from the data comment a
// MarkdownRenderer embedded. The visible prose is ignored; only the
// payload counts, so hand-edited exports still parse.
type MarkdownParser struct{}

func (MarkdownParser) Parse(data []byte) (*Bundle, error) {
	text := string(data)
	marker := strings.SplitN(dataSentinel, "%s", 2)
	start := strings.Index(text, marker[0])
	if start < 0 {
		return nil, fmt.Errorf("no embedded bundle data found")
	}
	rest := text[start+len(marker[0]):]
	end := strings.Index(rest, marker[1])
	if end < 0 {
		return nil, fmt.Errorf("embedded bundle data is truncated")
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rest[:end]))
	if err != nil {
		return nil, fmt.Errorf("decoding bundle data: %w", err)
	}
	return decode(payload)
}

// JSONParser recovers a bundle from a JSONRenderer export.
type JSONParser struct{}

func (JSONParser) Parse(data []byte) (*Bundle, error) {
	return decode(data)
}

func decode(payload []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	if b.Version != BundleVersion {
		return nil, fmt.Errorf("unsupported bundle version %d (supported: %d)", b.Version, BundleVersion)
	}
	return &b, nil
}
