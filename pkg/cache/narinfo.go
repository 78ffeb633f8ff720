// pkg/cache/narinfo.go
package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// Compression values seen in narinfo files
const (
	CompressionXZ    = "xz"
	CompressionBZip2 = "bzip2"
	CompressionNone  = "none"
)

// NARInfo contains metadata about a store object in the binary cache
type NARInfo struct {
	StorePath   string
	URL         string
	Compression string
	FileHash    string
	FileSize    int64
	NarHash     string
	NarSize     int64
	References  []string
	Deriver     string
	Signature   string
}

// ParseNARInfo parses the line-oriented .narinfo format
func ParseNARInfo(content string) (*NARInfo, error) {
	info := &NARInfo{}
	lines := strings.Split(content, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "StorePath":
			info.StorePath = value
		case "URL":
			info.URL = value
		case "Compression":
			info.Compression = value
		case "FileHash":
			info.FileHash = strings.TrimPrefix(value, "sha256:")
		case "FileSize":
			size, _ := strconv.ParseInt(value, 10, 64)
			info.FileSize = size
		case "NarHash":
			info.NarHash = strings.TrimPrefix(value, "sha256:")
		case "NarSize":
			size, _ := strconv.ParseInt(value, 10, 64)
			info.NarSize = size
		case "References":
			if value != "" {
				info.References = strings.Fields(value)
			}
		case "Deriver":
			info.Deriver = value
		case "Sig":
			info.Signature = value
		}
	}

	if info.StorePath == "" {
		return nil, fmt.Errorf("missing StorePath in narinfo")
	}
	if info.URL == "" {
		return nil, fmt.Errorf("missing URL in narinfo")
	}
	if info.Compression == "" {
		info.Compression = CompressionBZip2
	}

	return info, nil
}
