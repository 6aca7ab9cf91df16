// Package extract is the boundary to the external text extractor. The core
// consumes only a text blob per document; any page separators produced
// upstream are passed through untouched.
package extract

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"

	"docrag/internal/domain"
)

// FromFile loads a plain-text document from path. A missing or unreadable
// file is an extraction error; indexing must not proceed without content.
func FromFile(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, goerr.Wrap(domain.ErrExtract, "cannot read document",
			goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	content := string(data)
	if !utf8.ValidString(content) {
		return domain.Document{}, goerr.Wrap(domain.ErrExtract, "document is not valid UTF-8 text",
			goerr.V("path", path))
	}
	if strings.TrimSpace(content) == "" {
		return domain.Document{}, goerr.Wrap(domain.ErrExtract, "document is empty",
			goerr.V("path", path))
	}
	return domain.Document{ID: hashString(path), Path: path, Content: content}, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
