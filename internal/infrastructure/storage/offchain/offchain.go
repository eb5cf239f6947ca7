// Package offchain holds ContentStore implementations for the images and
// JSON documents that on-chain metadata points at.
package offchain

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	"github.com/whiteelite/tokenforge/internal/domain/repositories"
)

// objectName is content addressed so re-uploading identical bytes under the
// same name lands on the same object.
func objectName(blob repositories.Blob) string {
	sum := sha256.Sum256(blob.Data)
	name := path.Base(strings.TrimSpace(blob.Name))
	if name == "." || name == "/" || name == "" {
		return hex.EncodeToString(sum[:])
	}
	return hex.EncodeToString(sum[:8]) + "-" + name
}

func contentType(blob repositories.Blob) string {
	if blob.ContentType == "" {
		return "application/octet-stream"
	}
	return blob.ContentType
}
