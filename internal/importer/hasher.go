package importer

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Veraticus/house-money/internal/common"
)

// Fingerprint returns the lowercase hex SHA-256 of data. It is the only key
// used to recognise a file that has been uploaded before.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DecodePayload decodes a browser upload of the form "<mime>;base64,<data>".
// Everything up to the first comma is the content-type prefix.
func DecodePayload(contents string) ([]byte, error) {
	_, encoded, ok := strings.Cut(contents, ",")
	if !ok {
		return nil, fmt.Errorf("%w: payload has no content-type prefix", common.ErrMalformedInput)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %w", common.ErrMalformedInput, err)
	}
	return data, nil
}
