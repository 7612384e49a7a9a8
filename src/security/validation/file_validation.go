// backend/src/security/validation/file_validation.go
package validation

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/username/shiftledger/backend/src/logger"
)

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
var AllowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // Often used for CSV by older Excel
	"text/plain":               true, // CSVs are often plain text
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": false, // .xlsx explicitly disallow
}

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	if allowed, exists := AllowedClientContentTypes[strings.ToLower(contentType)]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for CSV upload", contentType)
	}
	return nil
}

// isBinaryContent checks if a buffer contains binary control characters (like null bytes)
// which indicate the file is likely not a valid text-based CSV.
func isBinaryContent(buf []byte) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return true
	}
	return !utf8.Valid(buf)
}

// ValidateFileContentByMagicBytes checks the actual file content signature
// and inspects the content to ensure it is text-based.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 1024)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset the read pointer so the actual parser can read the full file.
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	if n == 0 {
		return "", fmt.Errorf("file is empty")
	}

	if isBinaryContent(buffer[:n]) {
		logger.L.Warn("File rejected: Binary content detected in text upload")
		return "application/octet-stream", fmt.Errorf("file appears to be binary or executable, not text/CSV")
	}

	detectedContentType := http.DetectContentType(buffer[:n])
	detectedContentType = strings.ToLower(strings.Split(detectedContentType, ";")[0])

	allowedDetectedTypes := map[string]bool{
		"text/plain":      true,
		"text/csv":        true,
		"application/csv": true,
	}
	if !allowedDetectedTypes[detectedContentType] {
		if detectedContentType == "application/octet-stream" {
			logger.L.Warn("File rejected: content type detected as octet-stream (ambiguous)")
		} else {
			logger.L.Warn("Disallowed detected file content type", "detectedContentType", detectedContentType)
		}
		return detectedContentType, fmt.Errorf("detected file content type '%s' is not allowed", detectedContentType)
	}

	logger.L.Debug("File content type validated", "detectedContentType", detectedContentType)
	return detectedContentType, nil
}
