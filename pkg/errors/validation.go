package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// ValidateDatabaseURL validates a PostgreSQL connection URL used for OID
// resolution.
//
// Validation rules:
//   - URL cannot be empty
//   - Scheme must be postgres or postgresql
//   - A host and a database name must be present
func ValidateDatabaseURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidResolver, "database URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidResolver, err, "invalid database URL %q", rawURL)
	}

	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return New(ErrCodeInvalidResolver, "database URL must use postgres or postgresql scheme: %q", rawURL)
	}

	if u.Host == "" {
		return New(ErrCodeInvalidResolver, "database URL has no host: %q", rawURL)
	}

	if strings.Trim(u.Path, "/") == "" {
		return New(ErrCodeInvalidResolver, "database URL has no database name: %q", rawURL)
	}

	return nil
}

// ValidateFilePath validates a user supplied input or output file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidateFilePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}
