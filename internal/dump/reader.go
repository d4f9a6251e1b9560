package dump

// reader.go loads an export file into memory.
//
// Exports come from Windows tools as often as from mysqldump, so the reader:
//   - Rejects files above the configured size before reading them
//   - Removes a UTF-8 BOM (0xEF 0xBB 0xBF)
//   - Decodes legacy single-byte charsets to UTF-8
//   - Replaces invalid UTF-8 sequences with U+FFFD

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DefaultMaxFileSize is the largest export ReadFile accepts by default (512MB).
const DefaultMaxFileSize int64 = 512 * 1024 * 1024

// ErrFileTooLarge is returned when an export exceeds the size limit.
var ErrFileTooLarge = errors.New("export file too large")

// ReadOptions controls how an export file is decoded.
type ReadOptions struct {
	// MaxFileSize caps the accepted size in bytes; <= 0 means DefaultMaxFileSize.
	MaxFileSize int64

	// Charset is "utf-8" (default), "latin1" or "windows-1252".
	Charset string
}

// decoderFor returns the decoder for a charset name.
func decoderFor(charset string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM.NewDecoder(), nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
}

// ValidCharset reports whether ReadOptions.Charset accepts name.
func ValidCharset(name string) bool {
	_, err := decoderFor(name)
	return err == nil
}

// ReadFile reads the whole export at path as UTF-8 text.
func ReadFile(path string, opts ReadOptions) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	limit := opts.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat export: %w", err)
	}
	if info.Size() > limit {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), limit)
	}

	return Decode(io.LimitReader(f, limit), opts.Charset)
}

// Decode reads r fully and converts it to valid UTF-8 text.
func Decode(r io.Reader, charset string) (string, error) {
	dec, err := decoderFor(charset)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(dec.Reader(r))
	if err != nil {
		return "", fmt.Errorf("decode export: %w", err)
	}

	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
