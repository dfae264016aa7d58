package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Decompress undoes the Content-Encoding of raw (gzip, deflate or br).
// Unknown or empty encodings return raw unchanged. The decoded size is
// capped at limit.
func Decompress(contentEncoding string, raw []byte, limit int64) ([]byte, error) {
	var reader io.Reader
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(bytes.NewReader(raw))
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(bytes.NewReader(raw))
	default:
		return raw, nil
	}

	out, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", contentEncoding, err)
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: decoded body exceeds %d bytes", ErrBodyTooLarge, limit)
	}
	return out, nil
}

// decodeText validates b as UTF-8 text.
// On failure it returns b unchanged as a string and false.
func decodeText(b []byte) (string, bool) {
	out, _, err := transform.Bytes(encoding.UTF8Validator, b)
	if err != nil {
		return string(b), false
	}
	return string(out), true
}
