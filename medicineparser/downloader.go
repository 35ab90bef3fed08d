// Package medicineparser loads the medicine catalog from a CSV export, either a local file or
// a file served over http(s).
package medicineparser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NandaniSingh69/PharmaTrack/logging"
	"golang.org/x/text/encoding/charmap"
)

const maxCatalogSize = 512 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var httpClient = &http.Client{
	Timeout: 5 * time.Minute,
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// fetchSource returns the raw bytes of the catalog export.
func fetchSource(ctx context.Context, source string) ([]byte, error) {
	if isRemote(source) {
		return download(ctx, source)
	}

	cleanPath := filepath.Clean(source)
	body, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", cleanPath, err)
	}
	return body, nil
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	response, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: unexpected status %s", url, response.Status)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxCatalogSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxCatalogSize {
		return nil, fmt.Errorf("catalog at %s exceeds %d bytes", url, maxCatalogSize)
	}

	logging.Debug("Catalog downloaded", "url", url, "bytes", len(body))
	return body, nil
}

// decodeBody returns a UTF-8 reader over body. Exports are either UTF-8 or
// ISO-8859-1 depending on the tool that produced them.
func decodeBody(body []byte) io.Reader {
	body = bytes.TrimPrefix(body, utf8BOM)

	if utf8.Valid(body) {
		return bytes.NewReader(body)
	}

	logging.Debug("Catalog is not valid UTF-8, decoding as ISO-8859-1")
	return charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(body))
}
