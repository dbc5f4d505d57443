// ABOUTME: HTTP and ICY stream source
// ABOUTME: Requests a stream without in-band metadata and reports its headers
package source

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/streamplay/internal/version"
)

// minDeclaredKbps is the lowest icy-br value taken as a real bitrate
const minDeclaredKbps = 8

var httpClient = &http.Client{}

func openHTTP(ctx context.Context, u *url.URL) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// In-band ICY metadata blocks are not parsed, so do not ask for them
	req.Header.Set("Icy-MetaData", "0")
	req.Header.Set("User-Agent", version.UserAgent())

	log.Printf("Source: connecting to %s", u.Redacted())

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	s := &Stream{
		ReadCloser:   resp.Body,
		ContentType:  resp.Header.Get("Content-Type"),
		DeclaredKbps: declaredBitrate(resp.Header.Get("icy-br")),
		Metadata:     headers(resp.Header),
	}

	log.Printf("Source: connected, content type %q, declared %d kbps", s.ContentType, s.DeclaredKbps)
	return s, nil
}

// declaredBitrate parses an icy-br value such as "128" or "128,128"
func declaredBitrate(value string) int {
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = value[:i]
	}
	kbps, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || kbps < minDeclaredKbps {
		return 0
	}
	return kbps
}

// headers flattens response headers into sorted metadata entries
func headers(h http.Header) []Header {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, Header{Key: strings.ToLower(k), Value: strings.Join(h[k], ", ")})
	}
	return out
}
