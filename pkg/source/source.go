// ABOUTME: Byte sources for the player
// ABOUTME: Opens files, HTTP/ICY streams and WebSocket streams as readers
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// ErrUnsupportedScheme is returned for URLs no source can open
var ErrUnsupportedScheme = errors.New("unsupported scheme")

// Header is one metadata entry announced by a source
type Header struct {
	Key   string
	Value string
}

// Stream is an opened byte source with what it announced about itself
type Stream struct {
	io.ReadCloser

	// ContentType is the announced media type, if any
	ContentType string

	// DeclaredKbps is the announced bitrate, or 0
	DeclaredKbps int

	// Metadata lists announced properties such as response headers
	Metadata []Header
}

// Open opens target. http, https and icy URLs are fetched over HTTP, ws and
// wss URLs over WebSocket, and anything without a scheme (or file://) is
// read from disk. Closing the stream or cancelling ctx ends any pending read.
func Open(ctx context.Context, target string) (*Stream, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || isDriveLetter(u.Scheme) {
		return openFile(target)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return openHTTP(ctx, u)
	case "icy":
		u.Scheme = "http"
		return openHTTP(ctx, u)
	case "ws", "wss":
		return openWebSocket(ctx, u)
	case "file":
		return openFile(u.Path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

// isDriveLetter reports whether a parsed scheme is really a Windows drive
func isDriveLetter(scheme string) bool {
	return len(scheme) == 1
}
