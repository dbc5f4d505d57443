// ABOUTME: WebSocket stream source
// ABOUTME: Concatenates binary WebSocket messages into one byte stream
package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/streamplay/internal/version"
)

func openWebSocket(ctx context.Context, u *url.URL) (*Stream, error) {
	log.Printf("Source: connecting to %s", u.Redacted())

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	r := &wsReader{conn: conn}
	r.stop = context.AfterFunc(ctx, func() { r.Close() })

	s := &Stream{ReadCloser: r}
	if resp != nil {
		s.ContentType = resp.Header.Get("Content-Type")
		s.DeclaredKbps = declaredBitrate(resp.Header.Get("icy-br"))
		s.Metadata = headers(resp.Header)
	}
	return s, nil
}

// wsReader reads the payload of consecutive binary messages
type wsReader struct {
	conn    *websocket.Conn
	current io.Reader
	stop    func() bool

	closeOnce sync.Once
	closeErr  error
}

func (r *wsReader) Read(p []byte) (int, error) {
	for {
		if r.current == nil {
			messageType, reader, err := r.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if messageType != websocket.BinaryMessage {
				log.Printf("Source: ignoring non-binary WebSocket message")
				continue
			}
			r.current = reader
		}

		n, err := r.current.Read(p)
		if err == io.EOF {
			r.current = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

// Close closes the connection. It is safe to call more than once.
func (r *wsReader) Close() error {
	r.closeOnce.Do(func() {
		if r.stop != nil {
			r.stop()
		}
		r.closeErr = r.conn.Close()
	})
	return r.closeErr
}
