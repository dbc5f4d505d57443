// ABOUTME: Local file source
// ABOUTME: Opens audio files with a content type guessed from the extension
package source

import (
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
)

func openFile(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	s := &Stream{
		ReadCloser:  f,
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
	}
	if info, err := f.Stat(); err == nil {
		s.Metadata = []Header{{Key: "file-size", Value: fmt.Sprint(info.Size())}}
	}

	log.Printf("Source: opened %s", path)
	return s, nil
}
