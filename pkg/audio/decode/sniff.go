// ABOUTME: Stream format detection
// ABOUTME: Maps content types and file extensions to codec names
package decode

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
)

var contentTypes = map[string]string{
	"audio/mpeg":      CodecMP3,
	"audio/mp3":       CodecMP3,
	"audio/mpg":       CodecMP3,
	"audio/mpeg3":     CodecMP3,
	"audio/x-mpeg":    CodecMP3,
	"audio/x-mp3":     CodecMP3,
	"audio/x-mpeg3":   CodecMP3,
	"audio/flac":      CodecFLAC,
	"audio/x-flac":    CodecFLAC,
	"audio/ogg":       CodecVorbis,
	"audio/vorbis":    CodecVorbis,
	"audio/x-vorbis":  CodecVorbis,
	"application/ogg": CodecVorbis,
	"audio/opus":      CodecOpus,
	"audio/wav":       CodecWAV,
	"audio/x-wav":     CodecWAV,
	"audio/wave":      CodecWAV,
	"audio/vnd.wave":  CodecWAV,
}

var extensions = map[string]string{
	".mp3":  CodecMP3,
	".flac": CodecFLAC,
	".ogg":  CodecVorbis,
	".oga":  CodecVorbis,
	".opus": CodecOpus,
	".wav":  CodecWAV,
	".wave": CodecWAV,
}

// Sniff picks a codec from a content type and a file name or URL. The
// extension refines an Ogg content type, which may carry Opus.
func Sniff(contentType, name string) (string, error) {
	ext := extension(name)

	if contentType != "" {
		mediaType, params, err := mime.ParseMediaType(contentType)
		if err == nil {
			if codec, ok := contentTypes[mediaType]; ok {
				if codec == CodecVorbis && (ext == ".opus" || strings.Contains(params["codecs"], "opus")) {
					return CodecOpus, nil
				}
				return codec, nil
			}
		}
	}

	if codec, ok := extensions[ext]; ok {
		return codec, nil
	}

	return "", fmt.Errorf("%w: content type %q, name %q", ErrUnsupportedCodec, contentType, name)
}

func extension(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Path != "" {
		name = u.Path
	}
	return strings.ToLower(path.Ext(name))
}
