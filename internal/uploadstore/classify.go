package uploadstore

import (
	"strings"

	"vidsum/internal/apperr"
	"vidsum/internal/metadata"
)

var extensionFileTypes = map[string]metadata.FileType{
	"mp4":  metadata.FileTypeVideo,
	"mkv":  metadata.FileTypeVideo,
	"webm": metadata.FileTypeVideo,
	"mov":  metadata.FileTypeVideo,
	"avi":  metadata.FileTypeVideo,
	"flv":  metadata.FileTypeVideo,
	"wmv":  metadata.FileTypeVideo,

	"mp3":  metadata.FileTypeAudio,
	"wav":  metadata.FileTypeAudio,
	"flac": metadata.FileTypeAudio,
	"aac":  metadata.FileTypeAudio,
	"m4a":  metadata.FileTypeAudio,
	"ogg":  metadata.FileTypeAudio,
	"wma":  metadata.FileTypeAudio,

	"srt": metadata.FileTypeSubtitle,
	"vtt": metadata.FileTypeSubtitle,
	"ass": metadata.FileTypeSubtitle,
	"ssa": metadata.FileTypeSubtitle,
	"sub": metadata.FileTypeSubtitle,
}

var mimeFileTypes = map[string]metadata.FileType{
	"video/mp4":        metadata.FileTypeVideo,
	"video/x-matroska": metadata.FileTypeVideo,
	"video/webm":       metadata.FileTypeVideo,
	"video/quicktime":  metadata.FileTypeVideo,
	"video/x-msvideo":  metadata.FileTypeVideo,
	"video/x-flv":      metadata.FileTypeVideo,
	"video/x-ms-wmv":   metadata.FileTypeVideo,

	"audio/mpeg":     metadata.FileTypeAudio,
	"audio/wav":      metadata.FileTypeAudio,
	"audio/x-wav":    metadata.FileTypeAudio,
	"audio/flac":     metadata.FileTypeAudio,
	"audio/x-flac":   metadata.FileTypeAudio,
	"audio/aac":      metadata.FileTypeAudio,
	"audio/mp4":      metadata.FileTypeAudio,
	"audio/ogg":      metadata.FileTypeAudio,
	"audio/x-ms-wma": metadata.FileTypeAudio,

	"text/plain":              metadata.FileTypeSubtitle,
	"application/x-subrip":    metadata.FileTypeSubtitle,
	"application/octet-stream": metadata.FileTypeSubtitle,
}

// fileTypeFromExtension maps a lowercased, dot-free extension to its
// logical file type, or reports false for anything not on the allow-list.
func fileTypeFromExtension(ext string) (metadata.FileType, bool) {
	ft, ok := extensionFileTypes[strings.ToLower(ext)]
	return ft, ok
}

// fileTypeFromMIME maps a declared MIME type (ignoring any parameters) to
// its logical file type. Subtitle formats are rarely sniffed precisely by
// clients, so the generic text/octet-stream types are accepted for that
// family; video and audio must match a specific container/codec MIME type.
func fileTypeFromMIME(mime string) (metadata.FileType, bool) {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	ft, ok := mimeFileTypes[base]
	return ft, ok
}

// sanitizeName strips path separators and control characters from a
// client-declared file name, rejecting empty results.
func sanitizeName(name string) (string, error) {
	const op = "uploadstore:put"

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apperr.New(apperr.KindInvalidArgument, op, "file name is required")
	}

	base := trimmed
	if idx := strings.LastIndexAny(trimmed, "/\\"); idx >= 0 {
		base = trimmed[idx+1:]
	}

	var b strings.Builder
	for _, r := range base {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimLeft(b.String(), ".")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", apperr.New(apperr.KindInvalidArgument, op, "file name is required")
	}

	const maxNameLen = 200
	if len(cleaned) > maxNameLen {
		ext := extOf(cleaned)
		keep := maxNameLen - len(ext)
		if keep < 1 {
			keep = 1
		}
		cleaned = cleaned[:keep] + ext
	}
	return cleaned, nil
}

func extOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return ""
	}
	return name[idx:]
}
