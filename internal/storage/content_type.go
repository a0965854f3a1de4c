package storage

import (
	"mime"
	"path/filepath"
	"strings"
)

// DetectContentType picks the MIME type of an object: the provided type
// when set, otherwise the one registered for the key extension.
func DetectContentType(providedType, key string) string {
	if providedType != "" {
		return providedType
	}
	switch strings.ToLower(filepath.Ext(key)) {
	case ".json":
		return "application/json"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// decodableImageTypes are the source formats the thumbnailer can decode.
var decodableImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// IsDecodableImage reports whether a Content-Type header names an image
// format the thumbnailer can decode.
func IsDecodableImage(contentType string) bool {
	base := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	return decodableImageTypes[base]
}
