package constants

import "strings"

// DocumentFormat groups accepted uploads into the two kinds the model understands.
type DocumentFormat string

const (
	PDF   DocumentFormat = "PDF"
	IMAGE DocumentFormat = "IMAGE"
)

// AllowedExtensions maps the accepted document extensions to their media type.
var AllowedExtensions = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"heic": "image/heic",
	"heif": "image/heif",
}

// MaxDocumentMB caps a single inline document; larger files are rejected before any model call.
const MaxDocumentMB = 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without dot) is an accepted document extension.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MIMETypeForExt returns the media type for an accepted extension, or "".
func MIMETypeForExt(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// IsAllowedMIMEType reports whether mt is one of the accepted media types.
func IsAllowedMIMEType(mt string) bool {
	mt = strings.ToLower(strings.TrimSpace(mt))
	for _, v := range AllowedExtensions {
		if v == mt {
			return true
		}
	}
	return false
}

// FormatForMIMEType maps a media type onto a DocumentFormat ("" when unsupported).
func FormatForMIMEType(mt string) DocumentFormat {
	switch {
	case mt == "application/pdf":
		return PDF
	case strings.HasPrefix(mt, "image/") && IsAllowedMIMEType(mt):
		return IMAGE
	default:
		return ""
	}
}
