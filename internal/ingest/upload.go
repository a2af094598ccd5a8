package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm"
)

// MaxDocumentBytes caps a single document.
const MaxDocumentBytes = int64(constants.MaxDocumentMB) << 20

// DetectMIME resolves the media type from the extension, falling back to
// content sniffing when the name carries no known extension.
func DetectMIME(name string, data []byte) string {
	if mt := constants.MIMETypeForExt(filepath.Ext(name)); mt != "" {
		return mt
	}
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

// FromUpload builds a Document from an uploaded file's name and content.
func FromUpload(name string, data []byte) (llm.Document, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if len(data) == 0 {
		return llm.Document{}, fmt.Errorf("%w: %s is empty", common.ErrInvalidInput, name)
	}
	if int64(len(data)) > MaxDocumentBytes {
		return llm.Document{}, fmt.Errorf("%w: %s exceeds %d MB", common.ErrInvalidInput, name, constants.MaxDocumentMB)
	}
	mt := DetectMIME(name, data)
	if !constants.IsAllowedMIMEType(mt) {
		return llm.Document{}, fmt.Errorf("%w: %s (%s)", common.ErrUnsupportedMedia, name, mt)
	}
	sum := sha256.Sum256(data)
	return llm.Document{
		Name:     name,
		MIMEType: mt,
		Data:     data,
		HashHex:  hex.EncodeToString(sum[:]),
	}, nil
}
