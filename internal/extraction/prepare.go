package extraction

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"

	"github.com/zombor/scanly/internal/common"
)

// MaxUploadSize is the largest file accepted for extraction
const MaxUploadSize = 50 << 20

// accepted lists the content types the extraction endpoint takes
var accepted = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/bmp":       true,
	"application/pdf": true,
}

var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".pdf":  "application/pdf",
	".heic": "image/heic",
	".heif": "image/heif",
}

var (
	specialChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Upload is a file chosen for extraction
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte

	// Progress, when set, receives the request body as it is sent
	Progress io.Writer
}

// Prepare checks an upload before it is sent and normalizes it: the content
// type is resolved, HEIC/HEIF photos are converted to PNG, PDFs must have at
// least one page and the filename is cleaned up. Rejections are validation
// errors.
func Prepare(u Upload) (Upload, error) {
	if len(u.Data) == 0 {
		return Upload{}, common.NewValidationError("file", "Please choose a file to upload")
	}
	if len(u.Data) > MaxUploadSize {
		return Upload{}, common.NewValidationError("file", "File is too large (maximum 50 MB)")
	}

	out := u
	out.Filename = sanitizeFilename(u.Filename)
	out.ContentType = detectContentType(u.Filename, u.ContentType, u.Data)

	if isHEICFormat(u.Data) || isHEICMimeType(out.ContentType) {
		pngData, err := heicToPNG(u.Data)
		if err != nil {
			return Upload{}, common.NewValidationError("file", "Could not read HEIC/HEIF image")
		}
		out.Data = pngData
		out.ContentType = "image/png"
		out.Filename = strings.TrimSuffix(out.Filename, filepath.Ext(out.Filename)) + ".png"
		return out, nil
	}

	if !accepted[out.ContentType] {
		return Upload{}, common.NewValidationError("file",
			"Unsupported file type. Supported formats: PNG, JPEG, GIF, BMP, HEIC, PDF")
	}

	if out.ContentType == "application/pdf" {
		if err := checkPDF(u.Data); err != nil {
			return Upload{}, common.NewValidationError("file", "Could not read PDF: "+err.Error())
		}
	}

	return out, nil
}

// detectContentType prefers the declared type, then the file extension, then
// the file's leading bytes
func detectContentType(filename, declared string, data []byte) string {
	mimeType := normalizeMimeType(declared)
	if mimeType != "" && mimeType != "application/octet-stream" {
		return mimeType
	}
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return normalizeMimeType(http.DetectContentType(data))
}

func normalizeMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-ms-bmp", "image/x-bmp":
		return "image/bmp"
	}
	return mimeType
}

func heicToPNG(data []byte) ([]byte, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func checkPDF(data []byte) error {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() < 1 {
		return fmt.Errorf("document has no pages")
	}
	return nil
}

// isHEICFormat checks for an ftyp box with a HEIC/HEIF brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// sanitizeFilename removes special characters and truncates long
// phone-generated names
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.ToSlash(filename))
	if filename == "." || filename == "/" {
		filename = ""
	}
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = specialChars.ReplaceAllString(base, "")
	base = whitespace.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}

	return base + strings.ToLower(ext)
}
