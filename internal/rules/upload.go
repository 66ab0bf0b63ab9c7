// internal/rules/upload.go
package rules

/*
 * File upload analysis.
 *
 * A field whose tokens carry any of the file family rules (file, image,
 * mimes, mimetypes) describes a multipart upload. AnalyzeFileUpload
 * folds the family into one description: extension lists keep both the
 * extensions and their mapped MIME types, size bounds convert from
 * kilobytes to bytes, and dimension constraints parse from their
 * key=value parameter text. A wildcard segment in the field path marks
 * a multi-file upload.
 *
 * Unknown extensions map to application/octet-stream so the MIME list
 * stays aligned with the extension list.
 */

import (
	"strconv"
	"strings"

	"github.com/solatis/formtrace/internal/types"
)

// mimeByExtension maps upload extensions to their MIME types.
var mimeByExtension = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"bmp":  "image/bmp",
	"ico":  "image/x-icon",
	"avif": "image/avif",
	"heic": "image/heic",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"csv":  "text/csv",
	"txt":  "text/plain",
	"rtf":  "application/rtf",
	"zip":  "application/zip",
	"rar":  "application/vnd.rar",
	"7z":   "application/x-7z-compressed",
	"tar":  "application/x-tar",
	"gz":   "application/gzip",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"webm": "video/webm",
	"json": "application/json",
	"xml":  "application/xml",
}

const defaultMimeType = "application/octet-stream"

var fileRuleNames = map[string]bool{
	"file":      true,
	"image":     true,
	"mimes":     true,
	"mimetypes": true,
}

// IsFileUpload reports whether a token list describes a file upload.
func IsFileUpload(tokens []types.RuleToken) bool {
	for _, t := range tokens {
		if fileRuleNames[t.Name] {
			return true
		}
	}
	return false
}

// MimeForExtension maps one extension to its MIME type.
func MimeForExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if mime, ok := mimeByExtension[ext]; ok {
		return mime
	}
	return defaultMimeType
}

// AnalyzeFileUpload folds the file rule family of a field into an
// upload description, or nil when the field is not an upload.
func AnalyzeFileUpload(field string, tokens []types.RuleToken) *types.FileUploadInfo {
	if !IsFileUpload(tokens) {
		return nil
	}
	info := &types.FileUploadInfo{
		Multiple: strings.Contains(field, "*"),
	}
	for _, t := range tokens {
		switch t.Name {
		case "image":
			info.IsImage = true
		case "mimes":
			for _, ext := range splitParams(t.Params) {
				info.Mimes = append(info.Mimes, ext)
				info.MimeTypes = append(info.MimeTypes, MimeForExtension(ext))
			}
		case "mimetypes":
			info.MimeTypes = append(info.MimeTypes, splitParams(t.Params)...)
		case "min":
			if kb, err := strconv.ParseInt(t.Params, 10, 64); err == nil {
				size := kb * 1024
				info.MinSize = &size
			}
		case "max":
			if kb, err := strconv.ParseInt(t.Params, 10, 64); err == nil {
				size := kb * 1024
				info.MaxSize = &size
			}
		case "dimensions":
			info.Dimensions = parseDimensions(t.Params)
		}
	}
	info.MimeTypes = dedupe(info.MimeTypes)
	return info
}

// parseDimensions parses a dimensions parameter list of key=value
// pairs. Unknown keys and malformed values are skipped.
func parseDimensions(params string) *types.Dimensions {
	dims := &types.Dimensions{}
	found := false
	for _, pair := range splitParams(params) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "ratio" {
			dims.Ratio = value
			found = true
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		switch key {
		case "width":
			dims.Width = &n
		case "height":
			dims.Height = &n
		case "min_width":
			dims.MinWidth = &n
		case "max_width":
			dims.MaxWidth = &n
		case "min_height":
			dims.MinHeight = &n
		case "max_height":
			dims.MaxHeight = &n
		default:
			continue
		}
		found = true
	}
	if !found {
		return nil
	}
	return dims
}

func splitParams(params string) []string {
	var parts []string
	for _, part := range strings.Split(params, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func dedupe(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
