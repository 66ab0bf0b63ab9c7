// internal/rules/upload_test.go
package rules

import (
	"reflect"
	"testing"
)

func TestIsFileUpload(t *testing.T) {
	tests := []struct {
		name  string
		rules string
		want  bool
	}{
		{name: "file", rules: "required|file", want: true},
		{name: "image", rules: "image|max:1024", want: true},
		{name: "mimes", rules: "mimes:pdf", want: true},
		{name: "mimetypes", rules: "mimetypes:application/pdf", want: true},
		{name: "plain string", rules: "required|string|max:255", want: false},
		{name: "empty", rules: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFileUpload(toks(tt.rules)); got != tt.want {
				t.Errorf("IsFileUpload(%q) = %v, want %v", tt.rules, got, tt.want)
			}
		})
	}
}

func TestMimeForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{ext: "jpg", want: "image/jpeg"},
		{ext: "jpeg", want: "image/jpeg"},
		{ext: "PNG", want: "image/png"},
		{ext: ".gif", want: "image/gif"},
		{ext: " pdf ", want: "application/pdf"},
		{ext: "docx", want: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{ext: "mp4", want: "video/mp4"},
		{ext: "xyz", want: "application/octet-stream"},
		{ext: "", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := MimeForExtension(tt.ext); got != tt.want {
				t.Errorf("MimeForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

// Scenario: an avatar upload constrained to jpeg/png under one megabyte.
func TestAnalyzeFileUpload_ImageWithMimesAndMax(t *testing.T) {
	info := AnalyzeFileUpload("avatar", toks("required|image|mimes:jpeg,png|max:1024"))
	if info == nil {
		t.Fatalf("AnalyzeFileUpload() = nil, want upload info")
	}
	if !info.IsImage {
		t.Errorf("IsImage = false, want true")
	}
	if want := []string{"jpeg", "png"}; !reflect.DeepEqual(info.Mimes, want) {
		t.Errorf("Mimes = %v, want %v", info.Mimes, want)
	}
	if want := []string{"image/jpeg", "image/png"}; !reflect.DeepEqual(info.MimeTypes, want) {
		t.Errorf("MimeTypes = %v, want %v", info.MimeTypes, want)
	}
	if info.MaxSize == nil || *info.MaxSize != 1048576 {
		t.Errorf("MaxSize = %v, want 1048576", info.MaxSize)
	}
	if info.Multiple {
		t.Errorf("Multiple = true, want false")
	}
}

func TestAnalyzeFileUpload_NotAnUpload(t *testing.T) {
	if info := AnalyzeFileUpload("name", toks("required|string|max:255")); info != nil {
		t.Errorf("AnalyzeFileUpload() = %+v, want nil", info)
	}
}

func TestAnalyzeFileUpload_DirectMimeTypes(t *testing.T) {
	info := AnalyzeFileUpload("document", toks("file|mimetypes:application/pdf,text/plain"))
	if info == nil {
		t.Fatalf("AnalyzeFileUpload() = nil, want upload info")
	}
	if want := []string{"application/pdf", "text/plain"}; !reflect.DeepEqual(info.MimeTypes, want) {
		t.Errorf("MimeTypes = %v, want %v", info.MimeTypes, want)
	}
	if len(info.Mimes) != 0 {
		t.Errorf("Mimes = %v, want empty", info.Mimes)
	}
}

func TestAnalyzeFileUpload_DedupesMimeTypes(t *testing.T) {
	info := AnalyzeFileUpload("photo", toks("mimes:jpg,jpeg"))
	if info == nil {
		t.Fatalf("AnalyzeFileUpload() = nil, want upload info")
	}
	// Both extensions stay; the shared MIME type appears once.
	if want := []string{"jpg", "jpeg"}; !reflect.DeepEqual(info.Mimes, want) {
		t.Errorf("Mimes = %v, want %v", info.Mimes, want)
	}
	if want := []string{"image/jpeg"}; !reflect.DeepEqual(info.MimeTypes, want) {
		t.Errorf("MimeTypes = %v, want %v", info.MimeTypes, want)
	}
}

func TestAnalyzeFileUpload_SizeBounds(t *testing.T) {
	info := AnalyzeFileUpload("archive", toks("file|min:100|max:2048"))
	if info == nil {
		t.Fatalf("AnalyzeFileUpload() = nil, want upload info")
	}
	if info.MinSize == nil || *info.MinSize != 102400 {
		t.Errorf("MinSize = %v, want 102400", info.MinSize)
	}
	if info.MaxSize == nil || *info.MaxSize != 2097152 {
		t.Errorf("MaxSize = %v, want 2097152", info.MaxSize)
	}
}

func TestAnalyzeFileUpload_WildcardIsMultiple(t *testing.T) {
	if info := AnalyzeFileUpload("attachments.*", toks("file|max:512")); info == nil || !info.Multiple {
		t.Errorf("attachments.* Multiple = false, want true")
	}
	if info := AnalyzeFileUpload("attachment", toks("file|max:512")); info == nil || info.Multiple {
		t.Errorf("attachment Multiple = true, want false")
	}
}

func TestAnalyzeFileUpload_Dimensions(t *testing.T) {
	info := AnalyzeFileUpload("banner", toks("file|dimensions:min_width=100,max_height=200,ratio=3/2"))
	if info == nil || info.Dimensions == nil {
		t.Fatalf("Dimensions = nil, want parsed constraints")
	}
	dims := info.Dimensions
	if dims.MinWidth == nil || *dims.MinWidth != 100 {
		t.Errorf("MinWidth = %v, want 100", dims.MinWidth)
	}
	if dims.MaxHeight == nil || *dims.MaxHeight != 200 {
		t.Errorf("MaxHeight = %v, want 200", dims.MaxHeight)
	}
	if dims.Ratio != "3/2" {
		t.Errorf("Ratio = %q, want 3/2", dims.Ratio)
	}
	if dims.Width != nil || dims.Height != nil {
		t.Errorf("unconstrained axes set: width=%v height=%v", dims.Width, dims.Height)
	}
}

func TestParseDimensions(t *testing.T) {
	dims := parseDimensions("width=640,height=480")
	if dims == nil {
		t.Fatalf("parseDimensions() = nil, want constraints")
	}
	if dims.Width == nil || *dims.Width != 640 {
		t.Errorf("Width = %v, want 640", dims.Width)
	}
	if dims.Height == nil || *dims.Height != 480 {
		t.Errorf("Height = %v, want 480", dims.Height)
	}

	// Malformed pairs and unknown keys never produce constraints.
	if dims := parseDimensions("foo=bar,banana,depth=10"); dims != nil {
		t.Errorf("parseDimensions(malformed) = %+v, want nil", dims)
	}
	if dims := parseDimensions(""); dims != nil {
		t.Errorf("parseDimensions(empty) = %+v, want nil", dims)
	}
}
