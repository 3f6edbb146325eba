// Package upload validates candidate files against a deadline's rule and tracks their uploads.
package upload

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const mb = 1024 * 1024

// File is a candidate for upload. Type is the declared MIME type.
type File struct {
	Name    string
	Size    int64
	Type    string
	Content io.Reader
}

// Ext returns the upper-cased extension of the file name, without the dot.
func (f File) Ext() string {
	return strings.ToUpper(strings.TrimPrefix(filepath.Ext(f.Name), "."))
}

// Rule tells which files a deadline accepts. Formats are extensions, eg: {"PDF", "DOCX"}.
type Rule struct {
	Formats   []string `json:"formats"`
	MaxSizeMB int      `json:"max_size_mb"`
}

// RejectedError explains why a file was not accepted.
type RejectedError struct {
	File   string
	Reason string
}

func (e *RejectedError) Error() string { return e.Reason }

func (r Rule) accepts(ext string) bool {
	if len(r.Formats) == 0 {
		return true
	}
	for _, f := range r.Formats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}

// Accepted returns the accepted formats as displayed to the user.
func (r Rule) Accepted() string {
	formats := make([]string, 0, len(r.Formats))
	for _, f := range r.Formats {
		formats = append(formats, strings.ToUpper(f))
	}
	return strings.Join(formats, ", ")
}

// Check accepts the file or returns a *RejectedError with the reason.
// Only the declared name and size are checked; the content is not inspected.
func (r Rule) Check(f File) error {
	if f.Size < 0 {
		return &RejectedError{File: f.Name, Reason: "File size is invalid"}
	}
	if r.MaxSizeMB > 0 && f.Size > int64(r.MaxSizeMB)*mb {
		return &RejectedError{
			File:   f.Name,
			Reason: fmt.Sprintf("File size exceeds the maximum allowed (%d MB)", r.MaxSizeMB),
		}
	}
	if !r.accepts(f.Ext()) {
		return &RejectedError{
			File:   f.Name,
			Reason: "File type not allowed. Accepted formats: " + r.Accepted(),
		}
	}
	return nil
}
