package validation

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var (
	ErrFileSize     = errors.New("file size exceeds limit")
	ErrFileType     = errors.New("invalid file type")
	ErrFileRequired = errors.New("no file provided")
)

const (
	MaxImageSize       = 5 * 1024 * 1024  // 5MB
	MaxSpreadsheetSize = 10 * 1024 * 1024 // 10MB
)

var AllowedImageTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ValidateImage checks a store logo upload.
func ValidateImage(file *multipart.FileHeader) error {
	return validate(file, MaxImageSize, AllowedImageTypes)
}

// ValidateSpreadsheet checks a product import upload.
func ValidateSpreadsheet(file *multipart.FileHeader) error {
	return validate(file, MaxSpreadsheetSize, map[string]bool{".xlsx": true})
}

func validate(file *multipart.FileHeader, maxSize int64, allowed map[string]bool) error {
	if file == nil {
		return ErrFileRequired
	}

	if file.Size > maxSize {
		return ErrFileSize
	}

	ext := filepath.Ext(strings.ToLower(file.Filename))
	if !allowed[ext] {
		return ErrFileType
	}

	return nil
}
