package validation

import (
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImage(t *testing.T) {
	assert.ErrorIs(t, ValidateImage(nil), ErrFileRequired)
	assert.NoError(t, ValidateImage(&multipart.FileHeader{Filename: "logo.PNG", Size: 1024}))
	assert.ErrorIs(t, ValidateImage(&multipart.FileHeader{Filename: "logo.gif", Size: 1024}), ErrFileType)
	assert.ErrorIs(t, ValidateImage(&multipart.FileHeader{Filename: "logo.png", Size: MaxImageSize + 1}), ErrFileSize)
}

func TestValidateSpreadsheet(t *testing.T) {
	assert.NoError(t, ValidateSpreadsheet(&multipart.FileHeader{Filename: "products.xlsx", Size: 2048}))
	assert.ErrorIs(t, ValidateSpreadsheet(&multipart.FileHeader{Filename: "products.csv", Size: 2048}), ErrFileType)
}
