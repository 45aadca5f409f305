package utils

import (
	rndm "math/rand"
	"mime/multipart"
	"net/http"
)

// --- Random String and ID Generators ---

var upperAlnumRunes = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

// GenerateUserToken creates a random upper-alphanumeric token of length n.
// Visitor IDs are 6 characters, matching what clients mint for themselves.
func GenerateUserToken(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = upperAlnumRunes[rndm.Intn(len(upperAlnumRunes))]
	}
	return string(b)
}

var lowerAlnumRunes = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

// GenerateID creates a random lowercase document ID of length n.
func GenerateID(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = lowerAlnumRunes[rndm.Intn(len(lowerAlnumRunes))]
	}
	return string(b)
}

// --- Image Validation ---

var SupportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

func ValidateImageFileType(w http.ResponseWriter, header *multipart.FileHeader) bool {
	mimeType := header.Header.Get("Content-Type")
	if !SupportedImageTypes[mimeType] {
		http.Error(w, "Invalid file type. Supported formats: JPEG, PNG, WebP, GIF.", http.StatusBadRequest)
		return false
	}
	return true
}
