package filemgr

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"matsuri/utils"

	"github.com/disintegration/imaging"
)

const (
	bannerDir    = "./static/banners"
	thumbDir     = "./static/banners/thumb"
	maxUploadMem = 10 << 20 // 10 MB
	thumbWidth   = 320
)

func init() {
	os.MkdirAll(bannerDir, 0755)
	os.MkdirAll(thumbDir, 0755)
}

// SaveBanner stores the uploaded banner image for an attraction and writes
// a fixed-width thumbnail next to it. On validation failure the HTTP error
// has already been written; callers just return.
func SaveBanner(w http.ResponseWriter, r *http.Request, attractionID string) (string, error) {
	if err := r.ParseMultipartForm(maxUploadMem); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return "", err
	}

	file, header, err := r.FormFile("banner")
	if err != nil {
		http.Error(w, "banner file is required", http.StatusBadRequest)
		return "", err
	}
	defer file.Close()

	if !utils.ValidateImageFileType(w, header) {
		return "", fmt.Errorf("unsupported image type")
	}

	img, err := imaging.Decode(file)
	if err != nil {
		http.Error(w, "could not decode image", http.StatusBadRequest)
		return "", err
	}

	filename := attractionID + ".jpg"
	if err := imaging.Save(img, filepath.Join(bannerDir, filename)); err != nil {
		http.Error(w, "could not store image", http.StatusInternalServerError)
		return "", err
	}

	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, filename)); err != nil {
		http.Error(w, "could not store thumbnail", http.StatusInternalServerError)
		return "", err
	}

	return "/static/banners/" + filename, nil
}
