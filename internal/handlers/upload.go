package handlers

import (
	"net/http"
	"strings"

	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
)

const maxUploadSize = 10 << 20 // 10 MB

var allowedUploadFolders = map[string]bool{
	"avatars":     true,
	"covers":      true,
	"attachments": true,
}

// Upload accepts a multipart image and stores it in Cloudinary, returning
// the hosted URL. The optional "folder" field selects the target folder.
func Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAuth(w, r); !ok {
		return
	}

	if cloudinarySvc == nil {
		writeError(w, apperrors.Internal("Uploads are not configured"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, apperrors.Validation("Invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperrors.Validation("Missing file field"))
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		writeError(w, apperrors.Validation("File exceeds the 10 MB limit"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, apperrors.Validation("Only image uploads are allowed"))
		return
	}

	folder := strings.TrimSpace(r.FormValue("folder"))
	if folder == "" {
		folder = "attachments"
	}
	if !allowedUploadFolders[folder] {
		writeError(w, apperrors.Validation("Unknown upload folder"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	url, err := cloudinarySvc.UploadFile(ctx, file, "mindbridge/"+folder)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to upload file", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"url":     url,
	})
}
