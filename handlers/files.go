package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"p9e.in/safecheck/config"
	"p9e.in/safecheck/middleware"
	"p9e.in/safecheck/models"
)

const (
	uploadDir = "./uploads" // Local directory for file storage
)

// UploadAttachment stores an uploaded file on the local filesystem and
// records a media row against either a response (response_id form field) or
// a corrective action (action_id form field). Exactly one target is
// required.
func UploadAttachment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		http.Error(w, "failed to create upload directory: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Parse the multipart form (max 50MB)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		http.Error(w, "bad multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	media := models.MediaFile{}
	responseField := r.FormValue("response_id")
	actionField := r.FormValue("action_id")
	switch {
	case responseField != "" && actionField != "":
		http.Error(w, "attach to a response or an action, not both", http.StatusBadRequest)
		return
	case responseField != "":
		responseID, err := uuid.Parse(responseField)
		if err != nil {
			http.Error(w, "invalid response_id", http.StatusBadRequest)
			return
		}
		var response models.InspectionResponse
		if err := config.DB.First(&response, "id = ?", responseID).Error; err != nil {
			http.Error(w, "response not found", http.StatusNotFound)
			return
		}
		media.ResponseID = &responseID
	case actionField != "":
		actionID, err := strconv.ParseUint(actionField, 10, 32)
		if err != nil {
			http.Error(w, "invalid action_id", http.StatusBadRequest)
			return
		}
		var action models.CorrectiveAction
		if err := config.DB.First(&action, uint(actionID)).Error; err != nil {
			http.Error(w, "action not found", http.StatusNotFound)
			return
		}
		id := uint(actionID)
		media.ActionID = &id
	default:
		http.Error(w, "response_id or action_id is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Timestamped filename to avoid collisions.
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("%s-%s", timestamp, header.Filename)
	storagePath := filepath.Join(uploadDir, filename)

	dst, err := os.Create(storagePath)
	if err != nil {
		http.Error(w, "failed to create file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	size, err := io.Copy(dst, file)
	if err != nil {
		http.Error(w, "failed to save file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	media.FileURL = fmt.Sprintf("/uploads/%s", filename)
	media.StoragePath = storagePath
	media.SizeBytes = &size
	if header.Filename != "" {
		name := header.Filename
		media.OriginalName = &name
	}
	if mime := header.Header.Get("Content-Type"); mime != "" {
		media.MimeType = &mime
	}
	if description := r.FormValue("description"); description != "" {
		media.Description = &description
	}
	if userID, err := uuid.Parse(claims.UserID); err == nil {
		media.UploadedByID = &userID
	}

	if err := config.DB.Create(&media).Error; err != nil {
		os.Remove(storagePath)
		http.Error(w, "failed to record attachment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(media)
}

// DeleteAttachment removes a media row and its file from disk. Attachments
// on closed actions or submitted inspections stay as evidence.
func DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	mediaID := r.URL.Query().Get("id")
	if mediaID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	var media models.MediaFile
	if err := config.DB.First(&media, "id = ?", mediaID).Error; err != nil {
		http.Error(w, "attachment not found", http.StatusNotFound)
		return
	}

	if media.ResponseID != nil {
		var inspection models.Inspection
		err := config.DB.
			Joins("JOIN inspection_responses ON inspection_responses.inspection_id = inspections.id").
			Where("inspection_responses.id = ?", *media.ResponseID).
			First(&inspection).Error
		if err == nil && inspection.Status != models.InspectionDraft && inspection.Status != models.InspectionRejected {
			http.Error(w, "attachments on submitted inspections cannot be removed", http.StatusConflict)
			return
		}
	}
	if media.ActionID != nil {
		var action models.CorrectiveAction
		if err := config.DB.First(&action, *media.ActionID).Error; err == nil && action.Status == models.ActionClosed {
			http.Error(w, "attachments on closed actions cannot be removed", http.StatusConflict)
			return
		}
	}

	if err := config.DB.Delete(&media).Error; err != nil {
		http.Error(w, "failed to delete attachment", http.StatusInternalServerError)
		return
	}
	if media.StoragePath != "" {
		os.Remove(media.StoragePath)
	}

	w.WriteHeader(http.StatusNoContent)
}
