package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"
	"p9e.in/safecheck/config"
	"p9e.in/safecheck/models"
)

// getSeveritySLA loads the singleton SLA record, creating it with defaults
// if it does not exist yet.
func getSeveritySLA(db *gorm.DB) (*models.SeveritySLA, error) {
	var sla models.SeveritySLA
	err := db.Order("id asc").First(&sla).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sla = models.SeveritySLA{LowDays: 30, MediumDays: 7, HighDays: 1}
		if err := db.Create(&sla).Error; err != nil {
			return nil, err
		}
		log.Println("✅ Created default severity SLA record")
		return &sla, nil
	}
	if err != nil {
		return nil, err
	}
	return &sla, nil
}

// slaDays maps a severity to its configured day offset. Unknown severities
// fall back to the medium offset.
func slaDays(sla *models.SeveritySLA, severity string) int {
	switch severity {
	case models.SeverityLow:
		return sla.LowDays
	case models.SeverityMedium:
		return sla.MediumDays
	case models.SeverityHigh:
		return sla.HighDays
	default:
		return sla.MediumDays
	}
}

// dueDateForSeverity computes the default corrective-action due date.
func dueDateForSeverity(sla *models.SeveritySLA, createdAt time.Time, severity string) time.Time {
	return createdAt.AddDate(0, 0, slaDays(sla, severity))
}

// GetSeveritySLA returns the current SLA configuration.
func GetSeveritySLA(w http.ResponseWriter, r *http.Request) {
	sla, err := getSeveritySLA(config.DB)
	if err != nil {
		http.Error(w, "Failed to load SLA config", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sla)
}

type updateSLARequest struct {
	LowDays    *int `json:"low_days"`
	MediumDays *int `json:"medium_days"`
	HighDays   *int `json:"high_days"`
}

// UpdateSeveritySLA partially updates the singleton SLA record. Last writer
// wins; generation reads the record per call.
func UpdateSeveritySLA(w http.ResponseWriter, r *http.Request) {
	var req updateSLARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	sla, err := getSeveritySLA(config.DB)
	if err != nil {
		http.Error(w, "Failed to load SLA config", http.StatusInternalServerError)
		return
	}

	if req.LowDays != nil {
		if *req.LowDays < 1 {
			http.Error(w, "low_days must be at least 1", http.StatusBadRequest)
			return
		}
		sla.LowDays = *req.LowDays
	}
	if req.MediumDays != nil {
		if *req.MediumDays < 1 {
			http.Error(w, "medium_days must be at least 1", http.StatusBadRequest)
			return
		}
		sla.MediumDays = *req.MediumDays
	}
	if req.HighDays != nil {
		if *req.HighDays < 1 {
			http.Error(w, "high_days must be at least 1", http.StatusBadRequest)
			return
		}
		sla.HighDays = *req.HighDays
	}

	if err := config.DB.Save(sla).Error; err != nil {
		http.Error(w, "Failed to update SLA config", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Updated severity SLA (low:%d medium:%d high:%d)", sla.LowDays, sla.MediumDays, sla.HighDays)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sla)
}
