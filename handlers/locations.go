package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
	"p9e.in/safecheck/config"
	"p9e.in/safecheck/models"
)

// ensureLocationByName returns the location with the given name, creating it
// when missing. Names are matched after trimming.
func ensureLocationByName(tx *gorm.DB, name string) (*models.Location, error) {
	normalized := strings.TrimSpace(name)
	if normalized == "" {
		return nil, nil
	}
	var location models.Location
	err := tx.Where("name = ?", normalized).First(&location).Error
	if err == nil {
		return &location, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	location = models.Location{Name: normalized}
	if err := tx.Create(&location).Error; err != nil {
		// Another request may have created it in between.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if retryErr := tx.Where("name = ?", normalized).First(&location).Error; retryErr == nil {
				return &location, nil
			}
		}
		return nil, err
	}
	return &location, nil
}

// ListLocations returns all known locations.
func ListLocations(w http.ResponseWriter, r *http.Request) {
	var locations []models.Location
	if err := config.DB.Order("name asc").Find(&locations).Error; err != nil {
		http.Error(w, "Failed to fetch locations", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"locations": locations,
		"count":     len(locations),
	})
}

// CreateLocation registers a new location name.
func CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	location, err := ensureLocationByName(config.DB, req.Name)
	if err != nil {
		http.Error(w, "Failed to create location", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(location)
}
