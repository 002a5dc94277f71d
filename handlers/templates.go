package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"p9e.in/safecheck/config"
	"p9e.in/safecheck/models"
)

// TemplateHandler manages checklist templates and their sections/items.
type TemplateHandler struct {
	db *gorm.DB
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{db: config.DB}
}

type templateItemRequest struct {
	Prompt                 string `json:"prompt"`
	IsRequired             *bool  `json:"is_required"`
	RequiresEvidenceOnFail *bool  `json:"requires_evidence_on_fail"`
}

type templateSectionRequest struct {
	Title string                `json:"title"`
	Items []templateItemRequest `json:"items"`
}

type createTemplateRequest struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Sections    []templateSectionRequest `json:"sections"`
}

// CreateTemplate creates a checklist template with its sections and items.
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	template := models.ChecklistTemplate{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	for si, sectionReq := range req.Sections {
		section := models.TemplateSection{
			Title:      sectionReq.Title,
			OrderIndex: si,
		}
		for ii, itemReq := range sectionReq.Items {
			item := models.TemplateItem{
				Prompt:                 itemReq.Prompt,
				IsRequired:             true,
				RequiresEvidenceOnFail: true,
				OrderIndex:             ii,
			}
			if itemReq.IsRequired != nil {
				item.IsRequired = *itemReq.IsRequired
			}
			if itemReq.RequiresEvidenceOnFail != nil {
				item.RequiresEvidenceOnFail = *itemReq.RequiresEvidenceOnFail
			}
			section.Items = append(section.Items, item)
		}
		template.Sections = append(template.Sections, section)
	}

	if err := h.db.Create(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			http.Error(w, "A template with this name already exists", http.StatusConflict)
			return
		}
		log.Printf("❌ Failed to create template: %v", err)
		http.Error(w, "Failed to create template", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Created template: %s (ID: %s)", template.Name, template.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(template)
}

// ListTemplates lists all templates with their sections and items.
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var templates []models.ChecklistTemplate
	if err := h.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("order_index asc") }).
		Preload("Sections.Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_index asc") }).
		Order("created_at desc").
		Find(&templates).Error; err != nil {
		http.Error(w, "Failed to fetch templates", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
	})
}

// GetTemplate retrieves one template by ID.
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	templateID := vars["id"]

	var template models.ChecklistTemplate
	if err := h.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("order_index asc") }).
		Preload("Sections.Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_index asc") }).
		First(&template, "id = ?", templateID).Error; err != nil {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(template)
}

type updateTemplateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateTemplate updates name/description. Section and item structure is
// immutable once inspections reference the template, so structural edits go
// through delete+recreate while nothing references it.
func (h *TemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	templateID := vars["id"]

	var req updateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	var template models.ChecklistTemplate
	if err := h.db.First(&template, "id = ?", templateID).Error; err != nil {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			http.Error(w, "Name cannot be empty", http.StatusBadRequest)
			return
		}
		template.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		template.Description = *req.Description
	}

	if err := h.db.Save(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			http.Error(w, "A template with this name already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to update template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(template)
}

// DeleteTemplate removes a template and cascades to its sections and items.
// Templates referenced by inspections cannot be deleted.
func (h *TemplateHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	templateID := vars["id"]

	var template models.ChecklistTemplate
	if err := h.db.First(&template, "id = ?", templateID).Error; err != nil {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}

	var inspectionCount int64
	if err := h.db.Model(&models.Inspection{}).Where("template_id = ?", template.ID).Count(&inspectionCount).Error; err != nil {
		http.Error(w, "Failed to check template usage", http.StatusInternalServerError)
		return
	}
	if inspectionCount > 0 {
		http.Error(w, "Template is referenced by inspections and cannot be deleted", http.StatusConflict)
		return
	}

	// Explicit parent-owns-children cascade: items, then sections, then the
	// template itself, in one transaction.
	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	sectionIDs := tx.Model(&models.TemplateSection{}).Select("id").Where("template_id = ?", template.ID)
	if err := tx.Where("section_id IN (?)", sectionIDs).Delete(&models.TemplateItem{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Failed to delete template items", http.StatusInternalServerError)
		return
	}
	if err := tx.Where("template_id = ?", template.ID).Delete(&models.TemplateSection{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Failed to delete template sections", http.StatusInternalServerError)
		return
	}
	if err := tx.Delete(&template).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Failed to delete template", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Failed to commit transaction", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Deleted template: %s", template.Name)
	w.WriteHeader(http.StatusNoContent)
}

// templateItems loads every item belonging to a template, keyed by item ID.
func templateItems(db *gorm.DB, templateID interface{}) ([]models.TemplateItem, error) {
	var items []models.TemplateItem
	err := db.
		Joins("JOIN template_sections ON template_sections.id = template_items.section_id").
		Where("template_sections.template_id = ?", templateID).
		Find(&items).Error
	return items, err
}
