package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"p9e.in/safecheck/config"
	"p9e.in/safecheck/models"
)

// exportRow is one checklist item line in an export.
type exportRow struct {
	Section string
	Prompt  string
	Result  string
	Note    string
	Actions int
	Media   int
}

// loadExportData flattens an inspection into ordered rows following the
// template's section and item order.
func loadExportData(db *gorm.DB, inspectionID string) (*models.Inspection, []exportRow, error) {
	var inspection models.Inspection
	err := db.
		Preload("Template.Sections", func(db *gorm.DB) *gorm.DB { return db.Order("order_index asc") }).
		Preload("Template.Sections.Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_index asc") }).
		Preload("Inspector").
		Preload("Responses.MediaFiles").
		Preload("Actions").
		First(&inspection, "id = ?", inspectionID).Error
	if err != nil {
		return nil, nil, err
	}

	responseByItem := make(map[string]*models.InspectionResponse)
	for i := range inspection.Responses {
		responseByItem[inspection.Responses[i].TemplateItemID.String()] = &inspection.Responses[i]
	}
	actionsByResponse := make(map[string]int)
	for _, action := range inspection.Actions {
		if action.ResponseID != nil {
			actionsByResponse[action.ResponseID.String()]++
		}
	}

	var rows []exportRow
	if inspection.Template != nil {
		for _, section := range inspection.Template.Sections {
			for _, item := range section.Items {
				row := exportRow{
					Section: section.Title,
					Prompt:  item.Prompt,
					Result:  models.ResultPending,
				}
				if resp, ok := responseByItem[item.ID.String()]; ok {
					row.Result = resp.Result
					if resp.Note != nil {
						row.Note = *resp.Note
					}
					row.Actions = actionsByResponse[resp.ID.String()]
					row.Media = len(resp.MediaFiles)
				}
				rows = append(rows, row)
			}
		}
	}
	return &inspection, rows, nil
}

// ExportInspectionToExcel exports one inspection to Excel format
func ExportInspectionToExcel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	inspection, rows, err := loadExportData(config.DB, vars["id"])
	if err != nil {
		http.Error(w, "Inspection not found", http.StatusNotFound)
		return
	}

	f := excelize.NewFile()
	sheetName := "Inspection"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		http.Error(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	title := fmt.Sprintf("Inspection #%d", inspection.ID)
	if inspection.Template != nil {
		title = fmt.Sprintf("Inspection #%d – %s", inspection.ID, inspection.Template.Name)
	}
	f.SetCellValue(sheetName, "A1", title)
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)

	meta := [][]interface{}{
		{"Status", inspection.Status},
		{"Location", inspection.Location},
		{"Started", inspection.StartedAt.Format("2006-01-02 15:04")},
	}
	if inspection.Inspector != nil {
		meta = append(meta, []interface{}{"Inspector", inspection.Inspector.FullName})
	}
	if inspection.OverallScore != nil {
		meta = append(meta, []interface{}{"Score", *inspection.OverallScore})
	}
	for i, pair := range meta {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+2)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+2)
		f.SetCellValue(sheetName, keyCell, pair[0])
		f.SetCellValue(sheetName, valueCell, pair[1])
	}

	headerRow := len(meta) + 3
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	headers := []string{"Section", "Item", "Result", "Note", "Actions", "Attachments"}
	for colIdx, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, headerRow)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	f.SetColWidth(sheetName, "A", "B", 35)
	f.SetColWidth(sheetName, "C", "F", 14)

	for rowIdx, row := range rows {
		values := []interface{}{row.Section, row.Prompt, row.Result, row.Note, row.Actions, row.Media}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, headerRow+1+rowIdx)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	f.DeleteSheet("Sheet1")

	buffer, err := f.WriteToBuffer()
	if err != nil {
		http.Error(w, "Failed to write Excel file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("inspection_%d_%s.xlsx", inspection.ID, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}

// ExportInspectionToCSV exports one inspection to CSV format
func ExportInspectionToCSV(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	inspection, rows, err := loadExportData(config.DB, vars["id"])
	if err != nil {
		http.Error(w, "Inspection not found", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Write([]string{"Section", "Item", "Result", "Note", "Actions", "Attachments"})
	for _, row := range rows {
		writer.Write([]string{
			row.Section,
			row.Prompt,
			row.Result,
			row.Note,
			fmt.Sprintf("%d", row.Actions),
			fmt.Sprintf("%d", row.Media),
		})
	}
	writer.Flush()
	if writer.Error() != nil {
		http.Error(w, "Failed to generate CSV file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("inspection_%d_%s.csv", inspection.ID, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
