package handlers

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"p9e.in/safecheck/models"
)

func TestCalculateOverallScore(t *testing.T) {
	tests := []struct {
		name     string
		results  []string
		expected float64
	}{
		{"all pass", []string{"pass", "pass", "pass"}, 100.0},
		{"all fail", []string{"fail", "fail"}, 0.0},
		{"two thirds pass", []string{"pass", "pass", "fail"}, 66.67},
		{"pending ignored", []string{"pass", "fail", "pending", "pending"}, 50.0},
		{"only pending", []string{"pending", "pending"}, 0.0},
		{"no responses", nil, 0.0},
		{"one of seven", []string{"pass", "fail", "fail", "fail", "fail", "fail", "fail"}, 14.29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var responses []models.InspectionResponse
			for _, result := range tt.results {
				responses = append(responses, models.InspectionResponse{ID: uuid.New(), Result: result})
			}
			got := calculateOverallScore(responses)
			if got != tt.expected {
				t.Errorf("calculateOverallScore(%v) = %v, want %v", tt.results, got, tt.expected)
			}
		})
	}
}

func TestValidateSubmissionMissingRequired(t *testing.T) {
	required := models.TemplateItem{ID: uuid.New(), Prompt: "Fire extinguisher charged", IsRequired: true}
	optional := models.TemplateItem{ID: uuid.New(), Prompt: "Signage legible", IsRequired: false}
	items := []models.TemplateItem{required, optional}

	// No responses at all: only the required item is reported.
	problems := validateSubmission(items, nil, nil, nil)
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %d: %v", len(problems), problems)
	}
	if !strings.Contains(problems[0], "Fire extinguisher charged") {
		t.Errorf("problem should name the item prompt, got %q", problems[0])
	}

	// A pending response satisfies a required item: recorded but unscored,
	// it is simply left out of the score.
	responses := []models.InspectionResponse{
		{ID: uuid.New(), TemplateItemID: required.ID, Result: models.ResultPending},
	}
	problems = validateSubmission(items, responses, nil, nil)
	if len(problems) != 0 {
		t.Fatalf("pending response: expected no problems, got %v", problems)
	}

	// So does a scored one.
	responses[0].Result = models.ResultPass
	problems = validateSubmission(items, responses, nil, nil)
	if len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestValidateSubmissionAllPendingSubmitsWithZeroScore(t *testing.T) {
	itemA := models.TemplateItem{ID: uuid.New(), Prompt: "Hoses coiled", IsRequired: true}
	itemB := models.TemplateItem{ID: uuid.New(), Prompt: "Spill kit present", IsRequired: true}
	responses := []models.InspectionResponse{
		{ID: uuid.New(), TemplateItemID: itemA.ID, Result: models.ResultPending},
		{ID: uuid.New(), TemplateItemID: itemB.ID, Result: models.ResultPending},
	}

	problems := validateSubmission([]models.TemplateItem{itemA, itemB}, responses, nil, nil)
	if len(problems) != 0 {
		t.Fatalf("all-pending inspection should be submittable, got %v", problems)
	}
	if score := calculateOverallScore(responses); score != 0.0 {
		t.Errorf("all-pending score = %v, want 0.0", score)
	}
}

func TestValidateSubmissionFailingNeedsActionAndEvidence(t *testing.T) {
	item := models.TemplateItem{
		ID:                     uuid.New(),
		Prompt:                 "Guard rails secured",
		IsRequired:             true,
		RequiresEvidenceOnFail: true,
	}
	items := []models.TemplateItem{item}

	failing := models.InspectionResponse{
		ID:             uuid.New(),
		TemplateItemID: item.ID,
		Result:         models.ResultFail,
	}

	// Failing with no action and no attachment: both gates fire.
	problems := validateSubmission(items, []models.InspectionResponse{failing}, nil, nil)
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %d: %v", len(problems), problems)
	}

	// Linking an action clears the first gate only.
	responseID := failing.ID
	action := models.CorrectiveAction{ID: 7, ResponseID: &responseID}
	problems = validateSubmission(items, []models.InspectionResponse{failing}, []models.CorrectiveAction{action}, nil)
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %d: %v", len(problems), problems)
	}
	if !strings.Contains(problems[0], "attachment") {
		t.Errorf("remaining problem should be the attachment gate, got %q", problems[0])
	}

	// An attachment on the action satisfies the evidence gate.
	problems = validateSubmission(items, []models.InspectionResponse{failing}, []models.CorrectiveAction{action}, map[uint]int{7: 1})
	if len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}

	// An attachment on the response itself works too.
	failing.MediaFiles = []models.MediaFile{{ID: uuid.New()}}
	problems = validateSubmission(items, []models.InspectionResponse{failing}, []models.CorrectiveAction{action}, nil)
	if len(problems) != 0 {
		t.Fatalf("response attachment: expected no problems, got %v", problems)
	}
}

func TestValidateSubmissionEvidenceNotRequired(t *testing.T) {
	item := models.TemplateItem{
		ID:                     uuid.New(),
		Prompt:                 "Break room stocked",
		IsRequired:             true,
		RequiresEvidenceOnFail: false,
	}
	failing := models.InspectionResponse{
		ID:             uuid.New(),
		TemplateItemID: item.ID,
		Result:         models.ResultFail,
	}

	problems := validateSubmission([]models.TemplateItem{item}, []models.InspectionResponse{failing}, nil, nil)
	if len(problems) != 0 {
		t.Fatalf("item without evidence requirement should pass validation, got %v", problems)
	}
}

func TestValidateSubmissionPassingFailureItemNeedsNothing(t *testing.T) {
	item := models.TemplateItem{
		ID:                     uuid.New(),
		Prompt:                 "Exits unobstructed",
		IsRequired:             true,
		RequiresEvidenceOnFail: true,
	}
	passing := models.InspectionResponse{
		ID:             uuid.New(),
		TemplateItemID: item.ID,
		Result:         models.ResultPass,
	}

	problems := validateSubmission([]models.TemplateItem{item}, []models.InspectionResponse{passing}, nil, nil)
	if len(problems) != 0 {
		t.Fatalf("passing response should need no evidence, got %v", problems)
	}
}

func TestValidateSubmissionReportsAllProblems(t *testing.T) {
	itemA := models.TemplateItem{ID: uuid.New(), Prompt: "Item A", IsRequired: true, RequiresEvidenceOnFail: true}
	itemB := models.TemplateItem{ID: uuid.New(), Prompt: "Item B", IsRequired: true}
	items := []models.TemplateItem{itemA, itemB}

	failing := models.InspectionResponse{ID: uuid.New(), TemplateItemID: itemA.ID, Result: models.ResultFail}

	// Item B missing entirely, item A failing bare: three problems in one pass.
	problems := validateSubmission(items, []models.InspectionResponse{failing}, nil, nil)
	if len(problems) != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", len(problems), problems)
	}
}
