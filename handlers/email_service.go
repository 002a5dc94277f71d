package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"text/template"

	"gorm.io/gorm"
	"p9e.in/safecheck/models"
)

// Mail bodies are plain text. Keyed by template name; context keys come from
// the caller.
var emailTemplates = map[string]string{
	"schedule_generated": `Hello {{.assignee_name}},

{{.count}} new inspection(s) have been scheduled for you{{if .location}} at {{.location}}{{end}}.

Please log in to review your upcoming inspections.`,

	"inspection_due_tomorrow": `Hello {{.assignee_name}},

Your inspection{{if .location}} at {{.location}}{{end}} is due tomorrow ({{.due_at}}).`,

	"daily_digest": `Hello,

Daily summary:
  Pending inspections: {{.pending}}
  Overdue inspections: {{.overdue}}
  Open corrective actions: {{.open_actions}}
  Overdue corrective actions: {{.overdue_actions}}`,
}

// renderEmailTemplate fills a named template with the given context.
func renderEmailTemplate(templateName string, context map[string]interface{}) (string, error) {
	body, ok := emailTemplates[templateName]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", templateName)
	}
	tmpl, err := template.New(templateName).Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendTemplatedEmail renders and sends one email, recording the attempt in
// the notification log. Best effort: returns false on any failure, never an
// error, so callers treat mail as fire-and-forget. Without SMTP_HOST
// configured the send is skipped but still logged.
func SendTemplatedEmail(db *gorm.DB, templateName, to, subject string, context map[string]interface{}) bool {
	body, err := renderEmailTemplate(templateName, context)
	if err != nil {
		log.Printf("❌ Email render failed (%s to %s): %v", templateName, to, err)
		recordNotification(db, to, templateName, subject, context, false, err.Error())
		return false
	}

	host := os.Getenv("SMTP_HOST")
	if host == "" {
		log.Printf("⚠️ SMTP not configured, skipping email %q to %s", subject, to)
		recordNotification(db, to, templateName, subject, context, false, "smtp not configured")
		return false
	}

	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@safecheck.local"
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", from, to, subject, body))

	var auth smtp.Auth
	if user := os.Getenv("SMTP_USER"); user != "" {
		auth = smtp.PlainAuth("", user, os.Getenv("SMTP_PASSWORD"), host)
	}

	if err := smtp.SendMail(host+":"+port, auth, from, []string{to}, msg); err != nil {
		log.Printf("❌ Email send failed (%s to %s): %v", templateName, to, err)
		recordNotification(db, to, templateName, subject, context, false, err.Error())
		return false
	}

	recordNotification(db, to, templateName, subject, context, true, "")
	return true
}

func recordNotification(db *gorm.DB, to, templateName, subject string, context map[string]interface{}, success bool, errMsg string) {
	if db == nil {
		return
	}
	entry := models.NotificationLog{
		Recipient:    to,
		TemplateName: templateName,
		Subject:      subject,
		Success:      success,
	}
	if payload, err := json.Marshal(context); err == nil {
		entry.Context = payload
	}
	if errMsg != "" {
		entry.Error = &errMsg
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("⚠️ Failed to write notification log: %v", err)
	}
}
