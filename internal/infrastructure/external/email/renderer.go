package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #222;">
{{template "body" .}}
<p style="color: #888; font-size: 12px;">Job {{.JobCode}}</p>
</body></html>{{end}}`

var bodies = map[string]string{
	entity.EmailTemplateJobComplete: `{{define "body"}}<h2>Your project is complete</h2>
<p>Hello {{.ClientName}},</p>
<p>All work on <b>{{.ModelName}}</b> has been completed ({{.StepName}}).</p>
{{if .TargetDate}}<p>Target date: {{.TargetDate}}</p>{{end}}
<p>Thank you for working with us.</p>{{end}}`,

	entity.EmailTemplateGeneric: `{{define "body"}}<h2>Project update</h2>
<p>Hello {{.ClientName}},</p>
<p>The step <b>{{.StepName}}</b> for <b>{{.ModelName}}</b> has been completed.</p>{{end}}`,

	"notification": `{{define "body"}}<h2>{{headline .NotificationType}}</h2>
<p>Hello {{.ClientName}},</p>
<p>{{message .NotificationType}} for <b>{{.ModelName}}</b>.</p>
{{if .StepName}}<p>Step: {{.StepName}}</p>{{end}}{{end}}`,
}

var subjects = map[string]string{
	entity.EmailTemplateJobComplete: "%s: your project is complete",
	entity.EmailTemplateGeneric:     "%s: project update",
}

var headlines = map[entity.NotificationType]struct{ title, message string }{
	entity.NotificationScanCompleted:     {"Scan completed", "The on-site scan is finished"},
	entity.NotificationUploadCompleted:   {"Upload completed", "The scan data has been uploaded"},
	entity.NotificationQCCompleted:       {"Quality check completed", "Post-processing and quality control are finished"},
	entity.NotificationTransferCompleted: {"Transfer completed", "Your files have been transferred"},
	entity.NotificationFloorPlanReady:    {"Floor plan ready", "Your floor plan is ready"},
	entity.NotificationPhotosReady:       {"Photos ready", "Your photos are ready"},
	entity.NotificationAsBuiltReady:      {"As-built ready", "Your as-built drawings are ready"},
}

// Renderer renders client e-mails from built-in HTML templates
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses the built-in templates
func NewRenderer() *Renderer {
	funcs := template.FuncMap{
		"headline": func(t entity.NotificationType) string { return headlines[t].title },
		"message":  func(t entity.NotificationType) string { return headlines[t].message },
	}
	r := &Renderer{templates: make(map[string]*template.Template, len(bodies))}
	for name, body := range bodies {
		tpl := template.Must(template.New(name).Funcs(funcs).Parse(layout))
		r.templates[name] = template.Must(tpl.Parse(body))
	}
	return r
}

var _ port.EmailRenderer = (*Renderer)(nil)

// Render renders a step e-mail; unknown template names fall back to generic
func (r *Renderer) Render(name string, data port.EmailData) (*port.EmailMessage, error) {
	if _, ok := r.templates[name]; !ok || name == "notification" {
		name = entity.EmailTemplateGeneric
	}
	html, err := r.execute(name, data)
	if err != nil {
		return nil, err
	}
	return &port.EmailMessage{
		Subject: fmt.Sprintf(subjects[name], data.JobCode),
		HTML:    html,
	}, nil
}

// RenderNotification renders the milestone e-mail for data.NotificationType
func (r *Renderer) RenderNotification(data port.EmailData) (*port.EmailMessage, error) {
	h, ok := headlines[data.NotificationType]
	if !ok {
		return nil, fmt.Errorf("unknown notification type %q", data.NotificationType)
	}
	html, err := r.execute("notification", data)
	if err != nil {
		return nil, err
	}
	return &port.EmailMessage{
		Subject: fmt.Sprintf("%s: %s", data.JobCode, h.title),
		HTML:    html,
	}, nil
}

func (r *Renderer) execute(name string, data port.EmailData) (string, error) {
	var buf bytes.Buffer
	if err := r.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s e-mail: %w", name, err)
	}
	return buf.String(), nil
}
