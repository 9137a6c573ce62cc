package workflow

import (
	"strings"

	"github.com/scanops/oms/internal/domain/entity"
)

// DefaultNotificationMessage is used when a step defines no message of its own
const DefaultNotificationMessage = "Job {{jobId}} ({{modelName}}) completed step {{stepName}}"

// MessageData holds the values substituted into notification messages
type MessageData struct {
	JobID      string
	ModelName  string
	ClientName string
	TargetDate string
	StepName   string
}

// NewMessageData collects placeholder values for a job
func NewMessageData(job *entity.Job, clientName, stepName string) MessageData {
	target := "TBD"
	if job.TargetDate != nil {
		target = job.TargetDate.Format("2006-01-02")
	}
	return MessageData{
		JobID:      job.JobID,
		ModelName:  job.ModelName,
		ClientName: clientName,
		TargetDate: target,
		StepName:   stepName,
	}
}

// RenderMessage substitutes {{jobId}}, {{modelName}}, {{clientName}}, {{targetDate}} and {{stepName}}
func RenderMessage(tmpl string, data MessageData) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultNotificationMessage
	}
	return strings.NewReplacer(
		"{{jobId}}", data.JobID,
		"{{modelName}}", data.ModelName,
		"{{clientName}}", data.ClientName,
		"{{targetDate}}", data.TargetDate,
		"{{stepName}}", data.StepName,
	).Replace(tmpl)
}
