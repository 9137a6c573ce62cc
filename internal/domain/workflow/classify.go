package workflow

import (
	"strings"

	"github.com/scanops/oms/internal/domain/entity"
)

type classRule struct {
	needles []string
	kind    entity.NotificationType
}

// rules are evaluated in order; the first matching needle wins
var classRules = []classRule{
	{[]string{"scan"}, entity.NotificationScanCompleted},
	{[]string{"upload"}, entity.NotificationUploadCompleted},
	{[]string{"qc", "post"}, entity.NotificationQCCompleted},
	{[]string{"transfer"}, entity.NotificationTransferCompleted},
	{[]string{"floor plan"}, entity.NotificationFloorPlanReady},
	{[]string{"photo"}, entity.NotificationPhotosReady},
	{[]string{"as-built"}, entity.NotificationAsBuiltReady},
}

// Classify maps a step name to the client milestone it represents
func Classify(stepName string) (entity.NotificationType, bool) {
	name := strings.ToLower(stepName)
	for _, rule := range classRules {
		for _, needle := range rule.needles {
			if strings.Contains(name, needle) {
				return rule.kind, true
			}
		}
	}
	return "", false
}
