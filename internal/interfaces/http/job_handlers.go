package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scanops/oms/internal/domain/entity"
)

// CreateJob handles POST /api/jobs
func (h *Handlers) CreateJob(c *gin.Context) {
	var job entity.Job
	if err := c.ShouldBindJSON(&job); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := h.svc.Jobs.Create(c.Request.Context(), &job, actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// ListJobs handles GET /api/jobs?status=&invoice_status=ready,sent&client_id=&limit=&offset=
func (h *Handlers) ListJobs(c *gin.Context) {
	filter := entity.JobFilter{Status: entity.JobStatus(c.Query("status"))}
	if filter.Status != "" && !filter.Status.IsValid() {
		badRequest(c, "invalid status")
		return
	}
	if raw := c.Query("invoice_status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := entity.InvoiceStatus(strings.TrimSpace(s))
			if st == entity.InvoiceStatusNone || !st.IsValid() {
				badRequest(c, "invalid invoice_status")
				return
			}
			filter.InvoiceStatus = append(filter.InvoiceStatus, st)
		}
	}

	var valid bool
	if filter.ClientID, valid = queryInt(c, "client_id"); !valid {
		return
	}
	limit, valid := queryInt(c, "limit")
	if !valid {
		return
	}
	offset, valid := queryInt(c, "offset")
	if !valid {
		return
	}
	filter.Limit, filter.Offset = int(limit), int(offset)
	if filter.Limit == 0 || filter.Limit > 500 {
		filter.Limit = 100
	}

	jobs, err := h.svc.Jobs.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, jobs)
}

// GetJob handles GET /api/jobs/:id
func (h *Handlers) GetJob(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	job, err := h.svc.Jobs.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, job)
}

// PatchJob handles PATCH /api/jobs/:id. The body is overlaid onto the stored job,
// so absent fields keep their values.
func (h *Handlers) PatchJob(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	if !json.Valid(body) {
		badRequest(c, "body must be a JSON object")
		return
	}

	job, err := h.svc.Jobs.Update(c.Request.Context(), id, actor(c), func(job *entity.Job) error {
		return json.Unmarshal(body, job)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, job)
}

type completeStepRequest struct {
	Notes string `json:"notes"`
}

// CompleteStep handles POST /api/jobs/:id/steps/:index/complete
func (h *Handlers) CompleteStep(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		badRequest(c, "invalid index")
		return
	}

	var req completeStepRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	job, err := h.svc.Jobs.CompleteStep(c.Request.Context(), id, index, actor(c), req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, job)
}

type notifyRequest struct {
	Type entity.NotificationType `json:"type" binding:"required"`
}

// NotifyClient handles POST /api/jobs/:id/notify
func (h *Handlers) NotifyClient(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	task, err := h.svc.Jobs.NotifyClient(c.Request.Context(), id, req.Type)
	if err != nil {
		h.fail(c, err)
		return
	}
	if task == nil {
		ok(c, http.StatusOK, gin.H{"queued": false})
		return
	}
	ok(c, http.StatusAccepted, gin.H{"queued": true, "taskId": task.ID})
}

// ListNotifications handles GET /api/notifications?user_id=&unread=true&limit=
func (h *Handlers) ListNotifications(c *gin.Context) {
	userID, valid := queryInt(c, "user_id")
	if !valid {
		return
	}
	limit, valid := queryInt(c, "limit")
	if !valid {
		return
	}
	list, err := h.svc.Notifications.List(c.Request.Context(), entity.NotificationFilter{
		UserID:     userID,
		UnreadOnly: c.Query("unread") == "true",
		Limit:      int(limit),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	n, err := h.svc.Notifications.MarkRead(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, n)
}
