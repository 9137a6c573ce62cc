package http

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

// CreatePayment handles POST /api/payments
func (h *Handlers) CreatePayment(c *gin.Context) {
	var p entity.Payment
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := h.svc.Payments.Create(c.Request.Context(), &p)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// ListPayments handles GET /api/payments?status=&client_id=&limit=
func (h *Handlers) ListPayments(c *gin.Context) {
	filter := entity.PaymentFilter{Status: entity.PaymentStatus(c.Query("status"))}
	if filter.Status != "" && !filter.Status.IsValid() {
		badRequest(c, "invalid status")
		return
	}
	var valid bool
	if filter.ClientID, valid = queryInt(c, "client_id"); !valid {
		return
	}
	limit, valid := queryInt(c, "limit")
	if !valid {
		return
	}
	filter.Limit = int(limit)

	payments, err := h.svc.Payments.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, payments)
}

// ImportPayments handles POST /api/payments/import with a multipart "file".
// The format comes from ?format= or the file extension.
func (h *Handlers) ImportPayments(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing statement file")
		return
	}

	format := port.StatementFormat(strings.ToLower(c.Query("format")))
	if format == "" {
		format = port.StatementFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), "."))
	}

	file, err := header.Open()
	if err != nil {
		badRequest(c, "unreadable statement file")
		return
	}
	defer file.Close()

	result, err := h.svc.Payments.Import(c.Request.Context(), file, format)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// PaymentCandidates handles GET /api/payments/candidates?payment_id=
func (h *Handlers) PaymentCandidates(c *gin.Context) {
	id, valid := queryInt(c, "payment_id")
	if !valid {
		return
	}
	if id == 0 {
		badRequest(c, "payment_id is required")
		return
	}
	candidates, err := h.svc.Payments.Candidates(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, candidates)
}

type matchRequest struct {
	JobID int64 `json:"jobId" binding:"required,gt=0"`
}

// MatchPayment handles POST /api/payments/:id/match
func (h *Handlers) MatchPayment(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.svc.Payments.ConfirmMatch(c.Request.Context(), id, req.JobID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UnmatchPayment handles POST /api/payments/:id/unmatch
func (h *Handlers) UnmatchPayment(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	p, err := h.svc.Payments.Unmatch(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// ListOutbox handles GET /api/outbox?status=&limit=
func (h *Handlers) ListOutbox(c *gin.Context) {
	limit, valid := queryInt(c, "limit")
	if !valid {
		return
	}
	tasks, err := h.svc.Outbox.List(c.Request.Context(), entity.OutboxStatus(c.Query("status")), int(limit))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, tasks)
}

// RetryOutbox handles POST /api/outbox/:id/retry
func (h *Handlers) RetryOutbox(c *gin.Context) {
	task, err := h.svc.Outbox.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, task)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// JobsReport handles GET /api/reports/jobs.xlsx?status=
func (h *Handlers) JobsReport(c *gin.Context) {
	content, err := h.svc.Reports.JobsWorkbook(c.Request.Context(), entity.JobStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="jobs.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, content)
}
