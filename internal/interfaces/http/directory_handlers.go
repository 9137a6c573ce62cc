package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scanops/oms/internal/domain/entity"
)

// CreateClient handles POST /api/clients
func (h *Handlers) CreateClient(c *gin.Context) {
	var client entity.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := h.svc.Directory.CreateClient(c.Request.Context(), &client)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// ListClients handles GET /api/clients
func (h *Handlers) ListClients(c *gin.Context) {
	clients, err := h.svc.Directory.ListClients(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, clients)
}

// GetClient handles GET /api/clients/:id
func (h *Handlers) GetClient(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	client, err := h.svc.Directory.GetClient(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, client)
}

// UpdateClient handles PUT /api/clients/:id
func (h *Handlers) UpdateClient(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var client entity.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := h.svc.Directory.UpdateClient(c.Request.Context(), id, &client)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, updated)
}

// CreateUser handles POST /api/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var user entity.User
	if err := c.ShouldBindJSON(&user); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := h.svc.Directory.CreateUser(c.Request.Context(), &user)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// ListUsers handles GET /api/users?role=
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.svc.Directory.ListUsers(c.Request.Context(), entity.Role(c.Query("role")))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, users)
}

// CreateTechnician handles POST /api/technicians
func (h *Handlers) CreateTechnician(c *gin.Context) {
	var tech entity.Technician
	if err := c.ShouldBindJSON(&tech); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := h.svc.Directory.CreateTechnician(c.Request.Context(), &tech)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// ListTechnicians handles GET /api/technicians
func (h *Handlers) ListTechnicians(c *gin.Context) {
	techs, err := h.svc.Directory.ListTechnicians(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, techs)
}

// CreateTemplate handles POST /api/workflow-templates
func (h *Handlers) CreateTemplate(c *gin.Context) {
	var tpl entity.WorkflowTemplate
	if err := c.ShouldBindJSON(&tpl); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := h.svc.Templates.Create(c.Request.Context(), &tpl)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// ListTemplates handles GET /api/workflow-templates?active=true
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates, err := h.svc.Templates.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, templates)
}

// GetTemplate handles GET /api/workflow-templates/:id
func (h *Handlers) GetTemplate(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	tpl, err := h.svc.Templates.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, tpl)
}

// UpdateTemplate handles PUT /api/workflow-templates/:id
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var tpl entity.WorkflowTemplate
	if err := c.ShouldBindJSON(&tpl); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := h.svc.Templates.Update(c.Request.Context(), id, &tpl)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, updated)
}
