package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"payflow/internal/domain"
	"payflow/internal/port"
	"payflow/internal/service"
	"payflow/internal/workflow"
)

// WorkflowHandler serves workflow status queries and batch triggers.
type WorkflowHandler struct {
	workflows *workflow.Manager
	orch      *service.Orchestrator
	cache     port.InvoiceCache
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(workflows *workflow.Manager, orch *service.Orchestrator, cache port.InvoiceCache) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows, orch: orch, cache: cache}
}

// Get handles GET /api/v1/workflows/:id
func (h *WorkflowHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "workflow id must be a UUID")
		return
	}
	record, err := h.workflows.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, record)
}

// GetByInvoice handles GET /api/v1/workflows/invoice/:number
func (h *WorkflowHandler) GetByInvoice(c *gin.Context) {
	record, err := h.workflows.GetByInvoice(c.Request.Context(), c.Param("number"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, record)
}

// History handles GET /api/v1/workflows/:id/history — the append-only
// processing log for one workflow.
func (h *WorkflowHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "workflow id must be a UUID")
		return
	}
	record, err := h.workflows.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, record.ProcessingLog)
}

// List handles GET /api/v1/workflows?status=&offset=&limit=
func (h *WorkflowHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	status := domain.InvoiceStatus(c.Query("status"))

	records, err := h.workflows.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, records, PagMeta{Offset: offset, Limit: limit})
}

// Run handles POST /api/v1/workflows/run — triggers one ingestion pass in
// the background.
func (h *WorkflowHandler) Run(c *gin.Context) {
	go func() {
		if err := h.orch.RunOnce(context.Background()); err != nil {
			log.Printf("handler.WorkflowHandler.Run: batch finished with errors: %v", err)
		}
	}()
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: gin.H{"status": "started"}})
}

// Snapshot handles GET /api/v1/invoices/:number/snapshot
func (h *WorkflowHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.cache.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snapshot)
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return offset, limit
}
