package handler

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"payflow/internal/historyexport"
	"payflow/internal/port"
)

// HistoryHandler serves processing history queries and CSV export.
type HistoryHandler struct {
	history port.HistoryRepository
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(history port.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List handles GET /api/v1/history?invoice_number=&status=&from=&to=&offset=&limit=
func (h *HistoryHandler) List(c *gin.Context) {
	filter, err := historyFilter(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return
	}
	offset, limit := pagination(c)

	entries, err := h.history.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, entries, PagMeta{Offset: offset, Limit: limit})
}

// Export handles GET /api/v1/history/export — streams the history as CSV.
func (h *HistoryHandler) Export(c *gin.Context) {
	filter, err := historyFilter(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return
	}

	entries, err := h.history.List(c.Request.Context(), filter, 10000, 0)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("processing_history_%s.csv", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(historyexport.BOM); err != nil {
		log.Printf("handler.HistoryHandler.Export: writing BOM: %v", err)
		return
	}
	w := historyexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		log.Printf("handler.HistoryHandler.Export: writing header: %v", err)
		return
	}
	if err := w.WriteEntries(entries); err != nil {
		log.Printf("handler.HistoryHandler.Export: writing rows: %v", err)
		return
	}
	if err := w.Flush(); err != nil {
		log.Printf("handler.HistoryHandler.Export: flushing: %v", err)
	}
}

func historyFilter(c *gin.Context) (port.HistoryFilter, error) {
	filter := port.HistoryFilter{
		InvoiceNumber: c.Query("invoice_number"),
		Status:        c.Query("status"),
	}
	var err error
	if raw := c.Query("from"); raw != "" {
		if filter.From, err = time.Parse(time.RFC3339, raw); err != nil {
			return port.HistoryFilter{}, fmt.Errorf("from must be RFC3339: %w", err)
		}
	}
	if raw := c.Query("to"); raw != "" {
		if filter.To, err = time.Parse(time.RFC3339, raw); err != nil {
			return port.HistoryFilter{}, fmt.Errorf("to must be RFC3339: %w", err)
		}
	}
	return filter, nil
}
