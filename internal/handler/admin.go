package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/worker"
)

var jobQueues = map[string]bool{worker.QueueEFactura: true, worker.QueueEmail: true}

type dlqQuery struct {
	Limit int64 `form:"limit,default=20" validate:"min=1,max=100"`
}

type requeueRequest struct {
	Max int `json:"max" validate:"min=0,max=1000"`
}

// AdminHandler exposes dead letter queues to system administrators.
type AdminHandler struct {
	rdb *redis.Client
}

func NewAdminHandler(rdb *redis.Client) *AdminHandler {
	return &AdminHandler{rdb: rdb}
}

func (h *AdminHandler) queue(c *gin.Context) (string, bool) {
	q := c.Param("queue")
	if !jobQueues[q] {
		c.JSON(http.StatusNotFound, apierror.New("Unknown queue"))
		return "", false
	}
	return q, true
}

// DLQ godoc
// @Summary Peek a dead letter queue
// @Tags admin
// @Produce json
// @Param queue path string true "jobs:efactura or jobs:email"
// @Param limit query int false "entries (max 100)"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} apierror.APIError
// @Router /v1/admin/dlq/{queue} [get]
func (h *AdminHandler) DLQ(c *gin.Context) {
	q, ok := h.queue(c)
	if !ok {
		return
	}
	var query dlqQuery
	if !bindQuery(c, &query) {
		return
	}
	ctx := c.Request.Context()
	total, err := worker.DLQLength(ctx, h.rdb, q)
	if err != nil {
		respondError(c, err)
		return
	}
	entries, err := worker.PeekDLQ(ctx, h.rdb, q, query.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": q, "total": total, "entries": entries})
}

func (h *AdminHandler) Requeue(c *gin.Context) {
	q, ok := h.queue(c)
	if !ok {
		return
	}
	var req requeueRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}
	if req.Max == 0 {
		req.Max = 100
	}
	moved, err := worker.RequeueDLQ(c.Request.Context(), h.rdb, q, req.Max)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": q, "requeued": moved})
}
