package transport

import (
	"context"
	"net/http"

	"github.com/ds124wfegd/tablebooker/pkg/events"
	"github.com/gin-gonic/gin"
)

// DeadLetterReader is the read side of the parked events store
type DeadLetterReader interface {
	List(ctx context.Context, limit int) ([]*events.FailedEvent, error)
	Stats(ctx context.Context) (*events.DeadLetterStats, error)
}

type DeadLetterHandler struct {
	reader DeadLetterReader
}

func NewDeadLetterHandler(reader DeadLetterReader) *DeadLetterHandler {
	return &DeadLetterHandler{reader: reader}
}

// DeadLetterQuery ограничивает размер выборки
type DeadLetterQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

type DeadLetterResponse struct {
	Stats  *events.DeadLetterStats `json:"stats"`
	Events []*events.FailedEvent   `json:"events"`
}

const defaultDeadLetterLimit = 50

// List отдает самые старые неотправленные события
func (h *DeadLetterHandler) List(c *gin.Context) {
	var query DeadLetterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err.Error())
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultDeadLetterLimit
	}

	ctx := c.Request.Context()
	stats, err := h.reader.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	parked, err := h.reader.List(ctx, query.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Dead letter retrieved successfully", DeadLetterResponse{Stats: stats, Events: parked})
}

// size reports how many events wait for replay, -1 if the store is unreachable
func (h *DeadLetterHandler) size(ctx context.Context) int64 {
	stats, err := h.reader.Stats(ctx)
	if err != nil {
		return -1
	}
	return stats.Size
}
