package transport

import (
	"net/http"

	"github.com/ds124wfegd/tablebooker/internal/service"
	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	reservationService service.ReservationService
}

func NewReservationHandler(reservationService service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

func (h *ReservationHandler) Reserve(c *gin.Context) {
	shopID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	booking, err := h.reservationService.Reserve(c.Request.Context(), shopID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Tables reserved successfully", booking)
}

// Quote показывает, какие столы были бы выделены, ничего не записывая
func (h *ReservationHandler) Quote(c *gin.Context) {
	shopID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	plan, err := h.reservationService.Quote(c.Request.Context(), shopID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Allocation quoted successfully", plan)
}
