package transport

import (
	"net/http"

	"github.com/ds124wfegd/tablebooker/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CancelBookingRequest представляет запрос на отмену бронирования
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Booking retrieved successfully", booking)
}

func (h *BookingHandler) GetBookingByCode(c *gin.Context) {
	booking, err := h.bookingService.GetBookingByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Booking retrieved successfully", booking)
}

// GetBookingQR отдает PNG с кодом брони для показа на входе
func (h *BookingHandler) GetBookingQR(c *gin.Context) {
	booking, err := h.bookingService.GetBookingByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	png, err := qrcode.Encode(booking.BookingCode, qrcode.Medium, qrSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.ConfirmBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Booking confirmed successfully", booking)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req CancelBookingRequest
	// тело необязательно
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Booking cancelled successfully", booking)
}

func (h *BookingHandler) GetSlotBookings(c *gin.Context) {
	shopID, ok := paramID(c, "id")
	if !ok {
		return
	}
	slotID, ok := paramID(c, "slot_id")
	if !ok {
		return
	}

	date := c.Query("date")
	if date == "" {
		badRequest(c, "date query parameter is required")
		return
	}

	result, err := h.bookingService.ListSlotBookings(c.Request.Context(), shopID, slotID, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Slot bookings retrieved successfully",
		Data:    result,
		Meta:    gin.H{"count": len(result.Bookings)},
	})
}
