package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/gin-gonic/gin"
)

// SuccessResponse представляет успешный ответ
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// порядок важен: первое совпадение по errors.Is
var errorMappings = []errorMapping{
	{entity.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{entity.ErrShopNotFound, http.StatusNotFound, "shop_not_found"},
	{entity.ErrSlotNotFound, http.StatusNotFound, "slot_not_found"},
	{entity.ErrTableTypeNotFound, http.StatusNotFound, "table_type_not_found"},
	{entity.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{entity.ErrInsufficientShopCapacity, http.StatusUnprocessableEntity, "insufficient_shop_capacity"},
	{entity.ErrNoMatchingTables, http.StatusUnprocessableEntity, "no_matching_tables"},
	{entity.ErrNoFeasibleCombination, http.StatusUnprocessableEntity, "no_feasible_combination"},
	{entity.ErrMappingExhausted, http.StatusUnprocessableEntity, "mapping_exhausted"},
	{entity.ErrShopHasBookings, http.StatusConflict, "shop_has_bookings"},
	{entity.ErrInvalidBookingStatus, http.StatusConflict, "invalid_booking_status"},
	{entity.ErrConcurrentConflict, http.StatusConflict, "concurrent_conflict"},
	{entity.ErrCodeAllocationExhausted, http.StatusServiceUnavailable, "code_allocation_exhausted"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// детали хранилища наружу не отдаем
		msg = "internal server error"
	}

	c.JSON(status, ErrorResponse{Success: false, Error: msg, Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: msg, Code: "invalid_input"})
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{Success: true, Message: message, Data: data})
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
