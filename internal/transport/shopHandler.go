package transport

import (
	"net/http"

	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/ds124wfegd/tablebooker/internal/service"
	"github.com/gin-gonic/gin"
)

type ShopHandler struct {
	shopService service.ShopService
}

func NewShopHandler(shopService service.ShopService) *ShopHandler {
	return &ShopHandler{shopService: shopService}
}

func (h *ShopHandler) CreateShop(c *gin.Context) {
	var req service.CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	shop, err := h.shopService.CreateShop(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Shop created successfully", shop)
}

func (h *ShopHandler) GetShop(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	shop, err := h.shopService.GetShop(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Shop retrieved successfully", shop)
}

// UpdateHours пересоздает слоты, пока у заведения нет активных броней
func (h *ShopHandler) UpdateHours(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	shop, err := h.shopService.UpdateShopHours(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Shop hours updated successfully", shop)
}

func (h *ShopHandler) ListSlots(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	slots, err := h.shopService.ListSlots(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Slots retrieved successfully",
		Data:    slots,
		Meta:    gin.H{"count": len(slots)},
	})
}

func (h *ShopHandler) CreateTableType(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.CreateTableTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	tableType, err := h.shopService.CreateTableType(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Table type created successfully", tableType)
}

func (h *ShopHandler) ListTableTypes(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var filter entity.TableFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err.Error())
		return
	}

	types, err := h.shopService.ListTableTypes(c.Request.Context(), id, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Table types retrieved successfully",
		Data:    types,
		Meta:    gin.H{"count": len(types)},
	})
}
