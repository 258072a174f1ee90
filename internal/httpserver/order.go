package httpserver

import (
	"net/http"
	"strconv"

	"storefront/internal/domain"
	checkoutsvc "storefront/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type settleRequest struct {
	AddressID     int64  `json:"addressId"`
	PaymentMethod string `json:"paymentMethod"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type paymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	TradeID string `json:"tradeId" binding:"required"`
}

func (a *api) settlement(c *gin.Context) {
	preview, err := a.deps.CheckoutSvc.Preview(c.Request.Context(), currentCustomer(c).ID)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (a *api) settle(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := a.deps.CheckoutSvc.Settle(c.Request.Context(), currentCustomer(c).ID, checkoutsvc.SettleInput{
		AddressID:     req.AddressID,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (a *api) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	orders, err := a.deps.OrderSvc.List(c.Request.Context(), currentCustomer(c).ID, limit)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (a *api) getOrder(c *gin.Context) {
	order, err := a.deps.OrderSvc.Get(c.Request.Context(), currentCustomer(c).ID, c.Param("orderId"))
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (a *api) setOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := a.deps.OrderSvc.SetStatus(c.Request.Context(), c.Param("orderId"), domain.OrderStatus(req.Status))
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (a *api) recordPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := a.deps.OrderSvc.RecordPayment(c.Request.Context(), req.OrderID, req.TradeID)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
