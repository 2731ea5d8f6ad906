package main

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/cozy-cafe/internal/httpx"
	"github.com/MikeMC777/cozy-cafe/internal/order"
	"github.com/MikeMC777/cozy-cafe/internal/service"
)

// createOrderHandler godoc
// @Summary  Place an order
// @Description Stock is checked and decremented in the same transaction as the insert.
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    body body order.CreateOrderRequest true "cart"
// @Success  201 {object} httpx.Envelope{data=order.Order}
// @Failure  400 {object} httpx.Envelope
// @Failure  409 {object} httpx.Envelope{details=[]apperr.Shortfall}
// @Router   /orders [post]
func createOrderHandler(svc *service.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid body: "+err.Error())
			return
		}
		o, err := svc.Create(c.Request.Context(), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.Created(c, "order placed", o)
	}
}

// getOrderHandler godoc
// @Summary  Get an order with its items
// @Tags     orders
// @Produce  json
// @Param    id path string true "order id"
// @Success  200 {object} httpx.Envelope{data=order.Order}
// @Failure  404 {object} httpx.Envelope
// @Router   /orders/{id} [get]
func getOrderHandler(svc *service.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, o)
	}
}

// listOrdersHandler godoc
// @Summary  List orders, newest first
// @Tags     orders
// @Produce  json
// @Security StaffToken
// @Param    status query string false "status filter" Enums(pending, preparing, completed, cancelled)
// @Param    limit  query int    false "page size (default 50, max 200)"
// @Success  200 {object} httpx.Envelope{data=[]order.Order}
// @Failure  400 {object} httpx.Envelope
// @Router   /orders [get]
func listOrdersHandler(svc *service.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f order.Filter
		if s := c.Query("status"); s != "" {
			st, err := order.ParseStatus(s)
			if err != nil {
				httpx.Fail(c, err)
				return
			}
			f.Status = st
		}
		if l := c.Query("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 0 {
				httpx.BadRequest(c, "limit must be a non-negative integer")
				return
			}
			f.Limit = n
		}
		out, err := svc.List(c.Request.Context(), f)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.List(c, out, len(out))
	}
}

// updateOrderStatusHandler godoc
// @Summary  Move an order along its lifecycle
// @Tags     orders
// @Accept   json
// @Produce  json
// @Security StaffToken
// @Param    id   path string                    true "order id"
// @Param    body body order.UpdateStatusRequest true "target status"
// @Success  200 {object} httpx.Envelope{data=order.Order}
// @Failure  400 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /orders/{id}/status [put]
func updateOrderStatusHandler(svc *service.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
			httpx.BadRequest(c, "status is required")
			return
		}
		o, err := svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OKMessage(c, "order status updated", o)
	}
}

// cancelOrderHandler godoc
// @Summary  Cancel a pending order and restore its stock
// @Tags     orders
// @Produce  json
// @Param    id path string true "order id"
// @Success  200 {object} httpx.Envelope{data=order.Order}
// @Failure  400 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /orders/{id} [delete]
func cancelOrderHandler(svc *service.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.Cancel(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OKMessage(c, "order cancelled", o)
	}
}
