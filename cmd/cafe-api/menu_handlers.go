package main

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/cozy-cafe/internal/httpx"
	"github.com/MikeMC777/cozy-cafe/internal/menu"
	"github.com/MikeMC777/cozy-cafe/internal/service"
)

type stockRequest struct {
	Stock     *int   `json:"stock"     example:"10"`
	Operation string `json:"operation" example:"add" enums:"set,add,subtract"`
}

type restockRequest struct {
	MenuID string `json:"menuId"`
}

// listMenuHandler godoc
// @Summary  List menu items
// @Tags     menu
// @Produce  json
// @Param    category            query string false "category filter"
// @Param    includeUnavailable  query bool   false "include unavailable items"
// @Success  200 {object} httpx.Envelope{data=[]menu.Item}
// @Router   /menu [get]
func listMenuHandler(cat *service.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		incl, _ := strconv.ParseBool(c.Query("includeUnavailable"))
		items, err := cat.List(c.Request.Context(), menu.Query{
			Category:           c.Query("category"),
			IncludeUnavailable: incl,
		})
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.List(c, items, len(items))
	}
}

// getMenuItemHandler godoc
// @Summary  Get a menu item
// @Tags     menu
// @Produce  json
// @Param    id  path string true "menu item id"
// @Success  200 {object} httpx.Envelope{data=menu.Item}
// @Failure  404 {object} httpx.Envelope
// @Router   /menu/{id} [get]
func getMenuItemHandler(cat *service.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		it, err := cat.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, it)
	}
}

// createMenuItemHandler godoc
// @Summary  Create a menu item
// @Tags     menu
// @Accept   json
// @Produce  json
// @Security StaffToken
// @Param    body body menu.CreateRequest true "menu item"
// @Success  201 {object} httpx.Envelope{data=menu.Item}
// @Failure  400 {object} httpx.Envelope
// @Router   /menu [post]
func createMenuItemHandler(cat *service.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req menu.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid body: "+err.Error())
			return
		}
		it, err := cat.Create(c.Request.Context(), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.Created(c, "menu item created", it)
	}
}

// updateMenuItemHandler godoc
// @Summary  Patch a menu item
// @Tags     menu
// @Accept   json
// @Produce  json
// @Security StaffToken
// @Param    id   path string             true "menu item id"
// @Param    body body menu.UpdateRequest true "fields to change"
// @Success  200 {object} httpx.Envelope{data=menu.Item}
// @Failure  400 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /menu/{id} [put]
func updateMenuItemHandler(cat *service.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req menu.UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid body: "+err.Error())
			return
		}
		it, err := cat.Update(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, it)
	}
}

// deleteMenuItemHandler godoc
// @Summary  Delete a menu item that no order references
// @Tags     menu
// @Security StaffToken
// @Param    id path string true "menu item id"
// @Success  200 {object} httpx.Envelope
// @Failure  400 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /menu/{id} [delete]
func deleteMenuItemHandler(cat *service.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cat.Delete(c.Request.Context(), c.Param("id")); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OKMessage(c, "menu item deleted", nil)
	}
}

// updateStockHandler godoc
// @Summary  Set, add or subtract stock
// @Tags     stock
// @Accept   json
// @Produce  json
// @Security StaffToken
// @Param    id   path string       true "menu item id"
// @Param    body body stockRequest true "stock operation"
// @Success  200 {object} httpx.Envelope{data=menu.StockChange}
// @Failure  400 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /menu/{id}/stock [put]
func updateStockHandler(cat *service.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Stock == nil {
			httpx.BadRequest(c, "stock must be a number")
			return
		}
		op, err := menu.ParseStockOp(req.Operation)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		ch, err := cat.AdjustStock(c.Request.Context(), c.Param("id"), *req.Stock, op)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OKMessage(c, "stock updated", ch)
	}
}

// restockHandler godoc
// @Summary  Restock one item, or every item when menuId is omitted
// @Tags     stock
// @Accept   json
// @Produce  json
// @Security StaffToken
// @Param    body body restockRequest false "item to restock"
// @Success  200 {object} httpx.Envelope
// @Failure  404 {object} httpx.Envelope
// @Router   /menu/restock [post]
func restockHandler(cat *service.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req restockRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			httpx.BadRequest(c, "invalid body: "+err.Error())
			return
		}
		if req.MenuID != "" {
			ch, err := cat.Restock(c.Request.Context(), req.MenuID)
			if err != nil {
				httpx.Fail(c, err)
				return
			}
			httpx.OKMessage(c, "item restocked", ch)
			return
		}
		n, err := cat.RestockAll(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OKMessage(c, "all items restocked", gin.H{"updatedCount": n})
	}
}
