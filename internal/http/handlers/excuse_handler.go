// Excuse HTTP handlers.
//
// This file exposes the reactions a user can leave on a generated excuse:
//   - POST /excuses/{id}/rating    (thumbs up or down)
//   - POST /excuses/{id}/favorite  (toggle)
//
// Reactions never touch the conversation state; a user may rate an older
// excuse while a newer situation is pending.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RateExcuseRequest is the JSON payload for rating an excuse.
//
// Value must be one of:
//   - +1 : thumbs up
//   - -1 : thumbs down
type RateExcuseRequest struct {
	Value int `json:"value" binding:"required,oneof=-1 1" example:"1"`
}

// RateExcuse godoc
// @ID          rateExcuse
// @Summary     Rate an excuse
// @Description Records a thumbs up (+1) or down (-1); a later rating overwrites an earlier one.
// @Tags        Excuses
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  int     true  "User ID"    example(42)
// @Param       id         path    int     true  "Excuse ID"  example(7)
// @Param       body       body    handlers.RateExcuseRequest true "Rating payload"
//
// @Success     200  {object} services.Result
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "Excuse not found"
// @Failure     503  {object} handlers.ErrorResponse "Storage unavailable"
// @Router      /excuses/{id}/rating [post]
func (h *Handlers) RateExcuse(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	excuseID, okID := excuseIDParam(c)
	if !okID {
		return
	}
	var req RateExcuseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value must be -1 or 1")
		return
	}

	res, err := h.svc.Rate(c.Request.Context(), uid, excuseID, req.Value)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// ToggleFavorite godoc
// @ID          toggleFavorite
// @Summary     Toggle an excuse as favorite
// @Description Adds the excuse to favorites, or removes it when already present.
// @Tags        Excuses
// @Produce     json
//
// @Param       X-User-ID  header  int  true  "User ID"    example(42)
// @Param       id         path    int  true  "Excuse ID"  example(7)
//
// @Success     200  {object} services.Result
// @Failure     400  {object} handlers.ErrorResponse "Invalid id"
// @Failure     404  {object} handlers.ErrorResponse "Excuse not found"
// @Failure     503  {object} handlers.ErrorResponse "Storage unavailable"
// @Router      /excuses/{id}/favorite [post]
func (h *Handlers) ToggleFavorite(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	excuseID, okID := excuseIDParam(c)
	if !okID {
		return
	}

	res, err := h.svc.ToggleFavorite(c.Request.Context(), uid, excuseID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
