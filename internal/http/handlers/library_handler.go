// Library HTTP handlers.
//
// This file exposes read endpoints over stored excuses plus user settings:
//   - GET /history     (recent excuses; json, text or html)
//   - GET /favorites   (favorited excuses; json, text or html)
//   - GET /stats       (per-user statistics)
//   - GET /admin/stats (service-wide statistics, token guarded)
//   - PUT /settings    (default style, premium flag)
package handlers

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-excuse-backend/internal/domain"
	"github.com/tbourn/go-excuse-backend/internal/present"
	"github.com/tbourn/go-excuse-backend/internal/utils"
)

// HeaderAdminToken carries the admin secret for /admin/stats.
const HeaderAdminToken = "X-Admin-Token"

// maxListLimit caps ?limit= before the service applies its own ceiling.
const maxListLimit = 100

//
// DTOs
//

// HistoryResponse wraps the user's recent excuses.
type HistoryResponse struct {
	Excuses []domain.Excuse `json:"excuses"`
}

// FavoritesResponse wraps the user's favorites.
type FavoritesResponse struct {
	Favorites []domain.FavoriteExcuse `json:"favorites"`
}

// UpdateSettingsRequest is the JSON payload for PUT /settings. Absent
// fields are left unchanged; an empty default_style clears it.
type UpdateSettingsRequest struct {
	DefaultStyle *string `json:"default_style,omitempty" example:"monk"`
	IsPremium    *bool   `json:"is_premium,omitempty" example:"false"`
}

//
// Handlers
//

// History godoc
// @ID          history
// @Summary     List recent excuses
// @Description Returns the user's most recent excuses, newest first.
// @Description format=text returns a Markdown page trimmed to the page budget; format=html renders it.
// @Tags        Library
// @Produce     json
// @Produce     plain
// @Produce     html
//
// @Param       X-User-ID  header  int     true   "User ID"  example(42)
// @Param       limit      query   int     false  "Max entries"  minimum(1) maximum(20) default(20)
// @Param       format     query   string  false  "Response format"  Enums(json, text, html) default(json)
//
// @Success     200  {object} handlers.HistoryResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     503  {object} handlers.ErrorResponse "Storage unavailable"
// @Router      /history [get]
func (h *Handlers) History(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	format, okFmt := formatParam(c)
	if !okFmt {
		return
	}

	items, err := h.svc.History(c.Request.Context(), uid, utils.ParseLimit(c.Query("limit"), maxListLimit))
	if err != nil {
		failErr(c, err)
		return
	}
	if format == "json" {
		ok(c, http.StatusOK, HistoryResponse{Excuses: items})
		return
	}
	h.render(c, format, present.HistoryLayout.Page(present.HistoryItems(items), h.opts.PageBudget))
}

// Favorites godoc
// @ID          favorites
// @Summary     List favorite excuses
// @Description Returns the user's favorites, most recently favorited first.
// @Tags        Library
// @Produce     json
// @Produce     plain
// @Produce     html
//
// @Param       X-User-ID  header  int     true   "User ID"  example(42)
// @Param       limit      query   int     false  "Max entries"  minimum(1) maximum(50) default(50)
// @Param       format     query   string  false  "Response format"  Enums(json, text, html) default(json)
//
// @Success     200  {object} handlers.FavoritesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     503  {object} handlers.ErrorResponse "Storage unavailable"
// @Router      /favorites [get]
func (h *Handlers) Favorites(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	format, okFmt := formatParam(c)
	if !okFmt {
		return
	}

	favs, err := h.svc.Favorites(c.Request.Context(), uid, utils.ParseLimit(c.Query("limit"), maxListLimit))
	if err != nil {
		failErr(c, err)
		return
	}
	if format == "json" {
		ok(c, http.StatusOK, FavoritesResponse{Favorites: favs})
		return
	}
	h.render(c, format, present.FavoritesLayout.Page(present.FavoriteItems(favs), h.opts.PageBudget))
}

// Stats godoc
// @ID          userStats
// @Summary     Per-user statistics
// @Tags        Library
// @Produce     json
// @Param       X-User-ID  header  int  true  "User ID"  example(42)
// @Success     200  {object} domain.UserStats
// @Failure     503  {object} handlers.ErrorResponse "Storage unavailable"
// @Router      /stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	st, err := h.svc.Stats(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// AdminStats godoc
// @ID          adminStats
// @Summary     Service-wide statistics
// @Description Requires X-Admin-Token to match the configured admin token.
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Token  header  string  true  "Admin token"
// @Success     200  {object} domain.AdminStats
// @Failure     401  {object} handlers.ErrorResponse "Bad or missing token"
// @Failure     503  {object} handlers.ErrorResponse "Storage unavailable"
// @Router      /admin/stats [get]
func (h *Handlers) AdminStats(c *gin.Context) {
	got := c.GetHeader(HeaderAdminToken)
	if h.opts.AdminToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.opts.AdminToken)) != 1 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "admin token required")
		return
	}
	st, err := h.svc.AdminStats(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// UpdateSettings godoc
// @ID          updateSettings
// @Summary     Update user settings
// @Description Sets the default style suggested after each situation and the premium flag.
// @Tags        Library
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  int  true  "User ID"  example(42)
// @Param       body       body    handlers.UpdateSettingsRequest true "Settings"
// @Success     200  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Unknown style"
// @Failure     503  {object} handlers.ErrorResponse "Storage unavailable"
// @Router      /settings [put]
func (h *Handlers) UpdateSettings(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid settings payload")
		return
	}
	u, err := h.svc.UpdateSettings(c.Request.Context(), uid, req.DefaultStyle, req.IsPremium)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

//
// Helpers
//

// formatParam reads ?format=json|text|html, defaulting to json.
func formatParam(c *gin.Context) (string, bool) {
	f := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "json")))
	switch f {
	case "json", "text", "html":
		return f, true
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "format must be json, text or html")
	return "", false
}

// render writes a rendered page as Markdown or HTML. X-Items-Shown and
// X-Items-Total report how much of the list fit.
func (h *Handlers) render(c *gin.Context, format string, page present.Rendered) {
	c.Header("X-Items-Shown", strconv.Itoa(page.Shown))
	c.Header("X-Items-Total", strconv.Itoa(page.Total))
	if format == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(present.HTML(page.Text)))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(page.Text))
}
