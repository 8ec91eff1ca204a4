// Session HTTP handlers.
//
// This file exposes the conversational endpoints:
//   - GET  /styles                 (catalog offered to the user)
//   - POST /session/situation      (start or replace a session)
//   - POST /session/style          (generate in a style, idempotent)
//   - POST /session/regenerate     (another excuse, same style)
//   - POST /session/change-style   (back to the style choice)
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-excuse-backend/internal/http/middleware"
	"github.com/tbourn/go-excuse-backend/internal/services"
	"github.com/tbourn/go-excuse-backend/internal/styles"
	"github.com/tbourn/go-excuse-backend/internal/sysutil"
)

//
// DTOs
//

// SubmitSituationRequest is the JSON payload for starting a session.
type SubmitSituationRequest struct {
	Text string `json:"text" binding:"required" example:"I missed the standup because my cat sat on the laptop"`
}

// SelectStyleRequest is the JSON payload for choosing a style.
type SelectStyleRequest struct {
	Style string `json:"style" binding:"required" example:"formal"`
}

// ListStylesResponse wraps the selectable catalog.
type ListStylesResponse struct {
	Styles []styles.Style `json:"styles"`
}

//
// Handlers
//

// ListStyles godoc
// @ID          listStyles
// @Summary     List excuse styles
// @Description Returns every selectable style, including "random".
// @Tags        Session
// @Produce     json
// @Success     200  {object} handlers.ListStylesResponse
// @Router      /styles [get]
func (h *Handlers) ListStyles(c *gin.Context) {
	ok(c, http.StatusOK, ListStylesResponse{Styles: h.svc.Styles()})
}

// SubmitSituation godoc
// @ID          submitSituation
// @Summary     Submit a situation
// @Description Starts a new session (replacing any previous one) and asks for a style.
// @Tags        Session
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID    header  int     true   "User ID"            example(42)
// @Param       X-User-Name  header  string  false  "Display name"       example(alice)
// @Param       body         body    handlers.SubmitSituationRequest true "Situation payload"
//
// @Success     202  {object} services.Pending
// @Failure     400  {object} handlers.ErrorResponse "Empty or too long situation"
// @Failure     503  {object} handlers.ErrorResponse "Storage unavailable"
// @Router      /session/situation [post]
func (h *Handlers) SubmitSituation(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req SubmitSituationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}

	p, err := h.svc.SubmitSituation(c.Request.Context(), uid, strings.TrimSpace(c.GetHeader("X-User-Name")), req.Text)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusAccepted, p)
}

// SelectStyle godoc
// @ID          selectStyle
// @Summary     Generate an excuse in a style
// @Description Generates, stores and returns an excuse for the pending situation.
// @Description Supports idempotency via the Idempotency-Key header (same key → same excuse).
// @Tags        Session
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  int     true   "User ID"  example(42)
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.SelectStyleRequest true "Style choice"
//
// @Success     200  {object} services.Result
// @Failure     400  {object} handlers.ErrorResponse "Unknown style"
// @Failure     409  {object} handlers.ErrorResponse "No active session or superseded"
// @Failure     503  {object} handlers.ErrorResponse "Storage unavailable"
// @Router      /session/style [post]
func (h *Handlers) SelectStyle(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req SelectStyleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "style required")
		return
	}

	h.idempotent(c, uid, func(ctx context.Context) (services.Result, error) {
		return h.svc.SelectStyle(ctx, uid, strings.TrimSpace(req.Style))
	})
}

// Regenerate godoc
// @ID          regenerate
// @Summary     Regenerate an excuse
// @Description Generates a new excuse for the same situation and style.
// @Tags        Session
// @Produce     json
//
// @Param       X-User-ID        header  int     true   "User ID"  example(42)
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"
//
// @Success     200  {object} services.Result
// @Failure     409  {object} handlers.ErrorResponse "No active session or superseded"
// @Failure     503  {object} handlers.ErrorResponse "Storage unavailable"
// @Router      /session/regenerate [post]
func (h *Handlers) Regenerate(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	h.idempotent(c, uid, func(ctx context.Context) (services.Result, error) {
		return h.svc.Regenerate(ctx, uid)
	})
}

// ChangeStyle godoc
// @ID          changeStyle
// @Summary     Choose another style
// @Description Returns the session to the style choice, keeping the situation.
// @Tags        Session
// @Produce     json
// @Param       X-User-ID  header  int  true  "User ID"  example(42)
// @Success     200  {object} services.Pending
// @Failure     409  {object} handlers.ErrorResponse "No active session"
// @Router      /session/change-style [post]
func (h *Handlers) ChangeStyle(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	p, err := h.svc.ChangeStyle(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// idempotent runs a generating call under the Idempotency-Key contract: a
// recorded key replays its excuse, a fresh one is recorded after success.
func (h *Handlers) idempotent(c *gin.Context, uid int64, run func(context.Context) (services.Result, error)) {
	ctx := c.Request.Context()
	scope := middleware.IdempotencyScope(c)
	idemKey, _ := middleware.GetIdempotencyKey(c)

	if prev, found := h.recorded(c, uid, scope, idemKey); found {
		c.Header(middleware.HeaderReplayed, "true")
		ok(c, http.StatusOK, prev)
		return
	}

	res, err := run(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	if idemKey != "" && h.idem != nil && res.ExcuseID > 0 {
		sysutil.BestEffort(ctx, "idempotency.record", func(ctx context.Context) error {
			return h.idem.RecordIdempotency(ctx, uid, scope, idemKey, res.ExcuseID, http.StatusOK, h.opts.IdempotencyTTL)
		})
	}
	ok(c, http.StatusOK, res)
}

// recorded rebuilds the answer a key already produced. The validator's
// lookup is reused when it ran; otherwise the store is asked directly. Any
// failure means the request is handled as new.
func (h *Handlers) recorded(c *gin.Context, uid int64, scope, key string) (services.Result, bool) {
	if key == "" || h.idem == nil {
		return services.Result{}, false
	}
	ctx := c.Request.Context()
	excuseID, found := middleware.ReplayOf(c)
	if !found {
		var err error
		if excuseID, found, err = h.idem.LookupIdempotency(ctx, uid, scope, key); err != nil || !found {
			return services.Result{}, false
		}
	}
	prev, err := h.svc.Replay(ctx, uid, excuseID)
	if err != nil {
		return services.Result{}, false
	}
	return prev, true
}
