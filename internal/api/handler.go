package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gsarma/oneid/internal/crypto"
	"github.com/gsarma/oneid/internal/oneid"
)

const stateCookie = "oneid_state"

// Authenticator is the part of *oneid.Client the handlers use.
type Authenticator interface {
	AuthorizationURL(state string) string
	Handle(ctx context.Context, code string) oneid.AuthResult
	Logout(ctx context.Context, accessToken string) oneid.LogoutResult
	ConfigurationErrors() []string
}

type Handler struct {
	oneid    Authenticator
	sealer   *crypto.Sealer
	stateTTL time.Duration
	now      func() time.Time
}

type handleRequest struct {
	Code  string `json:"code" form:"code" binding:"required"`
	State string `json:"state" form:"state"`
}

type logoutRequest struct {
	AccessToken string `json:"access_token" form:"access_token" binding:"required"`
}

// Handle completes a login with the code OneID sent to the callback. Provider
// failures are reported in the body with HTTP 200; only malformed input or a
// state mismatch yields 422.
func (h *Handler) Handle(c *gin.Context) {
	var body handleRequest
	if err := c.ShouldBind(&body); err != nil {
		invalidRequest(c, bindingErrors(err))
		return
	}
	// A browser that went through Redirect carries the state cookie and must
	// echo the state back.
	if _, err := c.Cookie(stateCookie); err == nil && body.State == "" {
		h.clearState(c)
		invalidRequest(c, map[string][]string{"state": {"The state field is required."}})
		return
	}
	if body.State != "" {
		if !h.checkState(c, body.State) {
			invalidRequest(c, map[string][]string{"state": {"The state is invalid or has expired."}})
			return
		}
	}

	c.JSON(http.StatusOK, h.oneid.Handle(c.Request.Context(), body.Code))
}

// Logout ends the OneID session for an access token.
func (h *Handler) Logout(c *gin.Context) {
	var body logoutRequest
	if err := c.ShouldBind(&body); err != nil {
		invalidRequest(c, bindingErrors(err))
		return
	}
	c.JSON(http.StatusOK, h.oneid.Logout(c.Request.Context(), body.AccessToken))
}

// Redirect sends the browser to OneID. The state is remembered in a sealed
// cookie so Handle can verify the round trip.
func (h *Handler) Redirect(c *gin.Context) {
	state, err := oneid.NewState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}
	sealed, err := h.sealer.Seal([]byte(state))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, sealed, int(h.stateTTL.Seconds()), "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, h.oneid.AuthorizationURL(state))
}

// Health reports liveness and whether the OneID credentials are usable.
func (h *Handler) Health(c *gin.Context) {
	errs := h.oneid.ConfigurationErrors()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"configured": len(errs) == 0,
	})
}

// checkState compares state with the sealed cookie set by Redirect and
// clears the cookie. A state is accepted at most once.
func (h *Handler) checkState(c *gin.Context, state string) bool {
	sealed, err := c.Cookie(stateCookie)
	if err != nil {
		return false
	}
	h.clearState(c)

	want, err := h.sealer.Open(sealed)
	if err != nil || string(want) != state {
		return false
	}
	_, err = oneid.DecodeState(state, h.stateTTL, h.now())
	return err == nil
}

func (h *Handler) clearState(c *gin.Context) {
	c.SetCookie(stateCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}
