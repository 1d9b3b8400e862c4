// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package web

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/wpikzbior/wpikzbior/internal/auth"
	"github.com/wpikzbior/wpikzbior/internal/observability"
	"github.com/wpikzbior/wpikzbior/pkg/errutil"
)

const (
	panelPath = "/panel"

	liveBody = "Hello! :D"

	// Shown on the panel after a failed login. Unknown handle and wrong
	// password share one message.
	loginInvalidMessage = "Invalid handle or password."
	loginErrorMessage   = "Server error. Please contact the webmaster."
)

// userView is the public JSON form of a user.
type userView struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Admin  bool   `json:"admin"`
}

func viewOf(u *auth.User) *userView {
	if u == nil {
		return nil
	}
	return &userView{ID: u.ID.String(), Handle: u.Handle, Admin: u.IsAdmin()}
}

// panelView is the JSON rendered by GET /panel.
type panelView struct {
	User  *userView `json:"user"`
	Error *string   `json:"error"`
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

func (h *handlers) live(c *gin.Context) {
	c.String(http.StatusOK, liveBody)
}

func (h *handlers) login(c *gin.Context) {
	ctx := c.Request.Context()
	handle := c.PostForm("username")
	password := c.PostForm("password")

	_, token, err := h.service.Login(ctx, handle, password)
	if err != nil {
		msg := loginErrorMessage
		if errutil.Code(err) == auth.CodeInvalidCredentials {
			h.metrics.RecordLogin(observability.LoginInvalid)
			msg = loginInvalidMessage
		} else {
			h.metrics.RecordLogin(observability.LoginError)
			errutil.LogErrorContext(ctx, h.logger, "login failed", err,
				"request_id", c.GetString(ctxKeyRequestID))
		}
		c.Redirect(http.StatusSeeOther, panelPath+"?error="+url.QueryEscape(msg))
		return
	}

	h.metrics.RecordLogin(observability.LoginSuccess)
	SetSessionCookie(c, token, h.cookieMaxAge, h.secureCookies)
	c.Redirect(http.StatusSeeOther, panelPath)
}

func (h *handlers) logout(c *gin.Context) {
	ctx := c.Request.Context()
	if cred := auth.Resolve(c.Request.Header); cred.Kind == auth.CredentialBearer {
		if err := h.service.Logout(ctx, cred.Payload); err != nil {
			// The cookie is cleared regardless.
			errutil.LogErrorContext(ctx, h.logger, "logout failed", err,
				"request_id", c.GetString(ctxKeyRequestID))
		}
	}
	ClearSessionCookie(c, h.secureCookies)
	c.Redirect(http.StatusSeeOther, panelPath)
}

func (h *handlers) me(c *gin.Context) {
	res := ResultFrom(c)
	switch res.Outcome {
	case auth.OutcomeAuthenticated:
		c.JSON(http.StatusOK, viewOf(res.User))
	case auth.OutcomeAnonymous:
		c.JSON(http.StatusOK, nil)
	default:
		c.JSON(StatusFor(res.Outcome), errorBody(res.PublicMessage()))
	}
}

func (h *handlers) panel(c *gin.Context) {
	res := ResultFrom(c)
	view := panelView{User: viewOf(res.User)}

	if msg := res.PublicMessage(); msg != "" {
		view.Error = &msg
	} else if q, ok := c.GetQuery("error"); ok && q != "" {
		view.Error = &q
	}

	if res.Outcome == auth.OutcomeInvalid && auth.Resolve(c.Request.Header).FromCookie {
		ClearSessionCookie(c, h.secureCookies)
	}
	c.JSON(http.StatusOK, view)
}
