package controllers

import (
	"errors"
	"net/http"

	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/pkg/ctx"
	"github.com/anfisaforfriends/anfisa/pkg/middleware"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

// Login exchanges email and password for a JWT.
func (a *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}

	token, user, err := a.service.Login(c.Context(), in)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.Error(http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]any{"token": token, "user": user})
}

// Me returns the signed-in user.
func (a *AuthController) Me(c *ctx.Context) {
	uid, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}
	user, err := a.service.User(c.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(user)
}
