package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harsh99/anonqa/internal/auth"
)

type SignupInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Username string `json:"username"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (e *Env) Signup(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	user, err := e.Svc.Register(input.Email, input.Password, input.Username)
	if err != nil {
		e.fail(c, err, "sign up")
		return
	}

	token, err := auth.GenerateToken(user.ID, e.JWTSecret, auth.TokenValidity)
	if err != nil {
		e.fail(c, err, "sign up")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

func (e *Env) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := e.Svc.Authenticate(input.Email, input.Password)
	if err != nil {
		e.fail(c, err, "log in")
		return
	}

	token, err := auth.GenerateToken(user.ID, e.JWTSecret, auth.TokenValidity)
	if err != nil {
		e.fail(c, err, "log in")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (e *Env) Me(c *gin.Context) {
	user, err := e.Svc.GetUser(currentUserID(c))
	if err != nil {
		e.fail(c, err, "fetch profile")
		return
	}
	c.JSON(http.StatusOK, user)
}
