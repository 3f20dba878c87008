package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"ride_ledger/internal/ledger"
	"ride_ledger/internal/models"
)

type signupInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token   string         `json:"token"`
	Account models.Account `json:"account"`
}

// Signup opens an account and returns a token for its new identity.
func (ctl *Controller) Signup(c *gin.Context) {
	var input signupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		fail(c, http.StatusInternalServerError, "could not hash password")
		return
	}

	account, err := ctl.Ledger.OpenAccount(c.Request.Context(), input.Name, input.Email, hashedPassword)
	if errors.Is(err, ledger.ErrEmailTaken) {
		fail(c, http.StatusConflict, "email already in use")
		return
	}
	if err != nil {
		ledgerError(c, err)
		return
	}

	token, err := ctl.Tokens.GenerateToken(account.Identity)
	if err != nil {
		fail(c, http.StatusInternalServerError, "could not generate token")
		return
	}
	ok(c, http.StatusCreated, authResponse{Token: token, Account: account})
}

func (ctl *Controller) Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	account, err := ctl.Ledger.AccountByEmail(c.Request.Context(), input.Email)
	if errors.Is(err, ledger.ErrNotFound) {
		fail(c, http.StatusUnauthorized, "user not found or invalid credentials")
		return
	}
	if err != nil {
		ledgerError(c, err)
		return
	}
	if !checkPassword(account.PasswordHash, input.Password) {
		logrus.WithField("identity", account.Identity).Warn("login with wrong password")
		fail(c, http.StatusUnauthorized, "user not found or invalid credentials")
		return
	}

	token, err := ctl.Tokens.GenerateToken(account.Identity)
	if err != nil {
		fail(c, http.StatusInternalServerError, "could not generate token")
		return
	}
	ok(c, http.StatusOK, authResponse{Token: token, Account: account})
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
