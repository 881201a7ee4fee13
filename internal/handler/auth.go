package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/middleware"
	"github.com/user/gunvortv/internal/repository"
	"github.com/user/gunvortv/internal/service"
	"github.com/user/gunvortv/internal/utils"
)

const oauthStateKey = "oauth_state"

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6,max=72"`
	DisplayName string `json:"displayName" binding:"omitempty,max=50"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// Register creates an email/password account and signs it in
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}

	// default display name is the part before @
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.SplitN(req.Email, "@", 2)[0]
	}

	user, err := h.Repos.User.Create(req.Email, req.Password, displayName)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		logging.Warn().Msg("[Auth] register with taken email")
		utils.Conflict(c, "this email is already registered")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("[Auth] create user failed")
		utils.InternalServerError(c, "registration failed, please retry")
		return
	}

	if err := h.signIn(c, user); err != nil {
		logging.Error().Err(err).Msg("[Auth] sign token failed")
		utils.InternalServerError(c, "")
		return
	}
	logging.Info().Str("user_id", user.ID).Msg("[Auth] user registered")
	utils.Created(c, user)
}

// Login email/password sign-in
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.Repos.User.FindByEmail(req.Email)
	if err != nil {
		logging.Error().Err(err).Msg("[Auth] find user failed")
		utils.InternalServerError(c, "")
		return
	}
	if user == nil || !h.Repos.User.CheckPassword(user, req.Password) {
		logging.Warn().Str("client", utils.HashIP(c.ClientIP())).Msg("[Auth] failed sign-in")
		utils.Unauthorized(c, "invalid email or password")
		return
	}

	if err := h.signIn(c, user); err != nil {
		logging.Error().Err(err).Msg("[Auth] sign token failed")
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, user)
}

// Logout clears the token cookie and the session
func (h *Handler) Logout(c *gin.Context) {
	middleware.SetTokenCookie(c, "", 0)

	session := sessions.Default(c)
	session.Clear()
	session.Save()

	utils.SuccessWithMessage(c, "signed out", nil)
}

// ForgotPassword mails a reset link; unknown emails get the same answer
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bind(c, &req) {
		return
	}
	const answer = "if an account exists for this email, a reset link has been sent"

	user, err := h.Repos.User.FindByEmail(req.Email)
	if err != nil {
		logging.Error().Err(err).Msg("[Auth] find user failed")
		utils.InternalServerError(c, "")
		return
	}
	if user == nil {
		utils.SuccessWithMessage(c, answer, nil)
		return
	}

	token, err := service.RandomToken(32)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if err := h.Repos.PasswordReset.Create(user.ID, hashToken(token), time.Now().Add(h.Config.ResetTokenTTL)); err != nil {
		logging.Error().Err(err).Msg("[Auth] store reset token failed")
		utils.InternalServerError(c, "")
		return
	}

	link := strings.TrimRight(h.Config.SiteUrl, "/") + "/reset-password?token=" + url.QueryEscape(token)
	if err := h.Notifier.SendPasswordReset(user.Email, user.DisplayName, link); err != nil {
		logging.Error().Err(err).Str("user_id", user.ID).Msg("[Auth] send reset email failed")
	}
	utils.SuccessWithMessage(c, answer, nil)
}

// ResetPassword consumes a reset token once and sets the new password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bind(c, &req) {
		return
	}

	userID, err := h.Repos.PasswordReset.Consume(hashToken(req.Token))
	if err != nil {
		logging.Error().Err(err).Msg("[Auth] consume reset token failed")
		utils.InternalServerError(c, "")
		return
	}
	if userID == "" {
		logging.Warn().Msg("[Auth] invalid or expired reset token")
		utils.BadRequest(c, "reset link is invalid or has expired")
		return
	}
	if err := h.Repos.User.UpdatePassword(userID, req.Password); err != nil {
		logging.Error().Err(err).Msg("[Auth] update password failed")
		utils.InternalServerError(c, "")
		return
	}
	utils.SuccessWithMessage(c, "password updated, please sign in", nil)
}

// GoogleLogin redirects to the consent page
func (h *Handler) GoogleLogin(c *gin.Context) {
	if h.Google == nil {
		utils.NotFound(c, "google sign-in is not enabled")
		return
	}
	state, err := service.RandomToken(16)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		utils.InternalServerError(c, "")
		return
	}
	c.Redirect(http.StatusFound, h.Google.AuthCodeURL(state))
}

// GoogleCallback verifies state, exchanges the code and signs the user in
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.Google == nil {
		utils.NotFound(c, "google sign-in is not enabled")
		return
	}

	session := sessions.Default(c)
	expected, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	session.Save()

	if expected == "" || c.Query("state") != expected {
		logging.Warn().Msg("[Auth] google callback with bad state")
		utils.BadRequest(c, "sign-in session expired, please retry")
		return
	}
	if errMsg := c.Query("error"); errMsg != "" {
		logging.Warn().Str("error", errMsg).Msg("[Auth] google consent denied")
		utils.Unauthorized(c, "google sign-in was cancelled")
		return
	}

	profile, err := h.Google.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		logging.Warn().Err(err).Msg("[Auth] google exchange failed")
		utils.Unauthorized(c, "google sign-in failed")
		return
	}

	user, err := h.Repos.User.UpsertFederated(repository.ProviderGoogle, profile.Email, profile.Name, profile.Picture)
	if err != nil {
		logging.Error().Err(err).Msg("[Auth] upsert federated user failed")
		utils.InternalServerError(c, "")
		return
	}
	if err := h.signIn(c, user); err != nil {
		utils.InternalServerError(c, "")
		return
	}

	redirect := h.Config.SiteUrl
	if redirect == "" {
		redirect = "/"
	}
	c.Redirect(http.StatusFound, redirect)
}

// hashToken only the digest of a reset token is stored
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
