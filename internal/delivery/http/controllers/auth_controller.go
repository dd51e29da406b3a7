package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventrsvp/internal/delivery/http/helpers"
	"eventrsvp/internal/domain"
)

// SignUpRequest is the request body for POST /auth/signup
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"` // optional: "attendee" (default) or "organizer"
}

// Validate implements Validator. Format rules are enforced by the service.
func (s SignUpRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.Email) == "" {
		errs = append(errs, "email is required")
	}
	if s.Password == "" {
		errs = append(errs, "password is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, "name is required")
	}
	return errs
}

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate implements Validator.
func (l LoginRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(l.Email) == "" {
		errs = append(errs, "email is required")
	}
	if l.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// RefreshRequest is the request body for POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate implements Validator.
func (rr RefreshRequest) Validate() []string {
	if strings.TrimSpace(rr.RefreshToken) == "" {
		return []string{"refresh_token is required"}
	}
	return nil
}

// EmailRequest is the request body for endpoints that only take an address.
type EmailRequest struct {
	Email string `json:"email"`
}

// Validate implements Validator.
func (e EmailRequest) Validate() []string {
	if strings.TrimSpace(e.Email) == "" {
		return []string{"email is required"}
	}
	return nil
}

// VerifyEmailRequest is the request body for POST /auth/verify-email
type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Validate implements Validator.
func (v VerifyEmailRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(v.Email) == "" {
		errs = append(errs, "email is required")
	}
	if strings.TrimSpace(v.Code) == "" {
		errs = append(errs, "code is required")
	}
	return errs
}

// ResetPasswordRequest is the request body for POST /auth/password/reset
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// Validate implements Validator.
func (rp ResetPasswordRequest) Validate() []string {
	errs := VerifyEmailRequest{Email: rp.Email, Code: rp.Code}.Validate()
	if rp.NewPassword == "" {
		errs = append(errs, "new_password is required")
	}
	return errs
}

// MessageResponse is the data of endpoints that only acknowledge the request.
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthSuccessResponse is the success response envelope for login and refresh (200).
type AuthSuccessResponse struct {
	Data  *domain.AuthResult `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type AuthController struct {
	Logger  *slog.Logger
	Service domain.AuthService
}

func NewAuthController(logger *slog.Logger, svc domain.AuthService) *AuthController {
	return &AuthController{
		Logger:  logger,
		Service: svc,
	}
}

// SignUp godoc
// @Summary Sign up a new user
// @Description Create a new user with email, password, and name. Optional role: "attendee" (default) or "organizer". The account stays inactive until the emailed code is submitted to /auth/verify-email.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body SignUpRequest true "Sign-up data"
// @Success 201 {object} helpers.APIResponse "data contains the created user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (email taken)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/signup [post]
func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	role := domain.Role(strings.TrimSpace(strings.ToLower(req.Role)))
	user, err := c.Service.SignUp(r.Context(), req.Email, req.Password, req.Name, role)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, user)
}

// Login godoc
// @Summary Log in
// @Description Authenticate with email and password. Starts a new session and ends any previous one for the same user; replaced_previous_session reports whether that happened.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} controllers.AuthSuccessResponse "data contains access and refresh tokens"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (unverified or inactive account)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	res, err := c.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// Refresh godoc
// @Summary Refresh tokens
// @Description Exchange a refresh token for a new access token and a rotated refresh token. The presented refresh token stops working.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RefreshRequest true "Refresh token"
// @Success 200 {object} controllers.AuthSuccessResponse "data contains access and refresh tokens"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/refresh [post]
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	res, err := c.Service.Refresh(r.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// Logout godoc
// @Summary Log out
// @Description Ends the caller's session. Access and refresh tokens of that session stop working.
// @Tags auth
// @Security BearerAuth
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/logout [post]
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := c.Service.Logout(r.Context(), p); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyEmail godoc
// @Summary Verify email address
// @Description Activates the account when the code matches the one mailed at sign-up. Codes expire after OTP_TTL.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body VerifyEmailRequest true "Email and code"
// @Success 200 {object} helpers.APIResponse "data.message"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (missing fields, wrong or expired code)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already verified)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/verify-email [post]
func (c *AuthController) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "email verified, you can now log in"})
}

// ResendVerification godoc
// @Summary Resend verification code
// @Description Mails a fresh sign-up code. Unknown addresses are accepted without sending anything.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Email"
// @Success 202 {object} helpers.APIResponse "data.message"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already verified)"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests (code sent recently)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/verify-email/resend [post]
func (c *AuthController) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, MessageResponse{Message: "if the account exists, a new code is on its way"})
}

// ForgotPassword godoc
// @Summary Request a password reset code
// @Description Mails a reset code to a verified account. Unknown addresses are accepted without sending anything.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Email"
// @Success 202 {object} helpers.APIResponse "data.message"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (email not verified)"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests (code sent recently)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/password/forgot [post]
func (c *AuthController) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, MessageResponse{Message: "if the account exists, a reset code is on its way"})
}

// ResetPassword godoc
// @Summary Reset password with a code
// @Description Sets a new password when the reset code matches. All sessions of the account end.
// @Tags auth
// @Accept json
// @Param body body ResetPasswordRequest true "Email, code and new password"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (missing fields, wrong or expired code, weak password)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/password/reset [post]
func (c *AuthController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
