package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/services"
)

type AuthHandler struct {
	authService     services.AuthService
	resetService    services.PasswordResetService
	securityService services.SecurityService
}

func NewAuthHandler(authService services.AuthService, resetService services.PasswordResetService, securityService services.SecurityService) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		resetService:    resetService,
		securityService: securityService,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := h.authService.Register(r.Context(), input, clientInfo(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, res)
}

// Login accepts the OAuth2 password form used by the API docs.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input := services.LoginInput{
		ChessComUsername: r.PostForm.Get("username"),
		Password:         r.PostForm.Get("password"),
	}
	if input.ChessComUsername == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("username and password are required"))
		return
	}
	h.login(w, r, input, false)
}

// LoginJSON is the rate limited login used by the web client.
func (h *AuthHandler) LoginJSON(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.ChessComUsername == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("chess_com_username and password are required"))
		return
	}
	h.login(w, r, input, true)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, input services.LoginInput, limited bool) {
	res, err := h.authService.Login(r.Context(), input, clientInfo(r), limited)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	respond(w, r, http.StatusOK, player)
}

func (h *AuthHandler) VerifyUsername(w http.ResponseWriter, r *http.Request) {
	check, err := h.authService.VerifyUsername(r.Context(), urlParam(r, "username"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, check)
}

func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Phone string `json:"phone"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(input.Phone) == "" {
		badRequestResponse(w, r, errors.New("phone is required"))
		return
	}

	out, err := h.resetService.RequestReset(r.Context(), input.Phone)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Phone       string `json:"phone"`
		OTP         string `json:"otp"`
		NewPassword string `json:"new_password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Phone == "" || input.OTP == "" || input.NewPassword == "" {
		badRequestResponse(w, r, errors.New("phone, otp and new_password are required"))
		return
	}

	if err := h.resetService.ResetPassword(r.Context(), input.Phone, input.OTP, input.NewPassword); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	message(w, r, "Password reset successfully. You can now login with your new password.")
}

// RecordFingerprint stores the device a player just signed in from.
func (h *AuthHandler) RecordFingerprint(w http.ResponseWriter, r *http.Request) {
	h.recordFingerprint(w, r, "login")
}

func (h *AuthHandler) RecordRegistrationFingerprint(w http.ResponseWriter, r *http.Request) {
	h.recordFingerprint(w, r, "register")
}

func (h *AuthHandler) recordFingerprint(w http.ResponseWriter, r *http.Request, sessionType string) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	var fp models.DeviceFingerprint
	if err := readJSON(w, r, &fp); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rec, err := h.securityService.RecordLogin(r.Context(), player, &fp, clientInfo(r).IP, sessionType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if sessionType == "register" {
		respond(w, r, http.StatusOK, jsonResponse{
			"message":        "Registration fingerprint recorded",
			"device_trusted": true,
		})
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{
		"message":       "Fingerprint recorded",
		"is_new_device": rec.Login.IsNewDevice,
		"risk_score":    rec.RiskScore,
		"risk_level":    riskLevel(rec.RiskScore),
	})
}

func riskLevel(score float64) string {
	switch {
	case score >= 80:
		return "critical"
	case score >= 60:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}

func (h *AuthHandler) SecurityStatus(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	status, err := h.securityService.Status(r.Context(), player)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, status)
}
