package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/service"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
)

type Authenticator interface {
	Register(ctx context.Context, name, email, password string, addresses ...domain.Address) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

type AuthHandler struct {
	svc Authenticator
	log *logger.Logger
}

func NewAuthHandler(svc Authenticator, log *logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

type RegisterRequestDTO struct {
	Name      string       `json:"name" validate:"max=100"`
	Email     string       `json:"email" validate:"required,email"`
	Password  string       `json:"password" validate:"required,max=72"`
	Addresses []AddressDTO `json:"addresses" validate:"max=10,dive"`
}

type AddressDTO struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postalCode" validate:"max=20"`
	Country    string `json:"country" validate:"required,max=100"`
	IsDefault  bool   `json:"isDefault"`
}

func (a AddressDTO) toDomain() domain.Address {
	return domain.Address{
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
		IsDefault:  a.IsDefault,
	}
}

type LoginRequestDTO struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *RegisterRequestDTO) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = domain.NormalizeEmail(r.Email)
}

func (r *LoginRequestDTO) normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
}

type userView struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Roles     []string         `json:"roles,omitempty"`
	Addresses []domain.Address `json:"addresses,omitempty"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expiresAt"`
	User      userView `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	addresses := make([]domain.Address, 0, len(req.Addresses))
	for _, a := range req.Addresses {
		addresses = append(addresses, a.toDomain())
	}
	u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password, addresses...)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, h.log, http.StatusCreated, userView{ID: u.ID, Email: u.Email, Name: u.Name, Addresses: u.Addresses})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, h.log, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.Unix(),
		User:      userView{ID: res.User.ID, Email: res.User.Email, Name: res.User.Name, Roles: res.User.Roles},
	})
}
