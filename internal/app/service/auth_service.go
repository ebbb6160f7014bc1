package service

import (
	"context"

	"globalnews_translator/internal/common"
	"globalnews_translator/internal/common/security"

	"go.uber.org/zap"
)

const operatorSubject = "operator"

// AuthService exchanges the operator password for a signed token.
type AuthService struct {
	passwordHash string
	issuer       *security.TokenIssuer
	log          *zap.Logger
}

func NewAuthService(passwordHash string, issuer *security.TokenIssuer, log *zap.Logger) *AuthService {
	return &AuthService{passwordHash: passwordHash, issuer: issuer, log: log.Named("auth")}
}

type LoginRequest struct {
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

func (s *AuthService) Login(_ context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Password == "" {
		return nil, common.Errorf("password is required: %w", common.ErrBadRequest)
	}
	if s.passwordHash == "" {
		return nil, common.Errorf("operator login is not configured: %w", common.ErrServiceUnavailable)
	}
	if !security.CheckPasswordHash(req.Password, s.passwordHash) {
		s.log.Warn("operator login rejected")
		return nil, common.Errorf("invalid credentials: %w", common.ErrUnauthorized)
	}

	token, err := s.issuer.GenerateToken(operatorSubject, security.RoleOperator)
	if err != nil {
		return nil, common.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Token: token}, nil
}
