package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/docuchat/docuchat-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

// AuthService validates bearer tokens issued by the identity provider.
// Identity is established once at the boundary and carried in request
// context; inner components never re-derive it.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	log       *logger.Logger
	jwtSecret []byte
}

func NewAuthService(log *logger.Logger, jwtSecret string) (AuthService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(jwtSecret) == "" {
		return nil, fmt.Errorf("missing JWT secret")
	}
	return &authService{
		log:       log.With("service", "AuthService"),
		jwtSecret: []byte(jwtSecret),
	}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if strings.TrimSpace(tokenString) == "" {
		return ctx, fmt.Errorf("%w: missing token", pkgerrors.ErrUnauthorized)
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return as.jwtSecret, nil
	})
	if err != nil {
		return ctx, fmt.Errorf("%w: parse token: %v", pkgerrors.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("%w: invalid or expired token", pkgerrors.ErrUnauthorized)
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return ctx, fmt.Errorf("%w: token has no subject", pkgerrors.ErrUnauthorized)
	}

	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:      userID,
		TokenString: tokenString,
	}), nil
}
