package jwttoken

import (
	mw "creditbridge/internal/platform/middleware"
)

// MiddlewareAdapter narrows Service to the validator interface the auth
// middleware expects.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*mw.OperatorClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &mw.OperatorClaims{
		Operator: claims.Operator,
		Role:     claims.Role,
	}, nil
}
