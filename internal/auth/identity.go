package auth

import "github.com/highlightreel/backend/internal/middleware"

// Identify implements middleware.TokenValidator.
func (s *JWTService) Identify(token string) (middleware.Identity, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return middleware.Identity{}, err
	}
	return middleware.Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
