package auth

// Service verifies bearer tokens for the API.
type Service struct {
	jwt *JWTService
}

// NewService creates a new auth service.
func NewService(jwtService *JWTService) *Service {
	return &Service{jwt: jwtService}
}

// ValidateAccessToken validates a bearer token and returns the user ID.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	claims, err := s.jwt.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", ErrInvalidAccessToken
	}

	return userID, nil
}
