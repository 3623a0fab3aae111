package services

import (
	"fmt"
	"time"

	"chat-broker/auth"
	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/errors"
)

type IAuthService interface {
	Login(email, password string) (Token, error)
	Register(email, password string, role domain.Role) (Token, error)
}

type AuthService struct {
	userRepository contract.IUserRepository
	tokenDuration  time.Duration
}

type Token string

func NewAuthService(repo contract.IUserRepository, tokenDuration time.Duration) IAuthService {
	return &AuthService{userRepository: repo, tokenDuration: tokenDuration}
}

func (s *AuthService) Register(email, password string, role domain.Role) (Token, error) {
	valReq := auth.RegisterRequest{
		Email:    email,
		Password: password,
		Role:     string(role),
	}

	// Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens in the service layer to keep the repository unaware
	// of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(email, hashedPassword, role)
	if err != nil {
		return "", err // Propagates ErrUserAlreadyExists if email is taken
	}

	token, err := auth.GenerateToken(userID, role, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}

	return Token(token), nil
}

func (s *AuthService) Login(email, password string) (Token, error) {
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Role, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}

	return Token(token), nil
}
