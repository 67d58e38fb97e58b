package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles business logic for customer authentication.
type AuthService struct {
	customerRepo repositories.CustomerRepository
	jwtSecret    []byte
	tokenDurat   time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(customerRepo repositories.CustomerRepository, jwtSecret string) *AuthService {
	return &AuthService{
		customerRepo: customerRepo,
		jwtSecret:    []byte(jwtSecret),
		tokenDurat:   24 * time.Hour, // Token valid for 24 hours
	}
}

// RegisterCustomer registers a new customer, hashes their password, and
// saves them to the database.
func (s *AuthService) RegisterCustomer(customer *models.Customer) error {
	// Check if the email is already registered
	if existing, err := s.customerRepo.GetByEmail(customer.Email); err == nil && existing != nil {
		return fmt.Errorf("email '%s' already registered", customer.Email)
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to check existing email: %w", err)
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(customer.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	customer.Password = string(hashedPassword) // Store the hashed password

	if err := s.customerRepo.Create(customer); err != nil {
		return fmt.Errorf("failed to register customer: %w", err)
	}
	return nil
}

// LoginCustomer authenticates a customer and returns a JWT token if successful.
func (s *AuthService) LoginCustomer(email, password string) (string, error) {
	customer, err := s.customerRepo.GetByEmail(email)
	if err != nil {
		// It's good practice not to reveal if the email exists or not for security
		return "", fmt.Errorf("invalid credentials")
	}

	// Compare the provided password with the hashed password
	if err := bcrypt.CompareHashAndPassword([]byte(customer.Password), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	// Generate JWT token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"customer_id": customer.ID,
		"email":       customer.Email,
		"exp":         time.Now().Add(s.tokenDurat).Unix(), // Token expiration time
		"iat":         time.Now().Unix(),                   // Issued at time
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
