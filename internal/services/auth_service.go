package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bikeshop/internal/models"
	"bikeshop/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Session is the authenticated identity attached to a request.
type Session struct {
	UserID    string
	Username  string
	SessionID string
	ExpiresAt time.Time
}

// CartOwner returns the cart handle for this session.
func (s *Session) CartOwner() CartOwner {
	return CartOwner{UserID: s.UserID, SessionID: s.SessionID}
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	sessionTTL time.Duration
	log        logrus.FieldLogger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, sessionTTL time.Duration, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
		log:        log,
	}
}

// SessionTTL is how long an issued session stays valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// RegisterUser registers a new user, hashes their password, and saves them to the database.
func (s *AuthService) RegisterUser(user *models.User) error {
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))

	if _, err := s.userRepo.GetByUsername(user.Username); err == nil {
		return fmt.Errorf("%w: '%s'", ErrDuplicateUsername, user.Username)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if _, err := s.userRepo.GetByEmail(user.Email); err == nil {
		return fmt.Errorf("%w: '%s'", ErrDuplicateEmail, user.Email)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repositories.ErrDuplicate) {
			return fmt.Errorf("%w: '%s'", ErrDuplicateUsername, user.Username)
		}
		return fmt.Errorf("failed to register user: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
	return nil
}

// Authenticate checks a username or email against the stored password hash.
func (s *AuthService) Authenticate(login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)

	var user *models.User
	var err error
	if strings.Contains(login, "@") {
		user, err = s.userRepo.GetByEmail(strings.ToLower(login))
		if errors.Is(err, repositories.ErrNotFound) {
			user, err = s.userRepo.GetByUsername(login)
		}
	} else {
		user, err = s.userRepo.GetByUsername(login)
	}
	if err != nil {
		// Do not reveal whether the account exists.
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// LoginUser authenticates a user and returns a signed session token.
func (s *AuthService) LoginUser(login, password string) (string, *Session, error) {
	user, err := s.Authenticate(login, password)
	if err != nil {
		return "", nil, err
	}
	return s.IssueSession(user)
}

// IssueSession signs a new session for user with a fresh session ID.
func (s *AuthService) IssueSession(user *models.User) (string, *Session, error) {
	now := time.Now()
	session := &Session{
		UserID:    user.ID,
		Username:  user.Username,
		SessionID: uuid.New().String(),
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  session.UserID,
		"username": session.Username,
		"sid":      session.SessionID,
		"exp":      session.ExpiresAt.Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, session, nil
}

// ValidateToken parses and validates a session token.
func (s *AuthService) ValidateToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token: %v", ErrNotAuthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrNotAuthenticated)
	}

	userID, _ := claims["user_id"].(string)
	sessionID, _ := claims["sid"].(string)
	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("%w: token is missing identity claims", ErrNotAuthenticated)
	}
	username, _ := claims["username"].(string)

	session := &Session{UserID: userID, Username: username, SessionID: sessionID}
	if exp, ok := claims["exp"].(float64); ok {
		session.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return session, nil
}

// GetUser returns the account behind a session.
func (s *AuthService) GetUser(userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrNotAuthenticated)
		}
		return nil, err
	}
	return user, nil
}

// RequireAdmin returns ErrNotAuthorized unless the user has the admin flag.
func (s *AuthService) RequireAdmin(userID string) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, ErrNotAuthorized
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account unless the username already exists.
func (s *AuthService) EnsureAdmin(username, email, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.userRepo.GetByUsername(username); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &models.User{
		Username: username,
		Email:    strings.ToLower(email),
		Password: string(hashedPassword),
		IsAdmin:  true,
	}
	if err := s.userRepo.Create(admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	s.log.WithField("username", username).Info("Admin account created")
	return nil
}
