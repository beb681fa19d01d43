package app

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"docuchat/internal/model"
	"docuchat/internal/pkg/jwtutil"
	"docuchat/internal/pkg/mailer"
	"docuchat/internal/repository"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrEmailNotVerified  = errors.New("email is not verified")
	ErrInvalidCode       = errors.New("verification code is invalid or expired")
	ErrInvalidResetToken = errors.New("password reset token is invalid or expired")
)

type AuthService struct {
	userRepo        *repository.UserRepository
	mail            *mailer.Mailer
	jwtSecret       string
	jwtExpiration   time.Duration
	resetExpiration time.Duration
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token string
	User  *model.User
}

func NewAuthService(
	userRepo *repository.UserRepository,
	mail *mailer.Mailer,
	jwtSecret string,
	jwtExpiration, resetExpiration time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		mail:            mail,
		jwtSecret:       jwtSecret,
		jwtExpiration:   jwtExpiration,
		resetExpiration: resetExpiration,
	}
}

// Register creates an unverified account and mails a one-time code. No
// token is issued until the email is verified.
func (s *AuthService) Register(input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)

	if username == "" || email == "" || password == "" || len(password) < 8 {
		return nil, ErrInvalidInput
	}

	existingByName, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existingByName != nil {
		return nil, ErrUsernameExists
	}

	existingByEmail, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	if err := s.sendVerificationCode(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResendVerification issues a fresh code for an unverified account.
func (s *AuthService) ResendVerification(email string) error {
	user, err := s.userRepo.GetByEmail(strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return err
	}
	if user == nil || user.IsVerified {
		return ErrInvalidInput
	}
	return s.sendVerificationCode(user)
}

// VerifyEmail checks the mailed code and, on success, marks the account
// verified and issues the first token.
func (s *AuthService) VerifyEmail(email, code string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCode
	}
	if user.VerificationCode == "" || user.VerificationCode != code {
		return nil, ErrInvalidCode
	}
	if user.VerificationExpiresAt == nil || time.Now().After(*user.VerificationExpiresAt) {
		return nil, ErrInvalidCode
	}

	if err := s.userRepo.MarkVerified(user.ID); err != nil {
		return nil, err
	}
	user.IsVerified = true

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// ForgotPassword mails a short-lived reset token. It reports success even
// when the email is unknown so the endpoint cannot be used to probe for
// registered addresses.
func (s *AuthService) ForgotPassword(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return ErrInvalidInput
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	token, err := jwtutil.GenerateResetToken(s.jwtSecret, s.resetExpiration, user.ID, user.Username)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Use this token to reset your password (valid for %d minutes):\n\n%s", int(s.resetExpiration.Minutes()), token)
	return s.deliver(user.Email, "Password reset", body)
}

func (s *AuthService) ResetPassword(token, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	if newPassword == "" || len(newPassword) < 8 {
		return ErrInvalidInput
	}

	claims, err := jwtutil.ParseResetToken(s.jwtSecret, token)
	if err != nil {
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password failed: %w", err)
	}
	return s.userRepo.UpdatePasswordHash(claims.UserID, string(hash))
}

func (s *AuthService) GetUserByID(id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.userRepo.GetByID(id)
}

func (s *AuthService) sendVerificationCode(user *model.User) error {
	code, err := generateCode(6)
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(15 * time.Minute)
	if err := s.userRepo.SetVerificationCode(user.ID, code, expiresAt); err != nil {
		return err
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in 15 minutes.", code)
	return s.deliver(user.Email, "Verify your email", body)
}

func (s *AuthService) deliver(to, subject, body string) error {
	if s.mail == nil {
		log.Printf("mailer not configured, message to %s dropped: %s", to, subject)
		return nil
	}
	if err := s.mail.Send(to, subject, body); err != nil {
		return fmt.Errorf("send mail failed: %w", err)
	}
	return nil
}

func generateCode(digits int) (string, error) {
	var sb strings.Builder
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate code failed: %w", err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}
