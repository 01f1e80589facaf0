package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"foodhub/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    string
	Role     models.UserRole
}

type AuthService struct {
	DB *gorm.DB
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{DB: db}
}

// Register creates an active user. Username is checked before email; the
// unique indexes back both checks against concurrent registrations.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if utf8.RuneCountInString(in.Username) > models.UsernameMaxLen || utf8.RuneCountInString(in.Email) > models.EmailMaxLen {
		return nil, fmt.Errorf("%w: username or email too long", ErrValidation)
	}
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, in.Role)
	}

	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", ErrValidation, err)
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FullName:     truncate(strings.TrimSpace(in.FullName), models.FullNameMaxLen),
		Phone:        truncate(strings.TrimSpace(in.Phone), models.UserPhoneMaxLen),
		Role:         in.Role,
		IsActive:     true,
	}

	err = withTx(ctx, s.DB, "register user", func(tx *gorm.DB) error {
		if taken, err := exists(tx, &models.User{}, "username = ?", user.Username); err != nil {
			return err
		} else if taken {
			return ErrDuplicateUsername
		}
		if taken, err := exists(tx, &models.User{}, "email = ?", user.Email); err != nil {
			return err
		} else if taken {
			return ErrDuplicateEmail
		}
		return createUser(tx, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate verifies credentials. Unknown user and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := withTx(ctx, s.DB, "authenticate", func(tx *gorm.DB) error {
		err := tx.Where("username = ?", strings.TrimSpace(username)).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCredentials
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return &user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := withTx(ctx, s.DB, "get user", func(tx *gorm.DB) error {
		err := tx.First(&user, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// createUser inserts u. A unique violation from a concurrent registration is
// resolved by looking up which column now collides, since the translated
// driver error does not name it.
func createUser(tx *gorm.DB, u *models.User) error {
	err := tx.Create(u).Error
	if err == nil || !isUniqueViolation(err) {
		return err
	}
	if taken, qerr := exists(tx, &models.User{}, "username = ?", u.Username); qerr != nil {
		return qerr
	} else if taken {
		return ErrDuplicateUsername
	}
	if taken, qerr := exists(tx, &models.User{}, "email = ?", u.Email); qerr != nil {
		return qerr
	} else if taken {
		return ErrDuplicateEmail
	}
	return err
}

func exists(tx *gorm.DB, model any, query string, args ...any) (bool, error) {
	var n int64
	if err := tx.Model(model).Where(query, args...).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
