package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spendlog/expense-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(id int64) (models.User, error)
	GetUserByEmail(email string) (models.User, error)
	CreateUser(email, password string, fullName *string) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	DeleteUser(id int64) error
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id int64) (models.User, error) {
	var user models.User
	var fullName sql.NullString
	row := s.db.QueryRow("SELECT id, email, full_name, created_at, updated_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Email, &fullName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	if fullName.Valid {
		user.FullName = &fullName.String
	}
	return user, nil
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
// The lookup is an exact, case-sensitive match.
func (s *UserService) GetUserByEmail(email string) (models.User, error) {
	var user models.User
	var fullName sql.NullString
	row := s.db.QueryRow("SELECT id, email, full_name, password_hash, created_at, updated_at FROM users WHERE email = ?", email)
	err := row.Scan(&user.ID, &user.Email, &fullName, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	if fullName.Valid {
		user.FullName = &fullName.String
	}
	return user, nil
}

// CreateUser creates a new user, hashing their password. Returns
// ErrEmailTaken if the email is already registered.
func (s *UserService) CreateUser(email, password string, fullName *string) (models.User, error) {
	var exists int64
	err := s.db.QueryRow("SELECT id FROM users WHERE email = ?", email).Scan(&exists)
	if err == nil {
		return models.User{}, ErrEmailTaken
	}
	if err != sql.ErrNoRows {
		return models.User{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stmt, err := s.db.Prepare("INSERT INTO users(email, full_name, password_hash, created_at, updated_at) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(user.Email, user.FullName, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// AuthenticateUser verifies a user's credentials. Unknown emails and wrong
// passwords both return ErrInvalidCredentials.
func (s *UserService) AuthenticateUser(email, password string) (models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if err == ErrNotFound {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// DeleteUser removes a user together with all of their categories and
// expenses. The dependent rows are swept explicitly inside the same
// transaction rather than left to the schema's ON DELETE actions.
func (s *UserService) DeleteUser(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM expenses WHERE owner_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM categories WHERE owner_id = ?", id); err != nil {
		return err
	}
	res, err := tx.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
