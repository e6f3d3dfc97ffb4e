package services

import (
	"database/sql"
	"time"

	"github.com/spendlog/expense-api/internal/models"
)

// CategoryServiceProvider defines the interface for category services.
// Every operation is scoped by the owner's user id; a row belonging to
// another user behaves exactly like a missing row.
type CategoryServiceProvider interface {
	ListCategories(ownerID int64, nameQuery string) ([]models.Category, error)
	CreateCategory(ownerID int64, name string, description *string) (models.Category, error)
	GetCategory(id, ownerID int64) (models.Category, error)
	UpdateCategory(id, ownerID int64, name string, description *string) (models.Category, error)
	DeleteCategory(id, ownerID int64) error
}

// CategoryService provides business logic for category management.
type CategoryService struct {
	db *sql.DB
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(db *sql.DB) *CategoryService {
	return &CategoryService{db: db}
}

func scanCategory(row interface{ Scan(...any) error }) (models.Category, error) {
	var cat models.Category
	var desc sql.NullString
	err := row.Scan(&cat.ID, &cat.Name, &desc, &cat.OwnerID, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return models.Category{}, err
	}
	if desc.Valid {
		cat.Description = &desc.String
	}
	return cat, nil
}

// ListCategories returns the owner's categories ordered by name, optionally
// filtered by a case-insensitive name substring.
func (s *CategoryService) ListCategories(ownerID int64, nameQuery string) ([]models.Category, error) {
	query := "SELECT id, name, description, owner_id, created_at, updated_at FROM categories WHERE owner_id = ?"
	args := []any{ownerID}
	if nameQuery != "" {
		query += " AND LOWER(name) LIKE '%' || LOWER(?) || '%'"
		args = append(args, nameQuery)
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// CreateCategory creates a category owned by the given user.
func (s *CategoryService) CreateCategory(ownerID int64, name string, description *string) (models.Category, error) {
	now := time.Now().UTC()
	stmt, err := s.db.Prepare("INSERT INTO categories(name, description, owner_id, created_at, updated_at) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return models.Category{}, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(name, description, ownerID, now, now)
	if err != nil {
		return models.Category{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Category{}, err
	}

	return models.Category{
		ID:          id,
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetCategory retrieves a category by id, ensuring ownership.
func (s *CategoryService) GetCategory(id, ownerID int64) (models.Category, error) {
	row := s.db.QueryRow("SELECT id, name, description, owner_id, created_at, updated_at FROM categories WHERE id = ? AND owner_id = ?", id, ownerID)
	cat, err := scanCategory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Category{}, ErrNotFound
		}
		return models.Category{}, err
	}
	return cat, nil
}

// UpdateCategory replaces a category's mutable fields if owned by the user.
func (s *CategoryService) UpdateCategory(id, ownerID int64, name string, description *string) (models.Category, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec("UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE id = ? AND owner_id = ?",
		name, description, now, id, ownerID)
	if err != nil {
		return models.Category{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.Category{}, err
	} else if n == 0 {
		return models.Category{}, ErrNotFound
	}
	return s.GetCategory(id, ownerID)
}

// DeleteCategory removes an owned category. Expenses that referenced it
// keep existing with category_id set to null; the sweep runs in the same
// transaction as the delete.
func (s *CategoryService) DeleteCategory(id, ownerID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var found int64
	err = tx.QueryRow("SELECT id FROM categories WHERE id = ? AND owner_id = ?", id, ownerID).Scan(&found)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec("UPDATE expenses SET category_id = NULL WHERE category_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM categories WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}
