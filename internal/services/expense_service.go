package services

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spendlog/expense-api/internal/models"
)

// ExpenseInput carries the client-settable fields of an expense. The
// owner is never part of the input; it always comes from the caller's
// authenticated identity.
type ExpenseInput struct {
	Amount     decimal.Decimal
	Currency   string
	Note       *string
	SpentAt    time.Time
	CategoryID *int64
}

// ExpenseFilter narrows an expense listing. Start and End are inclusive
// bounds on spent_at.
type ExpenseFilter struct {
	Start      *time.Time
	End        *time.Time
	CategoryID *int64
}

// ExpenseServiceProvider defines the interface for expense services.
type ExpenseServiceProvider interface {
	ListExpenses(ownerID int64, filter ExpenseFilter) ([]models.Expense, error)
	CreateExpense(ownerID int64, in ExpenseInput) (models.Expense, error)
	GetExpense(id, ownerID int64) (models.Expense, error)
	UpdateExpense(id, ownerID int64, in ExpenseInput) (models.Expense, error)
	DeleteExpense(id, ownerID int64) error
}

// ExpenseService provides business logic for expense management.
type ExpenseService struct {
	db *sql.DB
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(db *sql.DB) *ExpenseService {
	return &ExpenseService{db: db}
}

// normalize applies field defaults and rounds the amount to two fractional
// digits, half away from zero.
func (in ExpenseInput) normalize() ExpenseInput {
	in.Amount = in.Amount.Round(2)
	if in.Currency == "" {
		in.Currency = "USD"
	}
	if in.SpentAt.IsZero() {
		in.SpentAt = time.Now().UTC()
	}
	return in
}

// checkCategoryOwnership verifies that the referenced category exists and
// belongs to the owner. A category owned by someone else is treated the
// same as a nonexistent one.
func (s *ExpenseService) checkCategoryOwnership(categoryID, ownerID int64) error {
	var id int64
	err := s.db.QueryRow("SELECT id FROM categories WHERE id = ? AND owner_id = ?", categoryID, ownerID).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrInvalidCategory
	}
	return err
}

func scanExpense(row interface{ Scan(...any) error }) (models.Expense, error) {
	var exp models.Expense
	var amount string
	var note sql.NullString
	var categoryID sql.NullInt64
	err := row.Scan(&exp.ID, &amount, &exp.Currency, &note, &exp.SpentAt, &exp.OwnerID, &categoryID, &exp.CreatedAt, &exp.UpdatedAt)
	if err != nil {
		return models.Expense{}, err
	}
	exp.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return models.Expense{}, err
	}
	if note.Valid {
		exp.Note = &note.String
	}
	if categoryID.Valid {
		exp.CategoryID = &categoryID.Int64
	}
	return exp, nil
}

const expenseColumns = "id, amount, currency, note, spent_at, owner_id, category_id, created_at, updated_at"

// ListExpenses returns the owner's expenses, newest first (spent_at
// descending, ties broken by id descending), optionally filtered by an
// inclusive spent_at range and an exact category.
func (s *ExpenseService) ListExpenses(ownerID int64, filter ExpenseFilter) ([]models.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE owner_id = ?"
	args := []any{ownerID}
	if filter.Start != nil {
		query += " AND spent_at >= ?"
		args = append(args, filter.Start.UTC())
	}
	if filter.End != nil {
		query += " AND spent_at <= ?"
		args = append(args, filter.End.UTC())
	}
	if filter.CategoryID != nil {
		query += " AND category_id = ?"
		args = append(args, *filter.CategoryID)
	}
	query += " ORDER BY spent_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, exp)
	}
	return expenses, rows.Err()
}

// CreateExpense creates an expense owned by the given user. A non-nil
// category_id must reference one of the owner's categories.
func (s *ExpenseService) CreateExpense(ownerID int64, in ExpenseInput) (models.Expense, error) {
	in = in.normalize()
	if in.CategoryID != nil {
		if err := s.checkCategoryOwnership(*in.CategoryID, ownerID); err != nil {
			return models.Expense{}, err
		}
	}

	now := time.Now().UTC()
	stmt, err := s.db.Prepare("INSERT INTO expenses(amount, currency, note, spent_at, owner_id, category_id, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return models.Expense{}, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(in.Amount.StringFixed(2), in.Currency, in.Note, in.SpentAt.UTC(), ownerID, in.CategoryID, now, now)
	if err != nil {
		return models.Expense{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Expense{}, err
	}
	return s.GetExpense(id, ownerID)
}

// GetExpense retrieves a single expense with ownership validation.
func (s *ExpenseService) GetExpense(id, ownerID int64) (models.Expense, error) {
	row := s.db.QueryRow("SELECT "+expenseColumns+" FROM expenses WHERE id = ? AND owner_id = ?", id, ownerID)
	exp, err := scanExpense(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Expense{}, ErrNotFound
		}
		return models.Expense{}, err
	}
	return exp, nil
}

// UpdateExpense replaces all mutable fields of an owned expense, validating
// category ownership exactly as creation does.
func (s *ExpenseService) UpdateExpense(id, ownerID int64, in ExpenseInput) (models.Expense, error) {
	in = in.normalize()
	if in.CategoryID != nil {
		if err := s.checkCategoryOwnership(*in.CategoryID, ownerID); err != nil {
			return models.Expense{}, err
		}
	}

	now := time.Now().UTC()
	res, err := s.db.Exec("UPDATE expenses SET amount = ?, currency = ?, note = ?, spent_at = ?, category_id = ?, updated_at = ? WHERE id = ? AND owner_id = ?",
		in.Amount.StringFixed(2), in.Currency, in.Note, in.SpentAt.UTC(), in.CategoryID, now, id, ownerID)
	if err != nil {
		return models.Expense{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.Expense{}, err
	} else if n == 0 {
		return models.Expense{}, ErrNotFound
	}
	return s.GetExpense(id, ownerID)
}

// DeleteExpense removes an owned expense.
func (s *ExpenseService) DeleteExpense(id, ownerID int64) error {
	res, err := s.db.Exec("DELETE FROM expenses WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}
