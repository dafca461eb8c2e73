package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStaffRepository implements StaffRepository using PostgreSQL.
type PostgresStaffRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStaffRepository creates a new PostgreSQL staff repository.
func NewPostgresStaffRepository(pool *pgxpool.Pool) *PostgresStaffRepository {
	return &PostgresStaffRepository{pool: pool}
}

const staffColumns = `
	id, staff_id, full_name, email, role, password_hash, approved, is_password_temporary,
	temp_code_hash, temp_code_expires_at, temp_failed_attempts,
	forgot_code_hash, forgot_code_expires_at, forgot_failed_attempts,
	created_at, updated_at
`

func scanStaff(row pgx.Row) (StaffAccount, error) {
	var a StaffAccount
	var passwordHash, tempHash, forgotHash sql.NullString
	var tempExpires, forgotExpires sql.NullTime

	err := row.Scan(
		&a.ID, &a.StaffID, &a.FullName, &a.Email, &a.Role, &passwordHash,
		&a.Approved, &a.IsPasswordTemporary,
		&tempHash, &tempExpires, &a.TempPassword.FailedAttempts,
		&forgotHash, &forgotExpires, &a.ForgotPassword.FailedAttempts,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StaffAccount{}, ErrNotFound
		}
		return StaffAccount{}, fmt.Errorf("failed to scan staff account: %w", err)
	}

	a.PasswordHash = passwordHash.String
	a.TempPassword.CodeHash = tempHash.String
	if tempExpires.Valid {
		t := tempExpires.Time
		a.TempPassword.CodeExpiresAt = &t
	}
	a.ForgotPassword.CodeHash = forgotHash.String
	if forgotExpires.Valid {
		t := forgotExpires.Time
		a.ForgotPassword.CodeExpiresAt = &t
	}
	return a, nil
}

// GetByID retrieves a staff account by internal id.
func (r *PostgresStaffRepository) GetByID(ctx context.Context, id uuid.UUID) (StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE id = $1`
	return scanStaff(r.pool.QueryRow(ctx, query, id))
}

// FindByStaffID retrieves a staff account by its human-facing staff id.
func (r *PostgresStaffRepository) FindByStaffID(ctx context.Context, staffID string) (StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE staff_id = $1`
	return scanStaff(r.pool.QueryRow(ctx, query, staffID))
}

// FindByEmail retrieves a staff account by email.
func (r *PostgresStaffRepository) FindByEmail(ctx context.Context, email string) (StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE lower(email) = lower($1)`
	return scanStaff(r.pool.QueryRow(ctx, query, email))
}

// Create inserts a new staff account.
func (r *PostgresStaffRepository) Create(ctx context.Context, account StaffAccount) (StaffAccount, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	query := `
		INSERT INTO staff_accounts (
			id, staff_id, full_name, email, role, password_hash, approved, is_password_temporary,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NOW(), NOW())
		RETURNING ` + staffColumns

	row := r.pool.QueryRow(ctx, query,
		account.ID, account.StaffID, account.FullName, account.Email,
		account.Role, account.PasswordHash, account.Approved, account.IsPasswordTemporary,
	)
	created, err := scanStaff(row)
	if err != nil {
		if isUniqueViolation(err) {
			return StaffAccount{}, ErrDuplicate
		}
		return StaffAccount{}, fmt.Errorf("failed to create staff account: %w", err)
	}
	return created, nil
}

// Save persists all mutable fields of an existing staff account.
func (r *PostgresStaffRepository) Save(ctx context.Context, account StaffAccount) (StaffAccount, error) {
	query := `
		UPDATE staff_accounts
		SET full_name = $2,
		    email = $3,
		    role = $4,
		    password_hash = NULLIF($5, ''),
		    approved = $6,
		    is_password_temporary = $7,
		    temp_code_hash = NULLIF($8, ''),
		    temp_code_expires_at = $9,
		    temp_failed_attempts = $10,
		    forgot_code_hash = NULLIF($11, ''),
		    forgot_code_expires_at = $12,
		    forgot_failed_attempts = $13,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + staffColumns

	row := r.pool.QueryRow(ctx, query,
		account.ID, account.FullName, account.Email, account.Role,
		account.PasswordHash, account.Approved, account.IsPasswordTemporary,
		account.TempPassword.CodeHash, account.TempPassword.CodeExpiresAt, account.TempPassword.FailedAttempts,
		account.ForgotPassword.CodeHash, account.ForgotPassword.CodeExpiresAt, account.ForgotPassword.FailedAttempts,
	)
	saved, err := scanStaff(row)
	if err != nil {
		return StaffAccount{}, err
	}
	return saved, nil
}

// UpdatePasswordHash replaces the password hash for a staff account.
func (r *PostgresStaffRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	query := `
		UPDATE staff_accounts
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update staff password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRecoveryState writes one recovery slot in a single statement.
func (r *PostgresStaffRepository) UpdateRecoveryState(ctx context.Context, id uuid.UUID, slot Slot, st RecoveryState) error {
	var query string
	switch slot {
	case SlotTempPassword:
		query = `
			UPDATE staff_accounts
			SET temp_code_hash = NULLIF($2, ''),
			    temp_code_expires_at = $3,
			    temp_failed_attempts = $4,
			    updated_at = NOW()
			WHERE id = $1
		`
	case SlotForgotPassword:
		query = `
			UPDATE staff_accounts
			SET forgot_code_hash = NULLIF($2, ''),
			    forgot_code_expires_at = $3,
			    forgot_failed_attempts = $4,
			    updated_at = NOW()
			WHERE id = $1
		`
	default:
		return ErrNoSuchSlot
	}

	result, err := r.pool.Exec(ctx, query, id, st.CodeHash, st.CodeExpiresAt, st.FailedAttempts)
	if err != nil {
		return fmt.Errorf("failed to update recovery state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a staff account.
func (r *PostgresStaffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM staff_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete staff account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresStudentRepository implements StudentRepository using PostgreSQL.
type PostgresStudentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStudentRepository creates a new PostgreSQL student repository.
func NewPostgresStudentRepository(pool *pgxpool.Pool) *PostgresStudentRepository {
	return &PostgresStudentRepository{pool: pool}
}

const studentColumns = `
	id, e_number, full_name, email, password_hash,
	forgot_code_hash, forgot_code_expires_at, forgot_failed_attempts,
	created_at, updated_at
`

func scanStudent(row pgx.Row) (StudentAccount, error) {
	var a StudentAccount
	var forgotHash sql.NullString
	var forgotExpires sql.NullTime

	err := row.Scan(
		&a.ID, &a.ENumber, &a.FullName, &a.Email, &a.PasswordHash,
		&forgotHash, &forgotExpires, &a.ForgotPassword.FailedAttempts,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StudentAccount{}, ErrNotFound
		}
		return StudentAccount{}, fmt.Errorf("failed to scan student account: %w", err)
	}

	a.ForgotPassword.CodeHash = forgotHash.String
	if forgotExpires.Valid {
		t := forgotExpires.Time
		a.ForgotPassword.CodeExpiresAt = &t
	}
	return a, nil
}

// GetByID retrieves a student account by internal id.
func (r *PostgresStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (StudentAccount, error) {
	query := `SELECT ` + studentColumns + ` FROM student_accounts WHERE id = $1`
	return scanStudent(r.pool.QueryRow(ctx, query, id))
}

// FindByENumber retrieves a student account by e-number.
func (r *PostgresStudentRepository) FindByENumber(ctx context.Context, eNumber string) (StudentAccount, error) {
	query := `SELECT ` + studentColumns + ` FROM student_accounts WHERE e_number = $1`
	return scanStudent(r.pool.QueryRow(ctx, query, eNumber))
}

// FindByEmail retrieves a student account by email.
func (r *PostgresStudentRepository) FindByEmail(ctx context.Context, email string) (StudentAccount, error) {
	query := `SELECT ` + studentColumns + ` FROM student_accounts WHERE lower(email) = lower($1)`
	return scanStudent(r.pool.QueryRow(ctx, query, email))
}

// Create inserts a new student account.
func (r *PostgresStudentRepository) Create(ctx context.Context, account StudentAccount) (StudentAccount, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	query := `
		INSERT INTO student_accounts (id, e_number, full_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + studentColumns

	row := r.pool.QueryRow(ctx, query,
		account.ID, account.ENumber, account.FullName, account.Email, account.PasswordHash,
	)
	created, err := scanStudent(row)
	if err != nil {
		if isUniqueViolation(err) {
			return StudentAccount{}, ErrDuplicate
		}
		return StudentAccount{}, fmt.Errorf("failed to create student account: %w", err)
	}
	return created, nil
}

// Save persists all mutable fields of an existing student account.
func (r *PostgresStudentRepository) Save(ctx context.Context, account StudentAccount) (StudentAccount, error) {
	query := `
		UPDATE student_accounts
		SET full_name = $2,
		    email = $3,
		    password_hash = $4,
		    forgot_code_hash = NULLIF($5, ''),
		    forgot_code_expires_at = $6,
		    forgot_failed_attempts = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + studentColumns

	row := r.pool.QueryRow(ctx, query,
		account.ID, account.FullName, account.Email, account.PasswordHash,
		account.ForgotPassword.CodeHash, account.ForgotPassword.CodeExpiresAt, account.ForgotPassword.FailedAttempts,
	)
	saved, err := scanStudent(row)
	if err != nil {
		return StudentAccount{}, err
	}
	return saved, nil
}

// UpdatePasswordHash replaces the password hash for a student account.
func (r *PostgresStudentRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	query := `
		UPDATE student_accounts
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update student password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRecoveryState writes the forgot-password slot in a single statement.
func (r *PostgresStudentRepository) UpdateRecoveryState(ctx context.Context, id uuid.UUID, st RecoveryState) error {
	query := `
		UPDATE student_accounts
		SET forgot_code_hash = NULLIF($2, ''),
		    forgot_code_expires_at = $3,
		    forgot_failed_attempts = $4,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, st.CodeHash, st.CodeExpiresAt, st.FailedAttempts)
	if err != nil {
		return fmt.Errorf("failed to update recovery state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a student account.
func (r *PostgresStudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM student_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
