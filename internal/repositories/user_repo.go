package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/ditto/internal/database"
	"github.com/BradenHooton/ditto/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, phone, email, first_name, last_name, auth_provider, social_id, profile_picture_url, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// NewUserRepositoryFromPool builds a repository over an existing pool
func NewUserRepositoryFromPool(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// rowScanner interface for scanning user rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var phone, email, socialID, pictureURL *string

	err := scanner.Scan(
		&user.ID, &phone, &email, &user.FirstName, &user.LastName,
		&user.AuthProvider, &socialID, &pictureURL,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.Phone = deref(phone)
	user.Email = deref(email)
	user.SocialID = deref(socialID)
	user.ProfilePictureURL = deref(pictureURL)

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, phone))
}

func (r *UserRepository) GetBySocialID(ctx context.Context, socialID, provider string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE social_id = $1 AND auth_provider = $2`
	return scanUserRow(r.pool.QueryRow(ctx, query, socialID, provider))
}

// GetByEmailAndProvider returns the oldest user with the email under the provider
func (r *UserRepository) GetByEmailAndProvider(ctx context.Context, email, provider string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE email = $1 AND auth_provider = $2
		ORDER BY created_at ASC LIMIT 1
	`
	return scanUserRow(r.pool.QueryRow(ctx, query, email, provider))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.AuthProvider == "" {
		user.AuthProvider = models.AuthProviderPhone
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, nullable(user.Phone), nullable(user.Email), user.FirstName, user.LastName,
		user.AuthProvider, nullable(user.SocialID), nullable(user.ProfilePictureURL),
		user.CreatedAt, user.UpdatedAt,
	))
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
