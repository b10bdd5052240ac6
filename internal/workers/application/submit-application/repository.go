package submitapplication

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"collision-site/internal/models"

	"github.com/google/uuid"
)

var ErrInsertFailed = errors.New("INSERT_FAILED")

const insertApplicationSQL = `
	INSERT INTO job_applications (
		id, first_name, last_name, email, phone, address, city, state, zip,
		position, experience, start_date, resume_url, "references", created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

// Repository writes job applications to Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores app and returns its id. ID and CreatedAt are assigned here
// when empty.
func (r *Repository) Insert(ctx context.Context, app *models.JobApplication) (string, error) {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	if app.StartDate.IsZero() {
		app.StartDate = app.CreatedAt
	}

	refs := app.References
	if refs == nil {
		refs = []models.Reference{}
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("%w: marshal references: %v", ErrInsertFailed, err)
	}

	var resume sql.NullString
	if app.ResumeURL != nil {
		resume = sql.NullString{String: *app.ResumeURL, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, insertApplicationSQL,
		app.ID,
		app.FirstName,
		app.LastName,
		app.Email,
		app.Phone,
		app.Address,
		app.City,
		app.State,
		app.Zip,
		app.Position,
		app.Experience,
		app.StartDate.Format("2006-01-02"),
		resume,
		refsJSON,
		app.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	return app.ID, nil
}
