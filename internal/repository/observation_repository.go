package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/pkg/pagination"
)

const observationColumns = "id, student_name, observation, is_favorite, is_completed, created_at, completed_at"

var observationSorts = map[string]string{
	"createdAt":   "created_at",
	"studentName": "student_name",
	"completedAt": "completed_at",
}

// ObservationRepository manages persistence for observations.
type ObservationRepository struct {
	db *sqlx.DB
}

// NewObservationRepository constructs an ObservationRepository.
func NewObservationRepository(db *sqlx.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// List returns one window of observations matching the filter together with
// the number of matching rows. A zero PageSize returns every matching row.
func (r *ObservationRepository) List(ctx context.Context, filter models.ObservationFilter) ([]models.Observation, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	switch filter.Filter {
	case models.FilterActive:
		conditions = append(conditions, fmt.Sprintf("is_completed = $%d", len(args)+1))
		args = append(args, false)
	case models.FilterCompleted:
		conditions = append(conditions, fmt.Sprintf("is_completed = $%d", len(args)+1))
		args = append(args, true)
	case models.FilterFavorites:
		conditions = append(conditions, fmt.Sprintf("is_favorite = $%d", len(args)+1))
		args = append(args, true)
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	column, ok := observationSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	query := fmt.Sprintf("SELECT %s FROM observations %s ORDER BY %s %s", observationColumns, where, column, order)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		size := filter.PageSize
		if size > pagination.MaxItemsPerPage {
			size = pagination.MaxItemsPerPage
		}
		query = fmt.Sprintf("%s LIMIT %d OFFSET %d", query, size, (page-1)*size)
	}

	observations := []models.Observation{}
	if err := r.db.SelectContext(ctx, &observations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list observations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM observations "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count observations: %w", err)
	}
	return observations, total, nil
}

// FindByID fetches a single observation.
func (r *ObservationRepository) FindByID(ctx context.Context, id string) (*models.Observation, error) {
	query := "SELECT " + observationColumns + " FROM observations WHERE id = $1"
	var observation models.Observation
	if err := r.db.GetContext(ctx, &observation, query, id); err != nil {
		return nil, err
	}
	return &observation, nil
}

// Create inserts a new observation, assigning an id when missing.
func (r *ObservationRepository) Create(ctx context.Context, observation *models.Observation) error {
	if observation.ID == "" {
		observation.ID = uuid.NewString()
	}
	const query = `INSERT INTO observations (id, student_name, observation, is_favorite, is_completed, created_at, completed_at)
        VALUES (:id, :student_name, :observation, :is_favorite, :is_completed, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, observation); err != nil {
		return fmt.Errorf("create observation: %w", err)
	}
	return nil
}

// Replace overwrites every mutable column. It returns sql.ErrNoRows when the id is unknown.
func (r *ObservationRepository) Replace(ctx context.Context, observation *models.Observation) error {
	const query = `UPDATE observations SET student_name = :student_name, observation = :observation, is_favorite = :is_favorite,
        is_completed = :is_completed, created_at = :created_at, completed_at = :completed_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, observation)
	if err != nil {
		return fmt.Errorf("update observation: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an observation. It returns sql.ErrNoRows when the id is unknown.
func (r *ObservationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM observations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete observation: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
