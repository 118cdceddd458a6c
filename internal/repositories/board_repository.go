package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"board-service/internal/models"
)

var ErrBoardNotFound = errors.New("board not found")

// BoardRepository abstracts board document persistence. Boards are stored
// whole, one document per board id; the sync engine is the unit of
// consistency, so partial updates are never needed.
type BoardRepository interface {
	Create(ctx context.Context, b models.Board) error
	Get(ctx context.Context, boardID string) (models.Board, error)
	Save(ctx context.Context, b models.Board) error
	ListByCompany(ctx context.Context, companyID string) ([]models.Board, error)
	Delete(ctx context.Context, boardID string) error
}

// BoardRepo is a sqlx implementation of BoardRepository over a jsonb column.
type BoardRepo struct {
	db *sqlx.DB
}

// NewBoardRepo constructs a BoardRepo.
func NewBoardRepo(db *sqlx.DB) *BoardRepo {
	return &BoardRepo{db: db}
}

type boardRow struct {
	ID        string    `db:"id"`
	CompanyID string    `db:"company_id"`
	Data      []byte    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Create inserts a new board document.
func (r *BoardRepo) Create(ctx context.Context, b models.Board) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO boards (id, company_id, data) VALUES ($1, $2, $3)`,
		b.ID, b.CompanyID, data)
	return err
}

// Get fetches one board document by id.
func (r *BoardRepo) Get(ctx context.Context, boardID string) (models.Board, error) {
	var row boardRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, company_id, data, updated_at FROM boards WHERE id=$1`, boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Board{}, ErrBoardNotFound
	}
	if err != nil {
		return models.Board{}, err
	}
	return decodeBoard(row)
}

// Save overwrites the board document.
func (r *BoardRepo) Save(ctx context.Context, b models.Board) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE boards SET data=$2, updated_at=NOW() WHERE id=$1`, b.ID, data)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBoardNotFound
	}
	return nil
}

// ListByCompany returns every board document belonging to a company.
func (r *BoardRepo) ListByCompany(ctx context.Context, companyID string) ([]models.Board, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT id, company_id, data, updated_at FROM boards WHERE company_id=$1 ORDER BY updated_at DESC`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boards []models.Board
	for rows.Next() {
		var row boardRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		b, err := decodeBoard(row)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// Delete destroys a board document and everything in it.
func (r *BoardRepo) Delete(ctx context.Context, boardID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM boards WHERE id=$1`, boardID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBoardNotFound
	}
	return nil
}

func decodeBoard(row boardRow) (models.Board, error) {
	var b models.Board
	if err := json.Unmarshal(row.Data, &b); err != nil {
		return models.Board{}, err
	}
	if b.Archive.Chats == nil {
		b.Archive.Chats = map[string]models.Chat{}
	}
	return b, nil
}
