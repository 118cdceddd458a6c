package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"board-service/internal/models"
)

type BoardRepositoryMock struct {
	mock.Mock
}

func (m *BoardRepositoryMock) Create(ctx context.Context, b models.Board) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *BoardRepositoryMock) Get(ctx context.Context, boardID string) (models.Board, error) {
	args := m.Called(ctx, boardID)
	var b models.Board
	if val := args.Get(0); val != nil {
		b = val.(models.Board)
	}
	return b, args.Error(1)
}

func (m *BoardRepositoryMock) Save(ctx context.Context, b models.Board) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *BoardRepositoryMock) ListByCompany(ctx context.Context, companyID string) ([]models.Board, error) {
	args := m.Called(ctx, companyID)
	var boards []models.Board
	if val := args.Get(0); val != nil {
		boards = val.([]models.Board)
	}
	return boards, args.Error(1)
}

func (m *BoardRepositoryMock) Delete(ctx context.Context, boardID string) error {
	args := m.Called(ctx, boardID)
	return args.Error(0)
}
