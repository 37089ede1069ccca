package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/proto"
)

var ErrNotFound = errors.New("account not found")

type Account struct {
	ID        string `json:"id"`
	Credits   int64  `json:"credits"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type Service interface {
	Create(ctx context.Context, credits int64) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	AddCredits(ctx context.Context, id string, amount int64) (Account, error)
}

type service struct {
	q db.Querier
}

func NewService(q db.Querier) Service {
	return &service{q: q}
}

func (s *service) Create(ctx context.Context, credits int64) (Account, error) {
	now := time.Now().UnixMilli()
	dbAccount, err := s.q.CreateAccount(ctx, db.CreateAccountParams{
		ID:        uuid.New().String(),
		Credits:   credits,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Account{}, err
	}
	return FromDB(dbAccount), nil
}

func (s *service) Get(ctx context.Context, id string) (Account, error) {
	dbAccount, err := s.q.GetAccount(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return FromDB(dbAccount), nil
}

// AddCredits tops an account up. Negative amounts are rejected; deductions
// only happen through turn metering.
func (s *service) AddCredits(ctx context.Context, id string, amount int64) (Account, error) {
	if amount <= 0 {
		return Account{}, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	dbAccount, err := s.q.AddAccountCredits(ctx, db.AddAccountCreditsParams{
		Amount:    amount,
		UpdatedAt: time.Now().UnixMilli(),
		ID:        id,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return FromDB(dbAccount), nil
}

func FromDB(item db.Account) Account {
	return Account{
		ID:        item.ID,
		Credits:   item.Credits,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func (a Account) Proto() proto.Account {
	return proto.Account(a)
}
