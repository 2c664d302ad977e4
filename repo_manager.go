package portal

import (
	"context"
	"database/sql"
	"errors"
	"log"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Profiles() Profiles
	Accounts() Accounts
	Batches() repository.Repository[*Batch]
	Departments() repository.Repository[*Department]
}

func NewBatchesRepository(db *bun.DB) repository.Repository[*Batch] {
	handlers := repository.ModelHandlers[*Batch]{
		NewRecord: func() *Batch { return &Batch{} },
		GetID: func(record *Batch) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Batch, id uuid.UUID) {
			record.ID = id
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewDepartmentsRepository(db *bun.DB) repository.Repository[*Department] {
	handlers := repository.ModelHandlers[*Department]{
		NewRecord: func() *Department { return &Department{} },
		GetID: func(record *Department) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Department, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "dept_name"
		},
	}
	return repository.NewRepository(db, handlers)
}

type mngr struct {
	db          *bun.DB
	profiles    Profiles
	accounts    Accounts
	batches     repository.Repository[*Batch]
	departments repository.Repository[*Department]
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		profiles:    NewProfilesRepository(db),
		accounts:    NewAccountsRepository(db),
		batches:     NewBatchesRepository(db),
		departments: NewDepartmentsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.batches == nil {
		return errors.New("repository batches should be initialized")
	}

	if m.departments == nil {
		return errors.New("repository departments should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Profiles() Profiles {
	return m.profiles
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) Batches() repository.Repository[*Batch] {
	return m.batches
}

func (m mngr) Departments() repository.Repository[*Department] {
	return m.departments
}
