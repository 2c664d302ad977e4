package portal

import (
	"context"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles is the profile collaborator: table scoped reads plus the
// single-row lookup the role resolver depends on.
type Profiles interface {
	repository.Repository[*Profile]
	ProfileFinder

	GetByIdentityIDTx(ctx context.Context, tx bun.IDB, identityID string) (*Profile, error)
	Provision(ctx context.Context, record *Profile) (*Profile, error)
	ProvisionTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

// NewProfilesRepository builds the bun backed Profiles repository.
func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (p *profiles) GetByIdentityID(ctx context.Context, identityID string) (*Profile, error) {
	return p.GetByIdentityIDTx(ctx, p.db, identityID)
}

func (p *profiles) GetByIdentityIDTx(ctx context.Context, tx bun.IDB, identityID string) (*Profile, error) {
	record := &Profile{}

	err := tx.NewSelect().
		Model(record).
		Relation("Batch").
		Relation("Department").
		Where("?TableAlias.id = ?", strings.TrimSpace(identityID)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"identity_id": identityID,
				})
		}
		return nil, err
	}

	return record, nil
}

func (p *profiles) Provision(ctx context.Context, record *Profile) (*Profile, error) {
	return p.ProvisionTx(ctx, p.db, record)
}

func (p *profiles) ProvisionTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error) {
	if record != nil && record.Role == "" {
		record.Role = RoleStudent
	}
	return p.Repository.CreateTx(ctx, tx, record)
}
