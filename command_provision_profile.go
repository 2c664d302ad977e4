package portal

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// ProvisionProfileMessage carries everything sign-up collects. Exactly
// one Profile is provisioned per identity, in the same transaction as
// the account row.
type ProvisionProfileMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Password  string `json:"password"`
	UseHashid bool
}

func (e ProvisionProfileMessage) Type() string { return "portal.profile.provision" }

// ProvisionProfileHandler registers the account and provisions its
// profile transactionally.
type ProvisionProfileHandler struct {
	repo RepositoryManager
}

// NewProvisionProfileHandler returns a handler bound to the repository
// manager.
func NewProvisionProfileHandler(repo RepositoryManager) *ProvisionProfileHandler {
	return &ProvisionProfileHandler{repo: repo}
}

func (h ProvisionProfileHandler) Execute(ctx context.Context, event ProvisionProfileMessage) (*Profile, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile provisioning",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h ProvisionProfileHandler) execute(ctx context.Context, event ProvisionProfileMessage) (*Profile, error) {
	if event.Role == "" {
		event.Role = RoleStudent
	}

	if !event.Role.IsValid() || event.Role == RoleAdmin {
		return nil, goerrors.New("role must be alumni or student", goerrors.CategoryValidation).
			WithTextCode(textCodeInvalidRole).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": event.Role})
	}

	profile := &Profile{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrDuplicateRegistration.WithMetadata(map[string]any{"email": event.Email})
		} else if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account := &Account{
			Email:        event.Email,
			PasswordHash: hash,
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		profile.ID = account.ID
		profile.Name = event.Name
		profile.Email = account.Email
		profile.Role = event.Role

		if profile, err = h.repo.Profiles().ProvisionTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not provision profile")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "profile provisioning transaction failed")
	}

	return profile, nil
}
