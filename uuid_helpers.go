package portal

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// parsePortalUUID parses an identity id, wrapping parse failures in the
// portal error taxonomy.
func parsePortalUUID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed identity id").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"id": id})
	}
	return parsed, nil
}

// HasIdentityUUID reports whether the identity id is a valid UUID.
func HasIdentityUUID(identity Identity) bool {
	if identity == nil {
		return false
	}
	_, err := parsePortalUUID(identity.ID())
	return err == nil
}
