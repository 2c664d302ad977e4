package portal

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profile is the application record describing a person, keyed by the
// identity id. Exactly one Profile exists per identity; the role is
// immutable post assignment (no role change surface exists).
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string      `bun:"name,notnull" json:"name,omitempty"`
	Email         string      `bun:"email,notnull,unique" json:"email,omitempty"`
	Role          Role        `bun:"role,notnull" json:"role,omitempty"`
	Phone         string      `bun:"phone" json:"phone,omitempty"`
	Bio           string      `bun:"bio" json:"bio,omitempty"`
	Company       string      `bun:"company" json:"company,omitempty"`
	Profession    string      `bun:"profession" json:"profession,omitempty"`
	AvatarURL     string      `bun:"avatar_url" json:"avatar_url,omitempty"`
	BatchID       *uuid.UUID  `bun:"batch_id,nullzero" json:"batch_id,omitempty"`
	Batch         *Batch      `bun:"rel:belongs-to,join:batch_id=id" json:"batch,omitempty"`
	DepartmentID  *uuid.UUID  `bun:"department_id,nullzero" json:"department_id,omitempty"`
	Department    *Department `bun:"rel:belongs-to,join:department_id=id" json:"department,omitempty"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time  `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Batch is a graduation cohort, denormalization lookup only
type Batch struct {
	bun.BaseModel `bun:"table:batch,alias:bat"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Year          int        `bun:"batch_year,notnull" json:"batch_year,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Department is an academic unit, denormalization lookup only
type Department struct {
	bun.BaseModel `bun:"table:department,alias:dep"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"dept_name,notnull" json:"dept_name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Account holds the credential side of an identity for the local
// provider. Profiles reference the same id.
type Account struct {
	bun.BaseModel  `bun:"table:accounts,alias:acc"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}
