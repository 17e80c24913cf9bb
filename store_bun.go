package authclient

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// CredentialRecord is the row holding a named credential slot
type CredentialRecord struct {
	bun.BaseModel `bun:"table:credentials,alias:cred"`
	ID            uuid.UUID  `bun:"id,pk,notnull,type:uuid" json:"id"`
	Slot          string     `bun:"slot,notnull,unique" json:"slot"`
	Token         string     `bun:"token,notnull" json:"-"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// CredentialRecordID returns the stable row id for a slot name.
func CredentialRecordID(slot string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("credential:"+slot))
}

// NewCredentialsRepository returns the repository backing BunStore.
// Records are looked up by slot.
func NewCredentialsRepository(db *bun.DB) repository.Repository[*CredentialRecord] {
	handlers := repository.ModelHandlers[*CredentialRecord]{
		NewRecord: func() *CredentialRecord {
			return &CredentialRecord{}
		},
		GetID: func(record *CredentialRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *CredentialRecord, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "slot"
		},
	}
	return repository.NewRepository(db, handlers)
}

// BunStore persists the credential slot in a SQL table through bun.
type BunStore struct {
	db      *bun.DB
	records repository.Repository[*CredentialRecord]
	key     string
	now     func() time.Time
}

var _ CredentialStore = (*BunStore)(nil)

// NewBunStore wraps an existing bun database. Call Migrate before use.
func NewBunStore(db *bun.DB, key string) *BunStore {
	if key == "" {
		key = DefaultCredentialKey
	}
	return &BunStore{
		db:      db,
		records: NewCredentialsRepository(db),
		key:     key,
		now:     time.Now,
	}
}

// OpenSQLiteStore opens (or creates) a sqlite database at dsn and
// prepares the credentials table.
func OpenSQLiteStore(ctx context.Context, dsn, key string) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open credential database")
	}

	store := NewBunStore(bun.NewDB(sqldb, sqlitedialect.New()), key)
	if err := store.Migrate(ctx); err != nil {
		sqldb.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the credentials table when missing
func (b *BunStore) Migrate(ctx context.Context) error {
	_, err := b.db.NewCreateTable().
		Model((*CredentialRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create credentials table")
	}
	return nil
}

// Close closes the underlying database
func (b *BunStore) Close() error {
	return b.db.Close()
}

func (b *BunStore) Put(ctx context.Context, token string) error {
	now := b.now()
	record := &CredentialRecord{
		ID:        CredentialRecordID(b.key),
		Slot:      b.key,
		Token:     token,
		UpdatedAt: &now,
	}

	_, err := b.records.GetByIdentifierTx(ctx, b.db, b.key)
	switch {
	case err == nil:
		_, err = b.records.UpdateTx(ctx, b.db, record, repository.UpdateByID(record.ID.String()))
	case repository.IsRecordNotFound(err):
		_, err = b.records.CreateTx(ctx, b.db, record)
	}
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store credential")
	}
	return nil
}

func (b *BunStore) Get(ctx context.Context) (string, error) {
	record, err := b.records.GetByIdentifierTx(ctx, b.db, b.key)
	if repository.IsRecordNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read credential")
	}
	return record.Token, nil
}

func (b *BunStore) Clear(ctx context.Context) error {
	_, err := b.db.NewDelete().
		Model((*CredentialRecord)(nil)).
		Where("id = ?", CredentialRecordID(b.key)).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear credential")
	}
	return nil
}
