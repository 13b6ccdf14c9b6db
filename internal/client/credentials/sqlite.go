package credentials

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/sociusfit/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sociusfit/internal/cryptox"
	"github.com/dmitrijs2005/sociusfit/internal/dbx"
)

// keySealSalt holds the Argon2 salt of the sealing key. It lives in the same
// table but is not a credential, so Clear leaves it alone.
const keySealSalt = "seal_salt"

const sealSaltSize = 16

// SQLiteBackend stores the record in the metadata table, one row per field.
type SQLiteBackend struct {
	db     *sql.DB
	sealer *cryptox.Sealer
}

type SQLiteOption func(*SQLiteBackend)

// WithSealer encrypts every stored value with s.
func WithSealer(s *cryptox.Sealer) SQLiteOption {
	return func(b *SQLiteBackend) {
		b.sealer = s
	}
}

func NewSQLiteBackend(db *sql.DB, opts ...SQLiteOption) *SQLiteBackend {
	b := &SQLiteBackend{db: db}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SealerFromSecret derives the sealing key from secret and the salt kept in
// the database, creating the salt on first use.
func SealerFromSecret(ctx context.Context, db *sql.DB, secret string) (*cryptox.Sealer, error) {
	var salt []byte
	err := dbx.WithTx(ctx, db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		existing, err := repo.Get(ctx, keySealSalt)
		if err != nil {
			return err
		}
		if existing != nil {
			salt = existing
			return nil
		}
		salt, err = cryptox.RandomBytes(sealSaltSize)
		if err != nil {
			return err
		}
		return repo.Set(ctx, keySealSalt, salt)
	})
	if err != nil {
		return nil, fmt.Errorf("seal salt: %w", err)
	}

	key := cryptox.DeriveKey([]byte(secret), salt)
	defer cryptox.Wipe(key)
	return cryptox.NewSealer(key)
}

func (b *SQLiteBackend) Load(ctx context.Context) (Record, error) {
	raw, err := metadata.NewSQLiteRepository(b.db).GetMany(ctx, Keys...)
	if err != nil {
		return Record{}, err
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		plain, err := b.open(v)
		if err != nil {
			return Record{}, fmt.Errorf("decode %s: %w", k, err)
		}
		values[k] = plain
	}
	return fromMap(values), nil
}

func (b *SQLiteBackend) Write(ctx context.Context, rec Record, replace bool) error {
	return dbx.WithTx(ctx, b.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		for key, value := range rec.toMap() {
			if value == "" {
				if replace {
					if err := repo.Delete(ctx, key); err != nil {
						return err
					}
				}
				continue
			}
			sealed, err := b.seal(value)
			if err != nil {
				return fmt.Errorf("encode %s: %w", key, err)
			}
			if err := repo.Set(ctx, key, sealed); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *SQLiteBackend) Clear(ctx context.Context) error {
	return metadata.NewSQLiteRepository(b.db).Delete(ctx, Keys...)
}

func (b *SQLiteBackend) seal(value string) ([]byte, error) {
	if b.sealer == nil {
		return []byte(value), nil
	}
	return b.sealer.Seal([]byte(value))
}

func (b *SQLiteBackend) open(value []byte) (string, error) {
	if b.sealer == nil {
		return string(value), nil
	}
	plain, err := b.sealer.Open(value)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
