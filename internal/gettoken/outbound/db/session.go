package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/valueobject"
)

const (
	queryTokenType = `SELECT token_type FROM gettoken_tokens WHERE serial = $1`

	queryTokenRef = `SELECT serial, token_type, realm FROM gettoken_tokens WHERE serial = $1`

	queryTokensByUser = `SELECT serial, token_type, realm
FROM gettoken_tokens
WHERE lower(user_login) = lower($1)
  AND lower(realm) = lower($2)
  AND ($3::text = '' OR serial = $3::text)
ORDER BY created_at, serial`

	queryToken = `SELECT serial, token_type, realm, user_login, secret, pin, otp_len,
       counter, time_step, hash_algo, info, active, created_at
FROM gettoken_tokens
WHERE serial = $1`
)

type tokenRefRow struct {
	Serial    string `db:"serial"`
	TokenType string `db:"token_type"`
	Realm     string `db:"realm"`
}

func (r tokenRefRow) toEntity() entity.TokenRef {
	return entity.TokenRef{Serial: r.Serial, Type: entity.ParseTokenType(r.TokenType), Realm: r.Realm}
}

type tokenRow struct {
	Serial    string              `db:"serial"`
	TokenType string              `db:"token_type"`
	Realm     string              `db:"realm"`
	UserLogin string              `db:"user_login"`
	Secret    []byte              `db:"secret"`
	PIN       []byte              `db:"pin"`
	OTPLen    int32               `db:"otp_len"`
	Counter   int64               `db:"counter"`
	TimeStep  int32               `db:"time_step"`
	HashAlgo  string              `db:"hash_algo"`
	Info      valueobject.JSONMap `db:"info"`
	Active    bool                `db:"active"`
	CreatedAt time.Time           `db:"created_at"`
}

// Session is a read-only transaction serving the token directory and the
// OTP provider for one retrieval call.
type Session struct {
	db   *DB
	tx   pgx.Tx
	done bool
}

func (s *Session) GetTokensByUser(ctx context.Context, user entity.UserIdentity, serial string) (_ []entity.TokenRef, err error) {
	ctx, span := s.db.startSpan(ctx, "GetTokensByUser")
	defer func() { s.db.endSpan(span, err) }()

	rows, err := s.tx.Query(ctx, queryTokensByUser, user.Login, user.Realm, serial)
	if err != nil {
		return nil, s.db.mapError(err)
	}

	result, err := pgx.CollectRows(rows, pgx.RowToStructByName[tokenRefRow])
	if err != nil {
		return nil, s.db.mapError(err)
	}

	refs := make([]entity.TokenRef, 0, len(result))
	for _, r := range result {
		refs = append(refs, r.toEntity())
	}

	return refs, nil
}

func (s *Session) GetTokenRef(ctx context.Context, serial string) (_ *entity.TokenRef, err error) {
	ctx, span := s.db.startSpan(ctx, "GetTokenRef")
	defer func() { s.db.endSpan(span, err) }()

	rows, err := s.tx.Query(ctx, queryTokenRef, serial)
	if err != nil {
		return nil, s.db.mapError(err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[tokenRefRow])
	if err != nil {
		return nil, s.db.mapError(err)
	}

	ref := row.toEntity()
	return &ref, nil
}

func (s *Session) GetToken(ctx context.Context, serial string) (_ *entity.Token, err error) {
	ctx, span := s.db.startSpan(ctx, "GetToken")
	defer func() { s.db.endSpan(span, err) }()

	rows, err := s.tx.Query(ctx, queryToken, serial)
	if err != nil {
		return nil, s.db.mapError(err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[tokenRow])
	if err != nil {
		return nil, s.db.mapError(err)
	}

	return &entity.Token{
		Serial:    row.Serial,
		Type:      entity.ParseTokenType(row.TokenType),
		Realm:     row.Realm,
		UserLogin: row.UserLogin,
		Seed:      row.Secret,
		PIN:       row.PIN,
		OTPLen:    int(row.OTPLen),
		Counter:   row.Counter,
		TimeStep:  time.Duration(row.TimeStep) * time.Second,
		HashAlgo:  row.HashAlgo,
		Active:    row.Active,
		Info:      row.Info,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *Session) Commit(ctx context.Context) error {
	s.done = true
	return s.tx.Commit(ctx)
}

func (s *Session) Rollback(ctx context.Context) error {
	s.done = true
	return s.db.rollback(ctx, s.tx)
}

// Close releases the transaction if neither Commit nor Rollback ran.
func (s *Session) Close(ctx context.Context) {
	if s.done {
		return
	}
	s.done = true
	_ = s.db.rollback(ctx, s.tx)
}
