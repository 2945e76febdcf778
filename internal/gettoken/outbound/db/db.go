package db

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/gettoken/internal/gettoken/usecase"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Schema creates the token table when it does not exist.
//
//go:embed schema.sql
var Schema string

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

// Migrate applies Schema.
func (s *DB) Migrate(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "Migrate")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, Schema)
	return err
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("gettoken.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Begin opens a read-only transaction scoped to one retrieval call.
func (s *DB) Begin(ctx context.Context) (_ usecase.Session, err error) {
	ctx, span := s.startSpan(ctx, "Begin")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}

	return &Session{db: s, tx: tx}, nil
}

// GetTokenType reads the type of a token outside any session.
func (s *DB) GetTokenType(ctx context.Context, serial string) (_ string, err error) {
	ctx, span := s.startSpan(ctx, "GetTokenType")
	defer func() { s.endSpan(span, err) }()

	var tokenType string
	if err := s.conn.QueryRow(ctx, queryTokenType, serial).Scan(&tokenType); err != nil {
		return "", s.mapError(err)
	}

	return tokenType, nil
}

func (s *DB) rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.ErrorContext(ctx, "failed to rollback", "error", err)
		return err
	}

	return nil
}
