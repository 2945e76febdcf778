package pgxcasbin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

const (
	defaultTableName = "casbin_rule"
	fieldCount       = 6
)

var (
	// ErrRuleTooLong indicates a rule with more than six fields.
	ErrRuleTooLong = errors.New("pgxcasbin: rule length exceeds field count")
	// ErrRuleEmpty indicates an empty rule.
	ErrRuleEmpty = errors.New("pgxcasbin: rule is empty")
)

// Commander is the subset of *pgxpool.Pool the adapter needs.
type Commander interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type store struct {
	db        Commander
	tableName string
}

var columns = lo.Times(fieldCount, func(i int) string { return "v" + strconv.Itoa(i) })

func (s *store) createTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`create table if not exists %[1]s (
	id bigserial primary key,
	ptype text not null,
	%[2]s,
	unique (ptype, %[3]s)
)`, s.tableName,
		strings.Join(lo.Map(columns, func(c string, _ int) string { return c + " text not null default ''" }), ",\n\t"),
		strings.Join(columns, ", "))

	_, err := s.db.Exec(ctx, ddl)
	return err
}

func (s *store) selectWhere(ctx context.Context, ptype string, startIdx int, values ...string) ([][]string, error) {
	if len(values) > fieldCount-startIdx {
		return nil, ErrRuleTooLong
	}

	query := fmt.Sprintf("select ptype, %s from %s", strings.Join(columns, ", "), s.tableName)
	where, args := s.conditions(ptype, startIdx, values)
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]string, error) {
		line := make([]string, fieldCount+1)
		if err := row.Scan(lo.ToAnySlice(lo.Map(line, func(_ string, i int) *string { return &line[i] }))...); err != nil {
			return nil, err
		}
		return trimTrailingEmpty(line), nil
	})
}

func (s *store) conditions(ptype string, startIdx int, values []string) ([]string, []any) {
	var where []string
	var args []any
	if ptype != "" {
		args = append(args, ptype)
		where = append(where, "ptype = $1")
	}
	for i, v := range values {
		if v == "" {
			continue
		}
		args = append(args, v)
		where = append(where, columns[startIdx+i]+" = $"+strconv.Itoa(len(args)))
	}
	return where, args
}

func (s *store) insert(ctx context.Context, tx pgx.Tx, ptype string, rules ...[]string) error {
	query := fmt.Sprintf("insert into %s (ptype, %s) values (%s) on conflict do nothing",
		s.tableName, strings.Join(columns, ", "),
		strings.Join(lo.Times(fieldCount+1, func(i int) string { return "$" + strconv.Itoa(i+1) }), ", "))

	batch := &pgx.Batch{}
	for _, rule := range rules {
		line, err := padRule(rule)
		if err != nil {
			return err
		}
		batch.Queue(query, lo.ToAnySlice(append([]string{ptype}, line...))...)
	}

	return tx.SendBatch(ctx, batch).Close()
}

func (s *store) deleteRules(ctx context.Context, tx pgx.Tx, ptype string, rules ...[]string) error {
	query := fmt.Sprintf("delete from %s where ptype = $1 and %s", s.tableName,
		strings.Join(lo.Map(columns, func(c string, i int) string { return c + " = $" + strconv.Itoa(i+2) }), " and "))

	batch := &pgx.Batch{}
	for _, rule := range rules {
		line, err := padRule(rule)
		if err != nil {
			return err
		}
		batch.Queue(query, lo.ToAnySlice(append([]string{ptype}, line...))...)
	}

	return tx.SendBatch(ctx, batch).Close()
}

func (s *store) deleteWhere(ctx context.Context, ptype string, startIdx int, values ...string) error {
	if len(values) > fieldCount-startIdx {
		return ErrRuleTooLong
	}

	where, args := s.conditions(ptype, startIdx, values)
	query := "delete from " + s.tableName
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}

	_, err := s.db.Exec(ctx, query, args...)
	return err
}

// inTx runs fn in a transaction, rolling back when fn fails.
func (s *store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(ctx); rerr != nil && !errors.Is(rerr, pgx.ErrTxClosed) {
			err = errors.Join(err, rerr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *store) replaceAll(ctx context.Context, rules map[string][][]string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "delete from "+s.tableName); err != nil {
			return err
		}
		for ptype, rs := range rules {
			if err := s.insert(ctx, tx, ptype, rs...); err != nil {
				return err
			}
		}
		return nil
	})
}

func padRule(rule []string) ([]string, error) {
	if len(rule) == 0 {
		return nil, ErrRuleEmpty
	}
	if len(rule) > fieldCount {
		return nil, ErrRuleTooLong
	}

	line := make([]string, fieldCount)
	copy(line, rule)
	return line, nil
}

func trimTrailingEmpty(line []string) []string {
	end := len(line)
	for end > 0 && line[end-1] == "" {
		end--
	}
	return line[:end]
}
