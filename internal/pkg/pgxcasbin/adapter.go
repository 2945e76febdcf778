// Package pgxcasbin persists casbin policies in PostgreSQL through pgx and
// propagates policy changes between instances with LISTEN/NOTIFY.
package pgxcasbin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/atomic"
)

// ErrInvalidFilterType indicates a filter that is not a Filter value.
var ErrInvalidFilterType = errors.New("pgxcasbin: invalid filter type")

// Filter selects rules by ptype and leading field values, e.g.
// Filter{"p": {{"", "gettoken:*"}}} loads every p rule whose v1 is "gettoken:*".
// Conditions for one ptype are ORed; empty strings are wildcards.
type Filter map[string][][]string

// Adapter stores casbin rules in a single table.
type Adapter struct {
	store    *store
	filtered *atomic.Bool
}

var (
	_ persist.Adapter         = (*Adapter)(nil)
	_ persist.ContextAdapter  = (*Adapter)(nil)
	_ persist.BatchAdapter    = (*Adapter)(nil)
	_ persist.FilteredAdapter = (*Adapter)(nil)
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithTableName overrides the default rule table name.
func WithTableName(tableName string) Option {
	return func(a *Adapter) {
		a.store.tableName = lo.SnakeCase(tableName)
	}
}

// NewAdapter creates the adapter and its table when missing.
func NewAdapter(ctx context.Context, db Commander, opts ...Option) (*Adapter, error) {
	if err := db.Ping(ctx); err != nil {
		return nil, err
	}

	a := &Adapter{
		store:    &store{db: db, tableName: defaultTableName},
		filtered: atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.store.createTable(ctx); err != nil {
		return nil, fmt.Errorf("pgxcasbin: create table: %w", err)
	}

	return a, nil
}

func (a *Adapter) LoadPolicyCtx(ctx context.Context, m model.Model) error {
	a.filtered.Store(false)

	lines, err := a.store.selectWhere(ctx, "", 0)
	if err != nil {
		return err
	}
	return loadLines(m, lines)
}

func (a *Adapter) SavePolicyCtx(ctx context.Context, m model.Model) error {
	rules := map[string][][]string{}
	for _, sec := range []string{"p", "g"} {
		for ptype, ast := range m[sec] {
			rules[ptype] = append(rules[ptype], ast.Policy...)
		}
	}
	return a.store.replaceAll(ctx, rules)
}

func (a *Adapter) AddPolicyCtx(ctx context.Context, _ string, ptype string, rule []string) error {
	return a.store.inTx(ctx, func(tx pgx.Tx) error {
		return a.store.insert(ctx, tx, ptype, rule)
	})
}

func (a *Adapter) RemovePolicyCtx(ctx context.Context, _ string, ptype string, rule []string) error {
	return a.store.inTx(ctx, func(tx pgx.Tx) error {
		return a.store.deleteRules(ctx, tx, ptype, rule)
	})
}

func (a *Adapter) RemoveFilteredPolicyCtx(ctx context.Context, _ string, ptype string, fieldIndex int, fieldValues ...string) error {
	return a.store.deleteWhere(ctx, ptype, fieldIndex, fieldValues...)
}

// LoadFilteredPolicyCtx loads only rules matching a Filter. A nil filter loads everything.
func (a *Adapter) LoadFilteredPolicyCtx(ctx context.Context, m model.Model, filter any) error {
	if lo.IsNil(filter) {
		return a.LoadPolicyCtx(ctx, m)
	}

	ft, ok := filter.(Filter)
	if !ok {
		return fmt.Errorf("%w: %T", ErrInvalidFilterType, filter)
	}

	var lines [][]string
	for ptype, conds := range ft {
		for _, values := range conds {
			rows, err := a.store.selectWhere(ctx, ptype, 0, values...)
			if err != nil {
				return err
			}
			lines = append(lines, rows...)
		}
	}

	a.filtered.Store(true)
	return loadLines(m, lo.UniqBy(lines, func(line []string) string {
		return strings.Join(line, ",")
	}))
}

func (a *Adapter) LoadPolicy(m model.Model) error {
	return a.LoadPolicyCtx(context.Background(), m)
}

func (a *Adapter) SavePolicy(m model.Model) error {
	return a.SavePolicyCtx(context.Background(), m)
}

func (a *Adapter) AddPolicy(sec string, ptype string, rule []string) error {
	return a.AddPolicyCtx(context.Background(), sec, ptype, rule)
}

func (a *Adapter) RemovePolicy(sec string, ptype string, rule []string) error {
	return a.RemovePolicyCtx(context.Background(), sec, ptype, rule)
}

func (a *Adapter) RemoveFilteredPolicy(sec string, ptype string, fieldIndex int, fieldValues ...string) error {
	return a.RemoveFilteredPolicyCtx(context.Background(), sec, ptype, fieldIndex, fieldValues...)
}

func (a *Adapter) AddPolicies(_ string, ptype string, rules [][]string) error {
	ctx := context.Background()
	return a.store.inTx(ctx, func(tx pgx.Tx) error {
		return a.store.insert(ctx, tx, ptype, rules...)
	})
}

func (a *Adapter) RemovePolicies(_ string, ptype string, rules [][]string) error {
	ctx := context.Background()
	return a.store.inTx(ctx, func(tx pgx.Tx) error {
		return a.store.deleteRules(ctx, tx, ptype, rules...)
	})
}

func (a *Adapter) LoadFilteredPolicy(m model.Model, filter any) error {
	return a.LoadFilteredPolicyCtx(context.Background(), m, filter)
}

// IsFiltered reports whether the last load used a filter. Casbin refuses
// SavePolicy on a filtered model.
func (a *Adapter) IsFiltered() bool {
	return a.filtered.Load()
}

func loadLines(m model.Model, lines [][]string) error {
	for _, line := range lines {
		if err := persist.LoadPolicyArray(line, m); err != nil {
			return err
		}
	}
	return nil
}
