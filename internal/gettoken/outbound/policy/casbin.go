package policy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/casbin/casbin/v3/util"
	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Model matches objects such as "admin:<realm>" and "gettoken:<realm>"
// with keyMatch, so a policy on "gettoken:*" covers every realm.
const Model = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

// ErrUnknownCheck is returned for a scope/action pair the provider does not evaluate.
var ErrUnknownCheck = errors.New("policy: unknown scope or action")

type enforcer interface {
	Enforce(rvals ...any) (bool, error)
	GetImplicitPermissionsForUser(user string, domain ...string) ([][]string, error)
}

// NewEnforcer builds an enforcer for Model. A nil adapter keeps policies in memory.
func NewEnforcer(adapter persist.Adapter) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(Model)
	if err != nil {
		return nil, err
	}

	if adapter == nil {
		return casbin.NewEnforcer(m)
	}

	return casbin.NewEnforcer(m, adapter)
}

// Casbin answers gettoken policy questions from casbin rules.
type Casbin struct {
	enforcer enforcer
	ins      instrument.Instrumentation
}

func NewCasbin(e enforcer, ins instrument.Instrumentation) *Casbin {
	return &Casbin{enforcer: e, ins: ins}
}

func (c *Casbin) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("gettoken.outbound.policy").Start(ctx, name)
}

func (c *Casbin) Decide(ctx context.Context, scope, action string, p entity.PolicyParams) (_ entity.PolicyDecision, err error) {
	_, span := c.startSpan(ctx, "Decide")
	span.SetAttributes(attribute.String("policy.scope", scope), attribute.String("policy.action", action))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	switch {
	case scope == entity.PolicyScopeAdmin && action == entity.PolicyActionGetOTP:
		ok, err := c.enforcer.Enforce(p.Subject, objectOf(scope, p.Realm), action)
		if err != nil {
			return entity.PolicyDecision{}, err
		}
		if !ok {
			return entity.PolicyDecision{Reason: "no admin rule grants getotp"}, nil
		}
		return entity.PolicyDecision{Allowed: true, Limit: 1}, nil

	case scope == entity.PolicyScopeGetToken && action == entity.PolicyActionMaxCount:
		perms, err := c.enforcer.GetImplicitPermissionsForUser(p.Subject)
		if err != nil {
			return entity.PolicyDecision{}, err
		}
		return entity.PolicyDecision{
			Allowed: true,
			Limit:   MaxCount(perms, objectOf(scope, p.Realm), p.TokenType),
		}, nil

	default:
		return entity.PolicyDecision{}, fmt.Errorf("%w: %s/%s", ErrUnknownCheck, scope, action)
	}
}

func objectOf(scope, realm string) string {
	return scope + ":" + strings.ToLower(realm)
}

// MaxCount returns the ceiling granted by perms for object. Actions look like
// "max_count=N" or "max_count<type>=N", e.g. "max_counthmac=10". A rule for
// the token's type wins over a generic one; otherwise the largest N wins.
// Without any matching rule the ceiling is 0.
func MaxCount(perms [][]string, object string, tokenType entity.TokenType) int {
	generic, specific := -1, -1
	hasGeneric, hasSpecific := false, false

	for _, perm := range perms {
		if len(perm) < 3 || !util.KeyMatch(object, perm[1]) {
			continue
		}

		typ, n, ok := parseMaxCount(perm[2])
		if !ok {
			continue
		}

		switch {
		case typ == "":
			hasGeneric = true
			generic = max(generic, n)
		case tokenType != "" && typ == tokenType.String():
			hasSpecific = true
			specific = max(specific, n)
		}
	}

	switch {
	case hasSpecific:
		return specific
	case hasGeneric:
		return generic
	default:
		return 0
	}
}

func parseMaxCount(act string) (string, int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(act), entity.PolicyActionMaxCount)
	if !ok {
		return "", 0, false
	}

	typ, raw, ok := strings.Cut(rest, "=")
	if !ok {
		return "", 0, false
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return "", 0, false
	}

	return strings.ToLower(strings.TrimSpace(typ)), n, true
}
