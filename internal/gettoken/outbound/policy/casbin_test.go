package policy

import (
	"context"
	"testing"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCasbin(t *testing.T) *Casbin {
	t.Helper()

	e, err := NewEnforcer(nil)
	require.NoError(t, err)

	rules := [][]string{
		{"helpdesk", "admin:myrealm", entity.PolicyActionGetOTP},
		{"helpdesk", "gettoken:*", "max_count=3"},
		{"helpdesk", "gettoken:myrealm", "max_counthmac=10"},
		{"helpdesk", "gettoken:myrealm", "max_counthmac=7"},
		{"root", "admin:*", "*"},
		{"root", "gettoken:*", "max_count=50"},
		{"zero", "gettoken:*", "max_count=0"},
	}
	for _, r := range rules {
		_, err := e.AddPolicy(r[0], r[1], r[2])
		require.NoError(t, err)
	}
	_, err = e.AddGroupingPolicy("carol", "helpdesk")
	require.NoError(t, err)

	return NewCasbin(e, instrument.NewNoop())
}

func TestDecideAdmin(t *testing.T) {
	t.Parallel()

	c := newTestCasbin(t)

	tests := []struct {
		name    string
		subject string
		realm   string
		want    bool
	}{
		{name: "role grant in realm", subject: "carol", realm: "myrealm", want: true},
		{name: "role grant other realm", subject: "carol", realm: "otherrealm", want: false},
		{name: "wildcard admin", subject: "root", realm: "anything", want: true},
		{name: "unknown admin", subject: "mallory", realm: "myrealm", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := c.Decide(context.Background(), entity.PolicyScopeAdmin, entity.PolicyActionGetOTP,
				entity.PolicyParams{Subject: tt.subject, Realm: tt.realm, Serial: "LSAE00012345"})

			require.NoError(t, err)
			assert.Equal(t, tt.want, dec.Allowed)
		})
	}
}

func TestDecideMaxCount(t *testing.T) {
	t.Parallel()

	c := newTestCasbin(t)

	tests := []struct {
		name      string
		subject   string
		realm     string
		tokenType entity.TokenType
		want      int
	}{
		{name: "type specific wins", subject: "carol", realm: "myrealm", tokenType: entity.TokenTypeHMAC, want: 10},
		{name: "generic for other type", subject: "carol", realm: "myrealm", tokenType: entity.TokenTypeTOTP, want: 3},
		{name: "generic in other realm", subject: "carol", realm: "otherrealm", tokenType: entity.TokenTypeHMAC, want: 3},
		{name: "unknown token type", subject: "carol", realm: "myrealm", want: 3},
		{name: "explicit zero", subject: "zero", realm: "myrealm", want: 0},
		{name: "no rule", subject: "mallory", realm: "myrealm", want: 0},
		{name: "large ceiling", subject: "root", realm: "x", want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := c.Decide(context.Background(), entity.PolicyScopeGetToken, entity.PolicyActionMaxCount,
				entity.PolicyParams{Subject: tt.subject, Realm: tt.realm, TokenType: tt.tokenType})

			require.NoError(t, err)
			assert.True(t, dec.Allowed)
			assert.Equal(t, tt.want, dec.Limit)
		})
	}
}

func TestDecideUnknownCheck(t *testing.T) {
	t.Parallel()

	c := newTestCasbin(t)

	_, err := c.Decide(context.Background(), "admin", "delete", entity.PolicyParams{Subject: "root"})

	assert.ErrorIs(t, err, ErrUnknownCheck)
}

func TestParseMaxCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		act      string
		wantType string
		wantN    int
		wantOK   bool
	}{
		{act: "max_count=5", wantN: 5, wantOK: true},
		{act: "max_countTOTP=12", wantType: "totp", wantN: 12, wantOK: true},
		{act: "max_count=-1", wantN: -1, wantOK: true},
		{act: "max_count", wantOK: false},
		{act: "max_count=abc", wantOK: false},
		{act: "getotp", wantOK: false},
	}

	for _, tt := range tests {
		typ, n, ok := parseMaxCount(tt.act)
		assert.Equal(t, tt.wantOK, ok, tt.act)
		if tt.wantOK {
			assert.Equal(t, tt.wantType, typ, tt.act)
			assert.Equal(t, tt.wantN, n, tt.act)
		}
	}
}
