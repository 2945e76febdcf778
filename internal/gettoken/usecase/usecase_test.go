package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/clock"
	"github.com/shandysiswandi/gettoken/internal/pkg/config"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
	"github.com/shandysiswandi/gettoken/internal/pkg/goroutine"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"github.com/shandysiswandi/gettoken/internal/pkg/jwt"
	"github.com/shandysiswandi/gettoken/internal/pkg/validator"
	"github.com/stretchr/testify/require"
)

const testConfig = `
modules:
  gettoken:
    getotp_enabled: true
    default_realm: mydefrealm
    allow_time_override: true
    audit:
      enabled: true
      destination: gettoken.audit
`

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeSession struct {
	byUser    map[string][]entity.TokenRef
	refs      map[string]entity.TokenRef
	userErr   error
	commits   int
	rollbacks int
	closes    int
}

func (f *fakeSession) GetTokensByUser(_ context.Context, user entity.UserIdentity, _ string) ([]entity.TokenRef, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.byUser[user.Login], nil
}

func (f *fakeSession) GetTokenRef(_ context.Context, serial string) (*entity.TokenRef, error) {
	ref, ok := f.refs[serial]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &ref, nil
}

func (f *fakeSession) GetToken(context.Context, string) (*entity.Token, error) {
	return nil, goerror.ErrNotFound
}

func (f *fakeSession) Commit(context.Context) error {
	f.commits++
	return nil
}

func (f *fakeSession) Rollback(context.Context) error {
	f.rollbacks++
	return nil
}

func (f *fakeSession) Close(context.Context) {
	f.closes++
}

type fakeDB struct {
	sess   *fakeSession
	err    error
	begins int
}

func (f *fakeDB) Begin(context.Context) (Session, error) {
	f.begins++
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}

type fakePolicy struct {
	adminAllowed bool
	limit        int
	err          error
	calls        []string
	params       []entity.PolicyParams
}

func (f *fakePolicy) Decide(_ context.Context, scope, action string, p entity.PolicyParams) (entity.PolicyDecision, error) {
	f.calls = append(f.calls, scope+"/"+action)
	f.params = append(f.params, p)
	if f.err != nil {
		return entity.PolicyDecision{}, f.err
	}
	if scope == entity.PolicyScopeAdmin {
		return entity.PolicyDecision{Allowed: f.adminAllowed, Reason: "no admin rule"}, nil
	}
	return entity.PolicyDecision{Allowed: true, Limit: f.limit}, nil
}

type fakeOTP struct {
	value       entity.OTPValue
	err         error
	singleCalls int
	multiCalls  int
	lastCount   int
	lastAt      time.Time
	lastSerial  string
}

func (f *fakeOTP) GetOTP(_ context.Context, _ TokenReader, serial string, at time.Time) (*entity.OTPValue, error) {
	f.singleCalls++
	f.lastSerial = serial
	f.lastAt = at
	if f.err != nil {
		return nil, f.err
	}
	v := f.value
	return &v, nil
}

func (f *fakeOTP) GetMultiOTP(_ context.Context, _ TokenReader, serial string, count int, at time.Time) ([]entity.OTPEntry, error) {
	f.multiCalls++
	f.lastSerial = serial
	f.lastCount = count
	f.lastAt = at
	if f.err != nil {
		return nil, f.err
	}
	out := make([]entity.OTPEntry, 0, count)
	for i := range count {
		out = append(out, entity.OTPEntry{Index: int64(i), Value: fmt.Sprintf("%06d", i)})
	}
	return out, nil
}

type fakeCache struct {
	types map[string]string
}

func (f *fakeCache) GetTokenType(_ context.Context, serial string) (string, error) {
	t, ok := f.types[serial]
	if !ok {
		return "", goerror.ErrNotFound
	}
	return t, nil
}

type fakeMessaging struct {
	mu      sync.Mutex
	records []entity.AuditRecord
}

func (f *fakeMessaging) PublishRetrievalAudit(_ context.Context, rec entity.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

type fixedID int64

func (f fixedID) Generate() int64 { return int64(f) }

type harness struct {
	uc     *Usecase
	cfg    *config.Viper
	db     *fakeDB
	sess   *fakeSession
	policy *fakePolicy
	otp    *fakeOTP
	msg    *fakeMessaging
	gm     *goroutine.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	h := &harness{
		cfg: cfg,
		sess: &fakeSession{
			byUser: map[string][]entity.TokenRef{
				"alice": {
					{Serial: "TOK1", Type: entity.TokenTypeHMAC, Realm: "mydefrealm"},
					{Serial: "TOK2", Type: entity.TokenTypeTOTP, Realm: "mydefrealm"},
				},
				"bob": {{Serial: "TOK3", Type: entity.TokenTypeHMAC, Realm: "mydefrealm"}},
			},
			refs: map[string]entity.TokenRef{
				"LSAE00012345": {Serial: "LSAE00012345", Type: entity.TokenTypeHMAC, Realm: "myrealm"},
				"TOK3":         {Serial: "TOK3", Type: entity.TokenTypeHMAC, Realm: "mydefrealm"},
			},
		},
		policy: &fakePolicy{adminAllowed: true, limit: 5},
		otp:    &fakeOTP{value: entity.OTPValue{Index: 0, Value: "755224", PIN: "1234", Password: "1234755224"}},
		msg:    &fakeMessaging{},
		gm:     goroutine.NewManager(4),
	}
	h.db = &fakeDB{sess: h.sess}

	h.uc = New(Dependency{
		RepoDB:        h.db,
		RepoCache:     &fakeCache{types: map[string]string{"LSAE00012345": "hmac"}},
		RepoMessaging: h.msg,
		Policy:        h.policy,
		OTP:           h.otp,
		Validator:     v,
		Config:        cfg,
		UID:           fixedID(42),
		Clock:         clock.Fixed(testNow),
		Instrument:    instrument.NewNoop(),
		Goroutine:     h.gm,
	})

	return h
}

func adminCtx() context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{
		RegisteredClaims: libJWT.RegisteredClaims{Subject: "superadmin"},
	})
}

func requireCode(t *testing.T, err error, code goerror.Code) *goerror.Error {
	t.Helper()

	require.Error(t, err)
	gerr, ok := goerror.As(err)
	require.True(t, ok, "expected goerror, got %T", err)
	require.Equal(t, code, gerr.Code())

	return gerr
}

func intPtr(v int) *int { return &v }
