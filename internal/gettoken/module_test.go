package gettoken

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gettoken/internal/gettoken/outbound/policy"
	"github.com/shandysiswandi/gettoken/internal/pkg/clock"
	"github.com/shandysiswandi/gettoken/internal/pkg/config"
	"github.com/shandysiswandi/gettoken/internal/pkg/goroutine"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"github.com/shandysiswandi/gettoken/internal/pkg/jwt"
	"github.com/shandysiswandi/gettoken/internal/pkg/messaging"
	"github.com/shandysiswandi/gettoken/internal/pkg/mfa"
	"github.com/shandysiswandi/gettoken/internal/pkg/otp"
	"github.com/shandysiswandi/gettoken/internal/pkg/pgxcasbin"
	"github.com/shandysiswandi/gettoken/internal/pkg/router"
	"github.com/shandysiswandi/gettoken/internal/pkg/uid"
	"github.com/shandysiswandi/gettoken/internal/pkg/validator"
	"github.com/shandysiswandi/gettoken/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const moduleConfig = `
modules:
  gettoken:
    enabled: true
    auto_migrate: true
    getotp_enabled: true
    default_realm: myrealm
    allow_time_override: true
    audit:
      enabled: true
      token_type_ttl_seconds: 60
`

// rfcSeed is the RFC 4226 test secret.
var rfcSeed = []byte("12345678901234567890")

type moduleEnv struct {
	handler   http.Handler
	token     string
	messaging *messaging.Memory
	goroutine *goroutine.Manager
}

type response struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("gettoken"),
		postgres.WithUsername("gettoken"),
		postgres.WithPassword("gettoken"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func newModuleEnv(t *testing.T) *moduleEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping module integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pool := startPostgres(t)
	rdb := startRedis(t)

	cfg, err := config.NewViperFromBytes("yaml", []byte(moduleConfig))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	snow, err := uid.NewSnowflake(1)
	require.NoError(t, err)

	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    bytes.Repeat([]byte("s"), 64),
		Issuer:    "gettoken-test",
		Audiences: []string{"gettoken"},
		TTL:       time.Hour,
		Clock:     clock.New(),
		UUID:      uid.NewUUID(),
	})
	require.NoError(t, err)

	adapter, err := pgxcasbin.NewAdapter(ctx, pool, pgxcasbin.WithTableName("gettoken_casbin_rules"))
	require.NoError(t, err)
	enforcer, err := policy.NewEnforcer(adapter)
	require.NoError(t, err)
	for _, r := range [][]string{
		{"superadmin", "admin:myrealm", "getotp"},
		{"superadmin", "gettoken:myrealm", "max_count=2"},
	} {
		_, err := enforcer.AddPolicy(r[0], r[1], r[2])
		require.NoError(t, err)
	}

	enc := mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: bytes.Repeat([]byte("k"), 32)})
	mem := messaging.NewMemory()
	gm := goroutine.NewManager(8)

	r := router.NewRouter(router.Config{
		Config:     cfg,
		UUID:       uid.NewUUID(),
		JWT:        signer,
		Instrument: instrument.NewNoop(),
	})

	require.NoError(t, New(Dependency{
		Ctx:          ctx,
		DBConn:       pool,
		CacheConn:    rdb,
		Goroutine:    gm,
		Enforcer:     enforcer,
		Router:       r,
		Messaging:    mem,
		Config:       cfg,
		Instrument:   instrument.NewNoop(),
		UID:          snow,
		MFAEncryptor: enc,
		OTP:          otp.NewStandard(),
		Clock:        clock.New(),
		Validator:    v,
	}))

	seed, err := enc.Encrypt(rfcSeed, mfa.Scope{Serial: "HOTP0001", Purpose: mfa.PurposeOTPSeed})
	require.NoError(t, err)
	pin, err := enc.Encrypt([]byte("1234"), mfa.Scope{Serial: "HOTP0001", Purpose: mfa.PurposeTokenPIN})
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO gettoken_tokens (serial, token_type, realm, user_login, secret, pin)
		VALUES ('HOTP0001', 'hmac', 'myrealm', 'alice', $1, $2)`, seed, pin)
	require.NoError(t, err)

	token, err := signer.Generate("superadmin", "myrealm")
	require.NoError(t, err)

	return &moduleEnv{handler: r, token: token, messaging: mem, goroutine: gm}
}

func (e *moduleEnv) get(t *testing.T, target string) (int, response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer "+e.token)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())

	return rec.Code, resp
}

func TestModuleRetrieval(t *testing.T) {
	env := newModuleEnv(t)

	t.Run("single value by user", func(t *testing.T) {
		code, resp := env.get(t, "/api/v1/gettoken/getotp?user=alice")

		require.Equal(t, http.StatusOK, code)
		var data map[string]any
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, true, data["result"])
		assert.Equal(t, "755224", data["otpval"])
		assert.Equal(t, "1234", data["pin"])
		assert.Equal(t, "1234755224", data["pass"])
	})

	t.Run("batch reduced to max_count", func(t *testing.T) {
		code, resp := env.get(t, "/api/v1/gettoken/getmultiotp?serial=HOTP0001&count=5")

		require.Equal(t, http.StatusOK, code)
		var data struct {
			Result bool   `json:"result"`
			Serial string `json:"serial"`
			OTP    []struct {
				Index  int64  `json:"index"`
				OTPVal string `json:"otpval"`
			} `json:"otp"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.True(t, data.Result)
		assert.Equal(t, "HOTP0001", data.Serial)
		require.Len(t, data.OTP, 2)
		assert.Equal(t, "755224", data.OTP[0].OTPVal)
		assert.Equal(t, "287082", data.OTP[1].OTPVal)
	})

	t.Run("unknown serial", func(t *testing.T) {
		code, resp := env.get(t, "/api/v1/gettoken/getotp?serial=NOPE0001")

		require.Equal(t, http.StatusOK, code)
		var data map[string]any
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, false, data["result"])
		assert.Equal(t, "No Token with this serial number", data["description"])
	})

	t.Run("audit events published", func(t *testing.T) {
		require.NoError(t, env.goroutine.Wait())

		msgs := env.messaging.Messages()
		require.Len(t, msgs, 3)

		bySerial := map[string][]event.RetrievalAuditMessage{}
		for _, m := range msgs {
			assert.Equal(t, event.RetrievalAuditDestination, m.Destination)
			assert.NotContains(t, string(m.Message.Body), "755224")

			var ev event.RetrievalAuditMessage
			require.NoError(t, json.Unmarshal(m.Message.Body, &ev))
			assert.Equal(t, "superadmin", ev.Administrator)
			bySerial[ev.Serial] = append(bySerial[ev.Serial], ev)
		}

		require.Len(t, bySerial["HOTP0001"], 2)
		for _, ev := range bySerial["HOTP0001"] {
			assert.Equal(t, "hmac", ev.TokenType)
			assert.True(t, ev.Success)
		}

		require.Len(t, bySerial["NOPE0001"], 1)
		assert.Equal(t, "gettoken/getotp", bySerial["NOPE0001"][0].Action)
		assert.False(t, bySerial["NOPE0001"][0].Success)
		assert.Empty(t, bySerial["NOPE0001"][0].TokenType)
	})
}
