package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/wellness-auth/config"
	"github.com/oksasatya/wellness-auth/internal/container"
	"github.com/oksasatya/wellness-auth/internal/infrastructure/memory"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
	"github.com/oksasatya/wellness-auth/pkg/validation"
)

type outbox struct {
	mu     sync.Mutex
	bodies []string
	fail   bool
}

func (o *outbox) Send(_ context.Context, _, _, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return errors.New("provider unavailable")
	}
	o.bodies = append(o.bodies, body)
	return nil
}

var otpInMail = regexp.MustCompile(`code is: (\d{6})`)

func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.bodies)
	m := otpInMail.FindStringSubmatch(o.bodies[len(o.bodies)-1])
	require.Len(t, m, 2)
	return m[1]
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type client struct {
	t *testing.T
	h http.Handler
}

func (c client) do(method, path, token string, body any) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func newTestServer(t *testing.T) (client, *outbox) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	cfg := config.Load()
	cfg.RateLimitEnabled = false
	cfg.DebugMetricsEnabled = true
	box := &outbox{}

	container.SetConfig(cfg)
	container.SetLogger(helpers.NewNopLogger())
	container.SetUserRepo(memory.NewUserRepository())
	container.SetHasher(helpers.NewBcryptHasher(bcrypt.MinCost, 2))
	container.SetJWT(helpers.NewJWTManager("router-test-secret", cfg.AccessTTL))
	container.SetNotifier(box)
	container.SetAuditor(nil)
	container.SetPGPool(nil)
	container.SetRedis(nil)

	engine := gin.New()
	reg := NewRegistry(engine)
	InitModules(reg)
	reg.RegisterAll()
	return client{t: t, h: engine}, box
}

func TestUsersAPI_RegisterLoginProfile(t *testing.T) {
	c, _ := newTestServer(t)

	code, env := c.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "alice", "email": "alice@example.com", "password": "Secret123"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var reg struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.Equal(t, "alice", reg.User["username"])
	assert.Equal(t, false, reg.User["isLifetimeMentor"])
	assert.NotContains(t, string(env.Data), "password")

	code, env = c.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "alice2", "email": "ALICE@example.com", "password": "Secret123"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate_identity", env.Error.Code)

	code, env = c.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "bo", "email": "nope", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error.Details, "email")
	assert.Contains(t, env.Error.Details, "password")

	code, _ = c.do(http.MethodPost, "/api/users/login", "", gin.H{"email": "alice@example.com", "password": "Secret123"})
	assert.Equal(t, http.StatusOK, code)

	wrongCode, wrong := c.do(http.MethodPost, "/api/users/login", "", gin.H{"email": "alice@example.com", "password": "Wrong1234"})
	unknownCode, unknown := c.do(http.MethodPost, "/api/users/login", "", gin.H{"email": "ghost@example.com", "password": "Secret123"})
	assert.Equal(t, http.StatusBadRequest, wrongCode)
	assert.Equal(t, wrongCode, unknownCode)
	assert.Equal(t, wrong.Message, unknown.Message)
	assert.Equal(t, wrong.Error.Code, unknown.Error.Code)

	code, env = c.do(http.MethodGet, "/api/users/profile", reg.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"email":"alice@example.com"`)

	code, _ = c.do(http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = c.do(http.MethodGet, "/api/users/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUsersAPI_PasswordRecovery(t *testing.T) {
	c, box := newTestServer(t)
	code, _ := c.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "alice", "email": "alice@example.com", "password": "Secret123"})
	require.Equal(t, http.StatusCreated, code)

	code, env := c.do(http.MethodPost, "/api/users/forgotpassword", "", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Code)

	code, _ = c.do(http.MethodPost, "/api/users/forgotpassword", "", gin.H{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, code)
	otp := box.lastCode(t)

	code, _ = c.do(http.MethodPost, "/api/users/verify-otp", "", gin.H{"email": "alice@example.com", "code": "12345"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = c.do(http.MethodPost, "/api/users/verify-otp", "", gin.H{"email": "alice@example.com", "code": otp})
	require.Equal(t, http.StatusOK, code)
	var grant struct {
		ExchangeToken string `json:"exchangeToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &grant))
	require.NotEmpty(t, grant.ExchangeToken)

	code, env = c.do(http.MethodPost, "/api/users/verify-otp", "", gin.H{"email": "alice@example.com", "code": otp})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_or_expired", env.Error.Code)

	code, env = c.do(http.MethodPut, "/api/users/resetpassword", "", gin.H{"exchangeToken": grant.ExchangeToken, "password": "Brandnew123", "confirmPassword": "Different123"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "mismatch", env.Error.Code)

	code, _ = c.do(http.MethodPut, "/api/users/resetpassword", "", gin.H{"exchangeToken": grant.ExchangeToken, "password": "Brandnew123", "confirmPassword": "Brandnew123"})
	require.Equal(t, http.StatusOK, code)

	code, env = c.do(http.MethodPut, "/api/users/resetpassword", "", gin.H{"exchangeToken": grant.ExchangeToken, "password": "Another123", "confirmPassword": "Another123"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_or_expired", env.Error.Code)

	code, _ = c.do(http.MethodPost, "/api/users/login", "", gin.H{"email": "alice@example.com", "password": "Secret123"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = c.do(http.MethodPost, "/api/users/login", "", gin.H{"email": "alice@example.com", "password": "Brandnew123"})
	assert.Equal(t, http.StatusOK, code)
}

func TestUsersAPI_ProfileOfMissingAccountIsUnauthorized(t *testing.T) {
	c, _ := newTestServer(t)
	token, _, err := container.GetJWT().Issue(uuid.NewString())
	require.NoError(t, err)

	code, env := c.do(http.MethodGet, "/api/users/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid", env.Error.Code)
}

func TestUsersAPI_PasswordLimitIsBytes(t *testing.T) {
	c, box := newTestServer(t)
	overlong := strings.Repeat("é", 40) // 40 runes, 80 bytes

	code, env := c.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "alice", "email": "alice@example.com", "password": overlong})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", env.Error.Code)
	assert.Contains(t, env.Error.Details, "password")

	exact := strings.Repeat("é", 36)
	code, _ = c.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "alice", "email": "alice@example.com", "password": exact})
	require.Equal(t, http.StatusCreated, code)

	code, _ = c.do(http.MethodPost, "/api/users/forgotpassword", "", gin.H{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodPost, "/api/users/verify-otp", "", gin.H{"email": "alice@example.com", "code": box.lastCode(t)})
	require.Equal(t, http.StatusOK, code)
	var grant struct {
		ExchangeToken string `json:"exchangeToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &grant))

	code, env = c.do(http.MethodPut, "/api/users/resetpassword", "", gin.H{"exchangeToken": grant.ExchangeToken, "password": overlong, "confirmPassword": overlong})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", env.Error.Code)

	code, _ = c.do(http.MethodPut, "/api/users/resetpassword", "", gin.H{"exchangeToken": grant.ExchangeToken, "password": "Brandnew123", "confirmPassword": "Brandnew123"})
	assert.Equal(t, http.StatusOK, code)
}

func TestUsersAPI_DeliveryFailureIs500(t *testing.T) {
	c, box := newTestServer(t)
	code, _ := c.do(http.MethodPost, "/api/users/register", "", gin.H{"username": "alice", "email": "alice@example.com", "password": "Secret123"})
	require.Equal(t, http.StatusCreated, code)

	box.fail = true
	code, env := c.do(http.MethodPost, "/api/users/forgotpassword", "", gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "delivery_error", env.Error.Code)
	assert.NotContains(t, env.Message, "provider unavailable")
}

func TestHealthAndDebugRoutes(t *testing.T) {
	c, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil)
	w = httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memstats")
}
