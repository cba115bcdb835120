package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskpilot/chatbot/internal/directory"
	"github.com/taskpilot/chatbot/internal/models"
	"go.uber.org/zap"
)

const signingKey = "test-signing-key"

func testUser() models.UserContext {
	return models.UserContext{
		AccountID:   "acc-1",
		ProfileID:   "prof-1",
		Tier:        models.TierStarter,
		Permissions: []string{"weather_check"},
		QuotaUsed:   2,
		QuotaLimit:  20,
	}
}

func linkedMemoryDirectory(t *testing.T) (*directory.MemoryDirectory, models.Actor) {
	t.Helper()
	dir := directory.NewMemoryDirectory()
	dir.AddAccount(models.AccountRecord{
		AccountID:  "acc-1",
		ProfileID:  "prof-1",
		Tier:       models.TierStarter,
		QuotaLimit: 20,
	})
	actor := models.Actor{ExternalID: 7, FirstName: "Ada"}
	token := strings.Repeat("ab", 32)
	dir.CreateLinkToken(token, "acc-1", time.Minute)
	require.NoError(t, dir.LinkAccount(context.Background(), token, 42, actor))
	return dir, actor
}

func TestDispatchSendsSignedRequestAndRelaysMessage(t *testing.T) {
	dir, actor := linkedMemoryDirectory(t)

	var gotPath string
	var gotBody map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Sunny, 24°C in Tokyo."}`))
	}))
	defer server.Close()

	signer := NewTokenSigner(signingKey, 10*time.Minute)
	backend := NewBackend(server.URL, "webhook", signer, 5*time.Second, dir, zap.NewNop())

	result, err := backend.Dispatch(context.Background(), "weather_check",
		map[string]any{"location": "Tokyo"}, testUser(), 42, "weather in Tokyo", 2)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Sunny, 24°C in Tokyo.", result.Message)

	assert.Equal(t, "/webhook/weather_check", gotPath)

	// The bearer credential must verify against the shared key and carry
	// the account scope.
	require.True(t, strings.HasPrefix(gotAuth, "Bearer "))
	parsed, err := jwt.Parse(strings.TrimPrefix(gotAuth, "Bearer "), func(token *jwt.Token) (any, error) {
		return []byte(signingKey), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "acc-1", claims["sub"])
	assert.Equal(t, "prof-1", claims["pid"])
	assert.Equal(t, "starter", claims["tier"])

	assert.Equal(t, "Tokyo", gotBody["location"])
	assert.Equal(t, float64(42), gotBody["chat_id"])
	assert.Equal(t, "weather in Tokyo", gotBody["original_text"])

	// Quota accounting is async and best-effort.
	require.Eventually(t, func() bool {
		record, err := dir.ResolveAccount(context.Background(), actor.ExternalID)
		return err == nil && record.QuotaUsed == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatchFailsOnNonSuccessStatus(t *testing.T) {
	dir, actor := linkedMemoryDirectory(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow blew up", http.StatusBadGateway)
	}))
	defer server.Close()

	signer := NewTokenSigner(signingKey, 10*time.Minute)
	backend := NewBackend(server.URL, "webhook", signer, 5*time.Second, dir, zap.NewNop())

	result, err := backend.Dispatch(context.Background(), "weather_check", nil, testUser(), 42, "weather", 1)
	assert.Error(t, err)
	assert.False(t, result.Success)

	// No quota is charged for a failed dispatch.
	time.Sleep(50 * time.Millisecond)
	record, err := dir.ResolveAccount(context.Background(), actor.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, 0, record.QuotaUsed)
}

func TestDispatchAbortsWithoutSigningKey(t *testing.T) {
	dir, _ := linkedMemoryDirectory(t)

	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	signer := NewTokenSigner("", 10*time.Minute)
	backend := NewBackend(server.URL, "webhook", signer, 5*time.Second, dir, zap.NewNop())

	_, err := backend.Dispatch(context.Background(), "weather_check", nil, testUser(), 42, "weather", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenMint)
	assert.False(t, called, "backend must not be called without a signed token")
}

func TestDispatchUsesDefaultMessageWhenBackendOmitsOne(t *testing.T) {
	dir, _ := linkedMemoryDirectory(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	signer := NewTokenSigner(signingKey, 10*time.Minute)
	backend := NewBackend(server.URL, "webhook", signer, 5*time.Second, dir, zap.NewNop())

	result, err := backend.Dispatch(context.Background(), "weather_check", nil, testUser(), 42, "weather", 1)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, defaultSuccessMessage, result.Message)
}

func TestMintedTokenExpiresAfterTTL(t *testing.T) {
	signer := NewTokenSigner(signingKey, -time.Minute)

	token, err := signer.Mint(testUser())
	require.NoError(t, err)

	_, err = jwt.Parse(token, func(token *jwt.Token) (any, error) {
		return []byte(signingKey), nil
	})
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
