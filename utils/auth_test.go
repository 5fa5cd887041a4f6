package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agripress/config"
	"agripress/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() *config.Config {
	return &config.Config{
		JwtSecret:     "auth-test-secret",
		TokenLifetime: time.Hour,
		BcryptCost:    4, // MinCost keeps the suite fast
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret12", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "secret12", hash)

	assert.True(t, CheckPasswordHash("secret12", hash))
	assert.False(t, CheckPasswordHash("wrong-password", hash))
	assert.False(t, CheckPasswordHash("secret12", "not-a-bcrypt-hash"))
}

func TestGenerateAndValidateJWT(t *testing.T) {
	cfg := testAuthConfig()
	cred := &models.Credential{ID: "user123", Email: "a@x.com"}

	token, err := GenerateJWT(cred, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "agripress", claims.Issuer)
	assert.Equal(t, "user123", claims.Subject)
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateJWT(&models.Credential{ID: "user123", Email: "a@x.com"}, cfg)
	require.NoError(t, err)

	other := testAuthConfig()
	other.JwtSecret = "a-different-secret"
	_, err = ValidateJWT(token, other)
	assert.Error(t, err)
}

func TestValidateJWT_Expired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.TokenLifetime = -time.Minute // Already expired when issued

	token, err := GenerateJWT(&models.Credential{ID: "user123", Email: "a@x.com"}, cfg)
	require.NoError(t, err)

	_, err = ValidateJWT(token, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestGenerateJWT_MissingSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JwtSecret = ""
	_, err := GenerateJWT(&models.Credential{ID: "user123", Email: "a@x.com"}, cfg)
	assert.Error(t, err)
}

// authTestRouter wires AuthMiddleware in front of a handler that
// echoes the identity placed in the context.
func authTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", AuthMiddleware(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userID":    c.GetString("userID"),
			"userEmail": c.GetString("userEmail"),
		})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testAuthConfig()
	router := authTestRouter(cfg)

	token, err := GenerateJWT(&models.Credential{ID: "user123", Email: "a@x.com"}, cfg)
	require.NoError(t, err)

	t.Run("MissingHeader", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", token) // No "Bearer" prefix
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("ValidToken", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user123")
		assert.Contains(t, w.Body.String(), "a@x.com")
	})
}

// stubResolver returns a fixed user for any session identity.
type stubResolver struct {
	user models.User
	err  error
}

func (s stubResolver) SyncUser(id, email string) (models.User, error) {
	if s.err != nil {
		return models.User{}, s.err
	}
	u := s.user
	u.ID = id
	u.Email = email
	return u, nil
}

func roleTestRouter(resolver UserResolver, required models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/guarded",
		func(c *gin.Context) {
			c.Set("userID", "user123")
			c.Set("userEmail", "a@x.com")
		},
		RequireRole(resolver, required),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"role": c.GetString("userRole")})
		})
	return router
}

func TestRequireRole(t *testing.T) {
	t.Run("InsufficientRole", func(t *testing.T) {
		router := roleTestRouter(stubResolver{user: models.User{Role: models.RoleUser}}, models.RoleAdmin)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/guarded", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("HigherRolePasses", func(t *testing.T) {
		router := roleTestRouter(stubResolver{user: models.User{Role: models.RoleSuperAdmin}}, models.RoleAdmin)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/guarded", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), string(models.RoleSuperAdmin))
	})

	t.Run("ExactRolePasses", func(t *testing.T) {
		router := roleTestRouter(stubResolver{user: models.User{Role: models.RoleEditor}}, models.RoleEditor)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/guarded", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ResolverFailure", func(t *testing.T) {
		router := roleTestRouter(stubResolver{err: assert.AnError}, models.RoleUser)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/guarded", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGenerateDashlessUUID(t *testing.T) {
	id := GenerateDashlessUUID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, GenerateDashlessUUID())
}
