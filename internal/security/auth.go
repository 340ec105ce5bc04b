package security

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/botfront/authoring-service/internal/config"
	"github.com/charmbracelet/log"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyUserID is the gin context key for the authenticated user ID.
	ContextKeyUserID = "userID"
	// ContextKeyClientID is the gin context key for the API client ID.
	ContextKeyClientID = "clientID"
	// ContextKeyIsAdmin is the gin context key for admin authorization.
	ContextKeyIsAdmin = "isAdmin"
)

// Identity holds the resolved caller identity from a bearer token.
type Identity struct {
	UserID   string
	ClientID string
	IsAdmin  bool
}

// TokenResolver resolves bearer tokens to caller identities. It is initialized once at startup.
type TokenResolver struct {
	verifier      *oidc.IDTokenVerifier
	apiKeys       map[string]string
	adminOIDCRole string
	adminUsers    map[string]bool
	adminClients  map[string]bool
	testingMode   bool
}

// NewTokenResolver creates a TokenResolver from the application config. It performs
// one-time OIDC provider discovery if OIDCIssuer is configured.
func NewTokenResolver(ctx context.Context, cfg *config.Config) *TokenResolver {
	var verifier *oidc.IDTokenVerifier
	if issuer := cfg.OIDCIssuer; issuer != "" {
		discovery := issuer
		if cfg.OIDCDiscoveryURL != "" && cfg.OIDCDiscoveryURL != issuer {
			// Discovery document is fetched from an internal URL but tokens carry the public issuer.
			ctx = oidc.InsecureIssuerURLContext(ctx, issuer)
			discovery = cfg.OIDCDiscoveryURL
		}
		provider, err := oidc.NewProvider(ctx, discovery)
		if err != nil {
			log.Error("Failed to initialize OIDC provider; falling back to API key auth", "issuer", discovery, "err", err)
		} else {
			verifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
			log.Info("OIDC auth enabled", "issuer", issuer)
		}
	}

	adminOIDCRole := strings.TrimSpace(cfg.AdminOIDCRole)
	if adminOIDCRole == "" {
		adminOIDCRole = "admin"
	}
	return &TokenResolver{
		verifier:      verifier,
		apiKeys:       cfg.APIKeys,
		adminOIDCRole: adminOIDCRole,
		adminUsers:    splitCSV(cfg.AdminUsers),
		adminClients:  splitCSV(cfg.AdminClients),
		testingMode:   cfg.Mode == config.ModeTesting,
	}
}

var (
	errInvalidJWT      = errors.New("invalid JWT")
	errMissingIdentity = errors.New("JWT missing identity claims")
	errInvalidAPIKey   = errors.New("invalid API key")
)

// Resolve resolves a bearer token (and optional API key) into a caller Identity.
func (r *TokenResolver) Resolve(ctx context.Context, bearerToken, apiKey string) (*Identity, error) {
	id := &Identity{}

	if xAPIKey := strings.TrimSpace(apiKey); xAPIKey != "" {
		clientID, ok := r.apiKeys[xAPIKey]
		if !ok && !r.testingMode {
			return nil, errInvalidAPIKey
		}
		id.ClientID = clientID
	}

	// If OIDC is configured and the token looks like a JWT (has dots), verify it.
	if r.verifier != nil && strings.Count(bearerToken, ".") >= 2 {
		idToken, err := r.verifier.Verify(ctx, bearerToken)
		if err != nil {
			return nil, errors.Join(errInvalidJWT, err)
		}
		var claims struct {
			Sub               string `json:"sub"`
			PreferredUsername string `json:"preferred_username"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return nil, errors.Join(errInvalidJWT, err)
		}
		id.UserID = claims.PreferredUsername
		if id.UserID == "" {
			id.UserID = claims.Sub
		}
		if id.UserID == "" {
			return nil, errMissingIdentity
		}
		var rawClaims map[string]any
		if err := idToken.Claims(&rawClaims); err == nil && extractTokenRoles(rawClaims)[r.adminOIDCRole] {
			id.IsAdmin = true
		}
	} else {
		// API key mode: treat the token as the user ID directly.
		id.UserID = bearerToken
	}

	if r.adminUsers[id.UserID] || (id.ClientID != "" && r.adminClients[id.ClientID]) {
		id.IsAdmin = true
	}
	return id, nil
}

// --- Gin HTTP middleware ---

// GetUserID returns the authenticated user ID from the gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

// IsAdmin returns true if the request is from an admin.
func IsAdmin(c *gin.Context) bool {
	v, _ := c.Get(ContextKeyIsAdmin)
	b, _ := v.(bool)
	return b
}

// AuthMiddleware returns a gin middleware that extracts user identity from the Authorization header
// using the provided TokenResolver.
func AuthMiddleware(resolver *TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			log.Info("Auth rejected: missing Authorization header", "method", c.Request.Method, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header; expected Bearer token"})
			return
		}

		id, err := resolver.Resolve(c.Request.Context(), token, c.GetHeader("X-API-Key"))
		if err != nil {
			log.Info("Auth rejected", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(ContextKeyUserID, id.UserID)
		if id.ClientID != "" {
			c.Set(ContextKeyClientID, id.ClientID)
		}
		c.Set(ContextKeyIsAdmin, id.IsAdmin)
		c.Next()
	}
}

// RequireAdminRole requires the caller to have admin role.
func RequireAdminRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "forbidden", "error": "admin role required"})
			return
		}
		c.Next()
	}
}

// --- helpers ---

func splitCSV(raw string) map[string]bool {
	result := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		result[item] = true
	}
	return result
}

func extractTokenRoles(claims map[string]any) map[string]bool {
	result := map[string]bool{}
	addList := func(values []string) {
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			result[v] = true
		}
	}

	addList(toStringSlice(claims["roles"]))
	addList(toStringSlice(claims["groups"]))
	if scope, ok := claims["scope"].(string); ok {
		addList(strings.Fields(scope))
	}
	// Keycloak-style realm_access.roles.
	if realm, ok := claims["realm_access"].(map[string]any); ok {
		addList(toStringSlice(realm["roles"]))
	}
	return result
}

func toStringSlice(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		var out []string
		if data, err := json.Marshal(v); err == nil {
			_ = json.Unmarshal(data, &out)
		}
		return out
	}
}
