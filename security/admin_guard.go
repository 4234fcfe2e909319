package security

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"golang.org/x/crypto/bcrypt"
)

const AdminTokenHeader = "X-Admin-Token"

// AdminGuard admits requests carrying the token whose bcrypt hash it was
// configured with. With no hash configured every request is refused.
type AdminGuard struct {
	hash []byte
}

func NewAdminGuard(tokenHash string) *AdminGuard {
	return &AdminGuard{hash: []byte(tokenHash)}
}

// HashToken returns the bcrypt hash to configure a guard with.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (g *AdminGuard) Require(e *core.RequestEvent) error {
	if len(g.hash) == 0 {
		return router.NewApiError(http.StatusForbidden, "Admin API is disabled", nil)
	}

	token := adminToken(e.Request)
	if token == "" {
		return router.NewApiError(http.StatusUnauthorized, "Admin token required", nil)
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(token)); err != nil {
		return router.NewApiError(http.StatusUnauthorized, "Invalid admin token", nil)
	}

	return e.Next()
}

func adminToken(req *http.Request) string {
	if token := req.Header.Get(AdminTokenHeader); token != "" {
		return token
	}
	if auth := req.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
