package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clientflow/alertrunner/internal/api/middleware"
	"github.com/clientflow/alertrunner/internal/pkg/errors"
	"github.com/clientflow/alertrunner/internal/pkg/utils"
)

// pathParam returns a trimmed chi URL parameter, writing a 400 when it is empty
func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(chi.URLParam(r, name))
	if v == "" {
		utils.WriteError(w, errors.BadRequest(name+" is required"))
		return "", false
	}
	return v, true
}

// authorizedTenant returns the {tenantId} path parameter if the caller's
// token may access that tenant
func authorizedTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID, ok := pathParam(w, r, "tenantId")
	if !ok {
		return "", false
	}
	claims, ok := middleware.GetClaims(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Missing authentication token"))
		return "", false
	}
	if !claims.CanAccessTenant(tenantID) {
		utils.WriteError(w, errors.Forbidden("Access to this tenant is not allowed"))
		return "", false
	}
	return tenantID, true
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}
