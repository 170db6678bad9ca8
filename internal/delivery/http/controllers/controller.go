package controllers

import (
	"net/http"
	"strings"

	"visitorpass/internal/delivery/http/helpers"
	"visitorpass/internal/delivery/http/middleware"
	"visitorpass/internal/domain"
)

// requireActor returns the authenticated actor or writes 401.
func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
	}
	return actor, ok
}

// pathID returns a required path value or writes 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(r.PathValue(name))
	if id == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	return id, true
}
