package http

import (
	"net/http"
	"strings"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse-io/gatehouse/pkg/authsdk"
	"github.com/gatehouse-io/gatehouse/pkg/httpx"
)

// CheckHandler serves GET /api/auth/check, the endpoint the gateway filter
// calls for every inbound request. Query parameters carry the method and path
// under evaluation, the X-Service-ID header names the target service.
type CheckHandler struct {
	AuthorizationService *service.AuthorizationService
}

func (h *CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	httpMethod := strings.TrimSpace(r.URL.Query().Get("httpMethod"))
	requestPath := strings.TrimSpace(r.URL.Query().Get("requestPath"))
	if httpMethod == "" || requestPath == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	serviceName := strings.TrimSpace(r.Header.Get(authsdk.ServiceHeader))

	dec := h.AuthorizationService.Check(ctx, sessionToken(r), serviceName, httpMethod, requestPath)

	httpx.WriteJSON(w, http.StatusOK, authsdk.CheckResponse{
		IsAuthorized: dec.IsAuthorized(),
		Status:       dec.Status.HTTPStatus(),
		User:         userInfo(dec.User),
	})
}

func userInfo(id *domain.Identity) *authsdk.UserInfo {
	if id == nil {
		return nil
	}
	return &authsdk.UserInfo{
		SubjectID:   id.SubjectID,
		Username:    id.Username,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		Role:        id.Role,
		IssuedAt:    id.IssuedAt,
		LastSeenAt:  id.LastSeenAt,
	}
}
