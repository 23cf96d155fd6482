package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
	"github.com/heartmarshall/campaign-notes/pkg/ctxutil"
)

// Identity headers set by the gateway in front of the service.
const (
	UserIDHeader     = "X-User-Id"
	CampaignIDHeader = "X-Campaign-Id"
	RoleHeader       = "X-Campaign-Role"
)

// Identity parses the caller identity resolved upstream and stores it in the
// request context. A missing or malformed user or campaign id is rejected
// with 401; an absent role means member.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.Header.Get(UserIDHeader))
		if err != nil || userID == uuid.Nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		campaignID, err := uuid.Parse(r.Header.Get(CampaignIDHeader))
		if err != nil || campaignID == uuid.Nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		role := domain.CampaignRole(r.Header.Get(RoleHeader))
		switch {
		case role == "":
			role = domain.CampaignRoleMember
		case !role.IsValid():
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := ctxutil.WithUserID(r.Context(), userID)
		ctx = ctxutil.WithCampaignID(ctx, campaignID)
		ctx = ctxutil.WithRole(ctx, role.String())
		recordIdentity(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
