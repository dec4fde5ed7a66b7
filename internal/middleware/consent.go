package middleware

import (
	"context"
	"net/http"

	"github.com/vertexautomation/site-server/internal/audit"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/service"
)

type ConsentChecker interface {
	Check(ctx context.Context, userID string) (*service.ConsentCheck, error)
}

type ConsentGate struct {
	consents ConsentChecker
}

func NewConsentGate(consents ConsentChecker) *ConsentGate {
	return &ConsentGate{consents: consents}
}

// RequireConsent holds signed-in users at the reconsent prompt until they
// accept the active version of every legal document. Anonymous requests pass.
// A failed lookup blocks the request.
func (g *ConsentGate) RequireConsent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}

		check, err := g.consents.Check(r.Context(), user.ID)
		if err != nil {
			writeError(w, apperrors.Database(err))
			return
		}
		if check.NeedsConsent {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventConsentRequired, UserID: user.ID,
				Details: map[string]interface{}{"path": r.URL.Path, "pending": len(check.Pending)}})
			writeError(w, apperrors.ConsentRequired().WithDetails(map[string]any{"pending": check.Pending}))
			return
		}

		next.ServeHTTP(w, r)
	})
}
