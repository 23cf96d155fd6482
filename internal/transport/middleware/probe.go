package middleware

import (
	"context"

	"github.com/heartmarshall/campaign-notes/pkg/ctxutil"
)

type probeKey struct{}

// identityProbe lets Logger see the identity that Identity resolved further
// down the chain.
type identityProbe struct {
	userID     string
	campaignID string
}

func withProbe(ctx context.Context, p *identityProbe) context.Context {
	if id, ok := ctxutil.UserIDFromCtx(ctx); ok {
		p.userID = id.String()
	}
	if id, ok := ctxutil.CampaignIDFromCtx(ctx); ok {
		p.campaignID = id.String()
	}
	return context.WithValue(ctx, probeKey{}, p)
}

// recordIdentity fills the probe from ctx, if one is present.
func recordIdentity(ctx context.Context) {
	p, ok := ctx.Value(probeKey{}).(*identityProbe)
	if !ok {
		return
	}
	if id, ok := ctxutil.UserIDFromCtx(ctx); ok {
		p.userID = id.String()
	}
	if id, ok := ctxutil.CampaignIDFromCtx(ctx); ok {
		p.campaignID = id.String()
	}
}
