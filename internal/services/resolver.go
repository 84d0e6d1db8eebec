package services

import (
	"context"
	"errors"
	"sort"

	log "github.com/sirupsen/logrus"

	"marketdash/backend-go/internal/models"
	"marketdash/backend-go/internal/providers"
)

// Resolution is the outcome of one pass over the provider chain. Quotes holds
// one entry per satisfied symbol; Unsatisfied lists the rest explicitly so no
// caller ever has to guess from a fabricated zero. Source names the providers
// that contributed, in chain order.
type Resolution struct {
	Quotes      map[string]models.Quote `json:"quotes"`
	Unsatisfied []string                `json:"unsatisfied,omitempty"`
	Source      string                  `json:"source"`
}

// Resolver walks a fixed, configured provider chain. Order is strict: the
// first provider is always asked first, and each later provider only sees
// the symbols still missing.
type Resolver struct {
	chain []providers.Adapter
}

func NewResolver(chain ...providers.Adapter) *Resolver {
	return &Resolver{chain: chain}
}

// Resolve asks each provider in order for the symbols still remaining,
// merging partial answers. It returns an error only on total failure: every
// provider unavailable and not a single symbol answered.
func (r *Resolver) Resolve(ctx context.Context, symbols []string) (Resolution, error) {
	symbols = providers.Dedupe(symbols)
	res := Resolution{Quotes: make(map[string]models.Quote, len(symbols))}

	remaining := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		remaining[s] = struct{}{}
	}

	var errs []error
	var sources []string
	for _, p := range r.chain {
		if len(remaining) == 0 {
			break
		}
		want := make([]string, 0, len(remaining))
		for _, s := range symbols {
			if _, ok := remaining[s]; ok {
				want = append(want, s)
			}
		}

		out, err := p.Fetch(ctx, want)
		if err != nil {
			log.WithFields(log.Fields{"provider": p.Name(), "symbols": len(want), "err": err}).Warn("provider unavailable")
			errs = append(errs, err)
			continue
		}
		for sym, q := range out.Quotes {
			if _, ok := remaining[sym]; !ok {
				continue
			}
			res.Quotes[sym] = q
			delete(remaining, sym)
		}
		for sym, rerr := range out.Rejected {
			log.WithFields(log.Fields{"provider": p.Name(), "symbol": sym, "err": rerr}).Debug("symbol rejected")
		}
		if len(out.Quotes) > 0 {
			sources = append(sources, p.Name())
		}
	}

	for s := range remaining {
		res.Unsatisfied = append(res.Unsatisfied, s)
	}
	sort.Strings(res.Unsatisfied)
	res.Source = joinSources(sources)

	if len(res.Quotes) == 0 && len(errs) > 0 && len(errs) == len(r.chain) {
		return res, errors.Join(errs...)
	}
	return res, nil
}

func joinSources(sources []string) string {
	switch len(sources) {
	case 0:
		return ""
	case 1:
		return sources[0]
	}
	out := sources[0]
	for _, s := range sources[1:] {
		out += "+" + s
	}
	return out
}
