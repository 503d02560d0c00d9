package execution

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hprow/bnc-anc/internal/domain"
	"github.com/hprow/bnc-anc/internal/infra"
	"github.com/hprow/bnc-anc/internal/infra/kucoin"
	"github.com/hprow/bnc-anc/internal/infra/mexc"
)

// BuildVenues constructs one adapter per venue named anywhere in the
// routing table. In test mode every adapter is a dry-run noop; an
// unknown venue name fails startup rather than silently skipping a
// route. notify receives background failure reports (sibling-cancel
// errors) and may be nil.
func BuildVenues(cfg *infra.Config, notify func(string)) (map[string]domain.Venue, error) {
	if !cfg.Trading.TestMode {
		// SAFETY LATCH: live order flow needs an explicit second switch
		// beyond test_mode=false in the config file.
		if os.Getenv("BNC_ANC_CONFIRM_LIVE") != "true" {
			return nil, fmt.Errorf("live trading requires BNC_ANC_CONFIRM_LIVE=true")
		}
		slog.Warn("🚨 LIVE MODE: real orders will be placed")
	}

	venues := make(map[string]domain.Venue)

	for _, names := range cfg.Trading.Routing {
		for _, name := range names {
			if _, ok := venues[name]; ok {
				continue
			}

			if cfg.Trading.TestMode {
				slog.Warn("TEST MODE: replacing venue with dry-run adapter", "venue", name)
				venues[name] = NewNoop(name)
				continue
			}

			switch name {
			case infra.VenueKuCoin:
				venues[name] = kucoin.New(cfg)
			case infra.VenueMexc:
				venues[name] = mexc.New(cfg, notify)
			case infra.VenueNoop:
				venues[name] = NewNoop(name)
			default:
				closeAll(venues)
				return nil, fmt.Errorf("unknown venue %q in routing", name)
			}
		}
	}

	if len(venues) == 0 {
		return nil, fmt.Errorf("routing table produced no venues")
	}
	return venues, nil
}

// PositionFor resolves the sizing profile for a (venue, side) pair.
func PositionFor(cfg *infra.Config, venue string, side domain.Side) domain.PositionConfig {
	long := side == domain.SideBuy
	switch venue {
	case infra.VenueMexc:
		if long {
			return cfg.Venues.Mexc.Long.ToPosition()
		}
		return cfg.Venues.Mexc.Short.ToPosition()
	default:
		// KuCoin and dry-run venues share the KuCoin profile so logged
		// levels reflect the configured percentages.
		if long {
			return cfg.Venues.KuCoin.Long.ToPosition()
		}
		return cfg.Venues.KuCoin.Short.ToPosition()
	}
}

func closeAll(venues map[string]domain.Venue) {
	for _, v := range venues {
		v.Close()
	}
}
