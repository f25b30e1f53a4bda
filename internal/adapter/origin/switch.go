package origin

import (
	"context"

	"btcinvest/internal/domain/model"
	"btcinvest/internal/domain/port"
)

// ModeSource reports which origin should serve the next fetch.
type ModeSource interface {
	GetCurrentMode() model.DataMode
}

// Switch routes FetchCurrentPrice to the live or the test origin depending on the active mode.
type Switch struct {
	live  port.PriceOriginPort
	test  port.PriceOriginPort
	modes ModeSource
}

func NewSwitch(live, test port.PriceOriginPort, modes ModeSource) *Switch {
	return &Switch{live: live, test: test, modes: modes}
}

func (s *Switch) current() port.PriceOriginPort {
	if s.modes.GetCurrentMode() == model.TestMode {
		return s.test
	}
	return s.live
}

func (s *Switch) Name() string { return s.current().Name() }

func (s *Switch) FetchCurrentPrice(ctx context.Context) (model.PriceQuote, error) {
	return s.current().FetchCurrentPrice(ctx)
}
