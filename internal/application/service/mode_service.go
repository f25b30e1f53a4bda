package service

import (
	"log/slog"
	"sync"

	"btcinvest/internal/domain/model"
)

// ModeService управляет текущим режимом (Live/Test) источника цен.
type ModeService struct {
	currentMode model.DataMode
	mu          sync.RWMutex
	logger      *slog.Logger
}

func NewModeService(initial model.DataMode, logger *slog.Logger) *ModeService {
	return &ModeService{
		currentMode: initial,
		logger:      logger,
	}
}

// SwitchMode reports whether the mode actually changed.
func (s *ModeService) SwitchMode(mode model.DataMode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentMode == mode {
		return false
	}

	s.logger.Info("mode_service: mode updated", "old", s.currentMode.String(), "new", mode.String())
	s.currentMode = mode
	return true
}

func (s *ModeService) GetCurrentMode() model.DataMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentMode
}
