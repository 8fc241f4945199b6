package usecase

import (
	"github.com/rs/zerolog"

	"whatsapp-ai-translator/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase produces the informational report behind GET /stats.
type StatsUseCase interface {
	Report() Report
}

type Report struct {
	Conversations int    `json:"conversaciones_activas"`
	Turns         int    `json:"mensajes_totales"`
	MemoryBytes   int64  `json:"memoria_aproximada_bytes"`
	Service       string `json:"servicio"`
	Status        string `json:"estado"`
}

type statsUC struct {
	store repository.ConversationStore
	log   *zerolog.Logger
}

func NewStatsUseCase(store repository.ConversationStore, logger *zerolog.Logger) *statsUC {
	return &statsUC{store: store, log: logger}
}

func (s *statsUC) Report() Report {
	st := s.store.Stats()
	return Report{
		Conversations: st.Conversations,
		Turns:         st.Turns,
		MemoryBytes:   st.ApproxBytes,
		Service:       "Traductor AI Inglés-Español",
		Status:        "operativo",
	}
}
