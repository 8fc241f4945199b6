package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"whatsapp-ai-translator/internal/domain/ports/adapter"
	"whatsapp-ai-translator/internal/infra/adapters/twilio"
	"whatsapp-ai-translator/internal/infra/i18n"
	"whatsapp-ai-translator/internal/infra/logging"
	"whatsapp-ai-translator/internal/infra/metrics"
	red "whatsapp-ai-translator/internal/infra/redis"
	"whatsapp-ai-translator/internal/infra/worker"
	"whatsapp-ai-translator/internal/usecase"
)

type RateLimit struct {
	Limit  int
	Window time.Duration
}

// Server owns the webhook and the informational endpoints.
type Server struct {
	exchange usecase.ExchangeUseCase
	stats    usecase.StatsUseCase
	msg      adapter.MessagingAdapter
	pool     *worker.Pool
	limiter  *red.RateLimiter // nil disables rate limiting
	auth     *AuthManager
	tr       *i18n.Translator
	rate     RateLimit
	async    bool
	voice    bool
	log      *zerolog.Logger
}

func NewServer(
	exchange usecase.ExchangeUseCase,
	stats usecase.StatsUseCase,
	msg adapter.MessagingAdapter,
	pool *worker.Pool,
	limiter *red.RateLimiter,
	auth *AuthManager,
	tr *i18n.Translator,
	rate RateLimit,
	async, voice bool,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		exchange: exchange,
		stats:    stats,
		msg:      msg,
		pool:     pool,
		limiter:  limiter,
		auth:     auth,
		tr:       tr,
		rate:     rate,
		async:    async,
		voice:    voice,
		log:      logger,
	}
}

// Router builds the chi mux with all routes attached.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/whatsapp", s.handleWebhook)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/stats", s.handleStats)
	})
	return r
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	from := strings.TrimSpace(r.PostForm.Get("From"))
	if from == "" {
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}

	exchangeID := ulid.Make().String()
	ctx := logging.WithExchangeID(logging.WithSenderID(r.Context(), from), exchangeID)
	log := logging.With(ctx, s.log)

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, red.SenderKey(from), s.rate.Limit, s.rate.Window)
		if err != nil {
			// Rate limiting is best-effort; a limiter outage must not block users.
			log.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			metrics.IncRateLimitBlock()
			s.writeTwiML(w, s.tr.T("rate_limited"))
			return
		}
	}

	body := r.PostForm.Get("Body")
	numMedia, _ := strconv.Atoi(r.PostForm.Get("NumMedia"))
	mediaURL := r.PostForm.Get("MediaUrl0")
	mediaType := r.PostForm.Get("MediaContentType0")

	process := func(ctx context.Context) string {
		switch {
		case numMedia > 0 && mediaURL == "":
			return s.tr.T("media_missing")
		case numMedia > 0 && s.voice && strings.HasPrefix(mediaType, "audio/"):
			return s.exchange.HandleVoice(ctx, from, mediaURL)
		case numMedia > 0:
			return s.exchange.HandleImage(ctx, from, mediaURL, body)
		default:
			return s.exchange.HandleText(ctx, from, body)
		}
	}

	if s.async {
		// Ack immediately; the reply travels out-of-band through the
		// messaging API. The task outlives the request, so it gets a
		// detached context carrying only the log fields.
		taskCtx := logging.WithExchangeID(logging.WithSenderID(context.Background(), from), exchangeID)
		err := s.pool.Submit(func(ctx context.Context) error {
			reply := process(taskCtx)
			if err := s.msg.SendText(taskCtx, from, reply); err != nil {
				metrics.IncDelivery("failed")
				return err
			}
			metrics.IncDelivery("sent")
			return nil
		})
		if err != nil {
			metrics.IncDelivery("dropped")
			log.Error().Err(err).Msg("delivery queue refused exchange")
		}
		s.writeTwiML(w, "")
		return
	}

	s.writeTwiML(w, process(ctx))
}

func (s *Server) writeTwiML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(twilio.Reply(body))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("🤖 Servicio de Traducción AI funcionando correctamente 🌍"))
}
