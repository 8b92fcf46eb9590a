package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/solislegal/leadbot/internal/adapter/telegram"
	"github.com/solislegal/leadbot/internal/config"
	"github.com/solislegal/leadbot/internal/domain"
	"github.com/solislegal/leadbot/internal/usecase"
)

// dispatchTimeout bounds the background handling of one update after the
// webhook has already been acknowledged.
const dispatchTimeout = 60 * time.Second

// TokenMeter reports cumulative AI token consumption.
type TokenMeter interface {
	TokensConsumed() int64
}

// Server holds the wired dependencies for all HTTP handlers.
type Server struct {
	Cfg        config.Config
	Dispatcher *usecase.Dispatcher
	Documents  usecase.DocumentsService
	Tokens     TokenMeter
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs a Server.
func NewServer(cfg config.Config, d *usecase.Dispatcher, docs usecase.DocumentsService, tokens TokenMeter, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Dispatcher: d, Documents: docs, Tokens: tokens, RedisCheck: redisCheck}
}

// WebhookHandler ingests platform updates. The update is acknowledged
// immediately and handled in the background: the platform retries on slow
// responses, and a retry storm is worse than a lost update.
func (s *Server) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(s.Cfg.WebhookSecret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: apiError{
				Code: "UNAUTHORIZED", Message: "webhook secret mismatch",
			}})
			return
		}

		var u telegram.Update
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			writeError(w, fmt.Errorf("%w: malformed update: %v", domain.ErrInvalidArgument, err))
			return
		}

		ev, ok := u.Event()
		if !ok {
			// Edited messages, channel posts and the like: acknowledged, ignored.
			w.WriteHeader(http.StatusOK)
			return
		}

		lg := LoggerFrom(r)
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), dispatchTimeout)
		go func() {
			defer cancel()
			defer func() {
				if rec := recover(); rec != nil {
					lg.Error("dispatch panic", slog.Any("recover", rec))
				}
			}()
			s.Dispatcher.Dispatch(ctx, ev)
		}()

		w.WriteHeader(http.StatusOK)
	}
}

// DocumentListHandler lists the available document templates.
func (s *Server) DocumentListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		docs, err := s.Documents.List()
		if err != nil {
			writeError(w, err)
			return
		}
		type docOut struct {
			Name string `json:"name"`
			MIME string `json:"mime"`
			Size int64  `json:"size"`
		}
		out := make([]docOut, 0, len(docs))
		for _, d := range docs {
			out = append(out, docOut{Name: d.Name, MIME: d.MIME, Size: d.Size})
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": out})
	}
}

// DocumentHandler serves one template file by name.
func (s *Server) DocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		path, mime, err := s.Documents.Resolve(name)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", mime)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		http.ServeFile(w, r, path)
	}
}

// ReadyzHandler reports dependency readiness. Redis is optional: the quota
// limiter fails open, so a missing check never blocks readiness.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		if s.RedisCheck != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.RedisCheck(ctx); err != nil {
				status["redis"] = "degraded"
				slog.Warn("readiness: redis unreachable", slog.Any("error", err))
			} else {
				status["redis"] = "ok"
			}
		}
		writeJSON(w, http.StatusOK, status)
	}
}
