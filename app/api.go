package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fiffu/bonuswatch/config"
	"github.com/fiffu/bonuswatch/lib"
	"github.com/fiffu/bonuswatch/lib/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewHTTPServer serves the status API. With SERVER_PORT=0 the server is never started.
func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc)}

	if cfg.ServerPort == 0 {
		log.Sugar().Info("API is disabled since SERVER_PORT is not set")
		return srv
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Sugar().Infow("API listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Sugar().Errorw("API server failed", "err", err)
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service) http.Handler {
	ctrl := &controller{log, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if creds := cfg.GetCreds(); len(creds) > 0 {
			r.Use(middleware.BasicAuth("bonuswatch", creds))
		} else {
			log.Sugar().Info("Auth is disabled since no credentials are defined")
		}

		r.Get("/notifications", ctrl.listNotifications)
		r.Get("/calendars", ctrl.listCalendars)
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", ctrl.triggerRun)
			r.Get("/last", ctrl.lastRun)
		})
	})

	return r
}

type controller struct {
	log *zap.Logger
	svc *lib.Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func (ctrl *controller) listNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := ctrl.svc.Notifications(r.Context())
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.BonusNotification, NotificationView](list))
}

func (ctrl *controller) listCalendars(w http.ResponseWriter, r *http.Request) {
	calendars, err := ctrl.svc.Calendars(r.Context())
	if err != nil {
		ctrl.reject(w, http.StatusBadGateway, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[*models.Calendar, CalendarView](calendars))
}

func (ctrl *controller) triggerRun(w http.ResponseWriter, r *http.Request) {
	report, err := ctrl.svc.TriggerRun(r.Context())
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	ctrl.resolve(w, status, RunView{}.From(report))
}

func (ctrl *controller) lastRun(w http.ResponseWriter, r *http.Request) {
	report, ok := ctrl.svc.LastRun()
	if !ok {
		ctrl.reject(w, http.StatusNotFound, errors.New("no run has completed yet"))
		return
	}
	ctrl.resolve(w, http.StatusOK, RunView{}.From(&report))
}
