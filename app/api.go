package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avergara/jobwatch/config"
	"github.com/avergara/jobwatch/lib"
	"github.com/avergara/jobwatch/lib/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultListLimit = 50

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
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

	r.Get("/health", ctrl.health)

	r.Route("/api", func(r chi.Router) {
		if creds := cfg.GetCreds(); len(creds) > 0 {
			r.Use(middleware.BasicAuth("jobwatch", creds))
		} else {
			log.Sugar().Info("Auth is disabled since no credentials are defined")
		}

		r.Route("/users", func(r chi.Router) {
			r.Post("/", ctrl.registerUser)
			r.Post("/{user_id}/deactivate", ctrl.deactivateUser)
			r.Delete("/{user_id}", ctrl.deleteUser)

			r.Route("/{user_id}/skills", func(r chi.Router) {
				r.Get("/", ctrl.listSkills)
				r.Post("/", ctrl.addSkill)
				r.Delete("/", ctrl.clearSkills)
				r.Delete("/{slug}", ctrl.removeSkill)
			})
		})

		r.Route("/postings", func(r chi.Router) {
			r.Get("/", ctrl.listPostings)
			r.Get("/search", ctrl.searchPostings)
			r.Delete("/{posting_id}", ctrl.deletePosting)
		})

		r.Route("/scraper", func(r chi.Router) {
			r.Get("/", ctrl.scrapeStatus)
			r.Post("/start", ctrl.startScrape)
			r.Post("/stop", ctrl.stopScrape)
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
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func (ctrl *controller) health(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.svc.Health(r.Context()); err != nil {
		ctrl.reject(w, http.StatusServiceUnavailable, err)
		return
	}
	w.Write([]byte("ok"))
}

func (ctrl *controller) registerUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telegramID, err := parseTelegramID(r.FormValue("telegram_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}
	username := r.FormValue("username")

	changed, err := ctrl.svc.RegisterUser(ctx, telegramID, username)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusAccepted, map[string]any{"registered": changed})
}

func (ctrl *controller) deactivateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telegramID, err := parseTelegramID(chi.URLParam(r, "user_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	ok, err := ctrl.svc.DeactivateUser(ctx, telegramID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	if !ok {
		ctrl.reject(w, http.StatusNotFound, errors.New("no active user with that id"))
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"deactivated": true})
}

func (ctrl *controller) deleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telegramID, err := parseTelegramID(chi.URLParam(r, "user_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	ok, err := ctrl.svc.DeleteUser(ctx, telegramID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	if !ok {
		ctrl.reject(w, http.StatusNotFound, errors.New("no user with that id"))
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"deleted": true})
}

func (ctrl *controller) listSkills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telegramID, err := parseTelegramID(chi.URLParam(r, "user_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	skills, err := ctrl.svc.UserSkills(ctx, telegramID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	if skills == nil {
		skills = []string{}
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"skills": skills})
}

func (ctrl *controller) addSkill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telegramID, err := parseTelegramID(chi.URLParam(r, "user_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}
	skill := r.FormValue("skill")
	if strings.TrimSpace(skill) == "" {
		ctrl.reject(w, 400, errors.New("skill is required"))
		return
	}

	slug, err := ctrl.svc.AddSkill(ctx, telegramID, skill)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"skill": slug})
}

func (ctrl *controller) removeSkill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telegramID, err := parseTelegramID(chi.URLParam(r, "user_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}
	slug := chi.URLParam(r, "slug")

	ok, err := ctrl.svc.RemoveSkill(ctx, telegramID, slug)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	if !ok {
		ctrl.reject(w, http.StatusNotFound, errors.New("no such skill for that user"))
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"removed": slug})
}

func (ctrl *controller) clearSkills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telegramID, err := parseTelegramID(chi.URLParam(r, "user_id"))
	if err != nil {
		ctrl.reject(w, 400, err)
		return
	}

	count, err := ctrl.svc.ClearSkills(ctx, telegramID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"cleared": count})
}

func (ctrl *controller) listPostings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postings, err := ctrl.svc.RecentPostings(ctx, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Posting, PostingView](postings))
}

func (ctrl *controller) searchPostings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := r.URL.Query().Get("skills")
	if strings.TrimSpace(raw) == "" {
		ctrl.reject(w, 400, errors.New("skills is required"))
		return
	}
	skills := strings.Split(raw, ",")

	postings, err := ctrl.svc.SearchPostings(ctx, skills, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Posting, PostingView](postings))
}

func (ctrl *controller) deletePosting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postingID, err := strconv.ParseUint(chi.URLParam(r, "posting_id"), 10, 64)
	if err != nil {
		ctrl.reject(w, 400, fmt.Errorf("invalid posting id: %q", chi.URLParam(r, "posting_id")))
		return
	}

	if err := ctrl.svc.DeletePosting(ctx, uint(postingID)); err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"deleted": postingID})
}

func (ctrl *controller) scrapeStatus(w http.ResponseWriter, r *http.Request) {
	state := ctrl.svc.ScrapeStatus(r.Context())
	ctrl.resolve(w, http.StatusOK, map[string]any{"scraping": state.String()})
}

func (ctrl *controller) startScrape(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.svc.EnableScrape(r.Context()); err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"scraping": "enabled"})
}

func (ctrl *controller) stopScrape(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.svc.DisableScrape(r.Context()); err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"scraping": "disabled"})
}

func parseTelegramID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram id: %q", s)
	}
	return id, nil
}

func parseLimit(s string) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultListLimit
}
