package presenter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/podnetwork/pod-sdk-sub000/config"
	"github.com/podnetwork/pod-sdk-sub000/logging"
	mw "github.com/podnetwork/pod-sdk-sub000/presenter/http/middleware"
	"github.com/podnetwork/pod-sdk-sub000/presenter/http/render"
	"github.com/podnetwork/pod-sdk-sub000/repository"
)

// Presenter serves the settlement journal over HTTP.
type Presenter struct {
	logger logging.Logger
	repo   *repository.Repo
	cfg    *config.Config
	root   chi.Router
}

func NewPresenter(logger logging.Logger, repo *repository.Repo, cfg *config.Config) *Presenter {
	p := &Presenter{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
		root:   chi.NewMux(),
	}
	p.root.Use(middleware.Throttle(5))
	p.root.Use(middleware.RequestID)
	p.root.Use(mw.NewLoggerMiddleware(p.logger))
	p.root.Use(mw.Recoverer)
	p.root.Get("/chains", p.GetChains)
	p.root.Route("/settlements", func(r chi.Router) {
		r.With(mw.GetStatusMiddleware, mw.GetFilterMiddleware).Get("/", p.FindSettlements)
		r.With(mw.GetRequestIDMiddleware, mw.GetFilterMiddleware).Get("/{requestID:0x[0-9a-fA-F]{64}}", p.GetSettlement)
	})
	return p
}

func (p *Presenter) Serve(addr string) error {
	p.logger.WithField("addr", addr).Info("starting presenter service")
	return http.ListenAndServe(addr, p.root)
}

func (p *Presenter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.root.ServeHTTP(w, r)
}

func (p *Presenter) GetSettlement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := mw.GetFilterContext(ctx)

	if filter.RequestID == nil {
		render.JSON(w, r, http.StatusBadRequest, "request id is required")
		return
	}

	s, err := p.repo.Settlements.GetByRequestID(ctx, *filter.RequestID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, p.settlementToInfo(s))
}

func (p *Presenter) FindSettlements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := mw.GetFilterContext(ctx)

	settlements, err := p.repo.Settlements.FindByStatus(ctx, filter.Statuses...)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	res := make([]*SettlementInfo, len(settlements))
	for i, s := range settlements {
		res[i] = p.settlementToInfo(s)
	}
	render.JSON(w, r, http.StatusOK, res)
}

func (p *Presenter) GetChains(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, http.StatusOK, []*ChainInfo{
		sideToChainInfo("source", p.cfg.SourceChain),
		sideToChainInfo("settlement", p.cfg.SettlementChain),
	})
}
