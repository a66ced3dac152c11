package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"saldos/internal/cache"
	"saldos/internal/core"
	applog "saldos/internal/log"
	"saldos/internal/middleware/ratelimit"
	"saldos/internal/middleware/security"
	"saldos/internal/middleware/trace"
	appweb "saldos/web"
)

// Ledger is what the pages need from the ledger service.
type Ledger interface {
	CreateAccount(ctx context.Context, code, description string) (core.Account, error)
	GetAccount(ctx context.Context, code string) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListAccountSummaries(ctx context.Context) ([]core.AccountSummary, error)
	AddBalance(ctx context.Context, accountCode, amountRaw, descriptionRaw string) (core.BalanceEntry, error)
	OpenAccountWithBalance(ctx context.Context, code, description, amountRaw, balanceDescriptionRaw string) (core.Account, core.BalanceEntry, error)
	ListAll(ctx context.Context, page, pageSize int) (core.Page, error)
	ListForAccount(ctx context.Context, code string) ([]core.BalanceEntry, error)
	Ready(ctx context.Context) error
}

type Options struct {
	Addr              string
	PageSize          int
	SecretKey         string
	SecureCookies     bool
	RequestsPerMinute int
	SummaryTTL        time.Duration
}

type Server struct {
	http.Server
	ledger    Ledger
	logger    *applog.Logger
	pageSize  int
	templates map[string]*template.Template
	flash     flashSigner
	started   time.Time

	// overview summaries, dropped on every write
	summaries  cache.Cache[[]core.AccountSummary]
	summaryGen atomic.Uint64
	loads      singleflight.Group
	caches     *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	trace    *trace.Middleware
}

const summariesKey = "summaries"

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(opts Options, ledger Ledger, logger *applog.Logger) (*Server, error) {
	if opts.PageSize < 1 {
		opts.PageSize = 10
	}
	if opts.SummaryTTL <= 0 {
		opts.SummaryTTL = 30 * time.Second
	}
	if opts.SecretKey == "" {
		return nil, errors.New("http server: empty secret key")
	}

	templates, err := parseTemplates(appweb.TemplatesFS)
	if err != nil {
		return nil, err
	}

	logger = logger.WithComponent(applog.ComponentHTTP)
	summaries := cache.NewLRUCache[[]core.AccountSummary](1, opts.SummaryTTL)
	caches := cache.NewManager(time.Minute, logger)
	caches.Register(summaries)

	rlConfig := ratelimit.DefaultConfig()
	if opts.RequestsPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RequestsPerMinute
	}
	detector := security.NewDetector()

	s := &Server{
		ledger:    ledger,
		logger:    logger,
		pageSize:  opts.PageSize,
		templates: templates,
		flash:     flashSigner{key: []byte(opts.SecretKey), secure: opts.SecureCookies},
		started:   time.Now(),
		summaries: summaries,
		caches:    caches,
		limiter:   ratelimit.NewLimiter(rlConfig),
		detector:  detector,
		trace:     trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	staticFS, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static files: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /balances", s.handleBalances)
	mux.HandleFunc("GET /accounts/{code}", s.handleAccount)
	mux.HandleFunc("GET /new", s.handleNew)
	mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	mux.HandleFunc("POST /balances", s.handleCreateBalance)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("/", s.handleNotFound)

	var h http.Handler = mux
	h = s.limitPosts(h)
	h = security.NoStore(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = detector.Middleware(h)
	h = s.trace.Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// limitPosts rate limits form submissions only; pages stay readable.
func (s *Server) limitPosts(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// shutdownTimeout. Cache and rate limiter housekeeping run alongside.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.limiter.Run(gctx) })
	g.Go(func() error { return s.caches.Run(gctx) })
	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", s.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
		return s.Shutdown(sctx)
	})

	return g.Wait()
}

// accountSummaries serves the overview from cache, collapsing concurrent
// reloads into one query.
func (s *Server) accountSummaries(ctx context.Context) ([]core.AccountSummary, error) {
	if sums, ok := s.summaries.Get(summariesKey); ok {
		return sums, nil
	}

	// requests arriving after a write must not join a load started before it
	gen := s.summaryGen.Load()
	v, err, _ := s.loads.Do(summariesKey+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		sums, err := s.ledger.ListAccountSummaries(ctx)
		if err != nil {
			return nil, err
		}
		if s.summaryGen.Load() == gen {
			s.summaries.Set(summariesKey, sums)
			// a write may have purged between the check and the set
			if s.summaryGen.Load() != gen {
				s.summaries.Delete(summariesKey)
			}
		}
		return sums, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.AccountSummary), nil
}

func (s *Server) invalidateSummaries() {
	s.summaryGen.Add(1)
	s.summaries.Purge()
}
