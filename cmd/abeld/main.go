// Command abeld is Abel's server entrypoint: it boots a host from
// <root>/config.json and <root>/services/*/metadata.json, installs the
// HTTP front door, and serves until a signal tells it to stop every
// running service and exit.
package main

import (
	"context"
	"flag"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	liblog "github.com/nabbar/abel/logger"
	loglvl "github.com/nabbar/abel/logger/level"

	"github.com/nabbar/abel/hostconfig"
	"github.com/nabbar/abel/httpapi"
	"github.com/nabbar/abel/isolate"
	"github.com/nabbar/abel/lifecycle"
	"github.com/nabbar/abel/runtime"
	"github.com/nabbar/abel/svcpool"
)

func main() {
	root := flag.String("root", ".", "host data root directory (contains config.json, services/, storage/)")
	flag.Parse()

	log := liblog.New(context.Background())

	cfg, err := hostconfig.Load(*root)
	if err != nil {
		log.Error("failed to load host config", err)
		os.Exit(1)
	}

	if lvl := os.Getenv("RUST_LOG"); lvl != "" {
		cfg.Logger.Level = lvl
	}
	log.SetLevel(loglvl.Parse(cfg.Logger.Level))

	if tok := os.Getenv("ABEL_AUTH_TOKEN"); tok != "" {
		cfg.AuthToken = tok
	}

	store := hostconfig.NewStore(*root)
	if err := store.EnsureLayout(); err != nil {
		log.Error("failed to prepare host data root", err)
		os.Exit(1)
	}

	modules := []isolate.HostModule{
		isolate.NewJSONModule(),
		isolate.NewCryptoModule(),
		isolate.NewHTTPModule(10 * time.Second),
		isolate.NewLogModule(log),
	}

	pool := svcpool.New()
	rt := runtime.New(cfg.Pool.Size, lifecycle.NewCacheFactory(cfg.Pool.CacheSize), log)
	eng := lifecycle.New(pool, rt, store, log, modules...)

	if err := hostconfig.Boot(eng, store, log); err != nil {
		log.Error("boot reconstitution failed", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := httpapi.New(eng, store, log, cfg.AuthToken)
	srv.SetRecorder(store)
	srv.Register(router)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Bind,
		Handler: router,
	}

	go func() {
		var lerr error
		if cfg.HTTP.TLSCert != "" && cfg.HTTP.TLSKey != "" {
			lerr = httpSrv.ListenAndServeTLS(cfg.HTTP.TLSCert, cfg.HTTP.TLSKey)
		} else {
			lerr = httpSrv.ListenAndServe()
		}
		if lerr != nil && !errors.Is(lerr, http.ErrServerClosed) {
			log.Error("http server stopped unexpectedly", lerr)
		}
	}()

	log.Info("abeld listening on "+cfg.HTTP.Bind, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down: stopping all running services", nil)
	eng.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", err)
	}
}
