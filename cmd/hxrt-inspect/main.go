package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phroun/hxrt"
)

var version = "dev" // set via -ldflags at build time

func main() {
	configPath := flag.String("config", "", "Path to a .toml or .yaml config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	workers := flag.Int("workers", 3, "Number of demo worker threads")
	debug := flag.Bool("debug", false, "Enable debug logging for all categories")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hxrt-inspect %s\n", version)
		return
	}

	cfg := hxrt.DefaultConfig()
	if *configPath != "" {
		loaded, err := hxrt.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Inspect.Addr = *addr
	}
	if *debug {
		cfg.Debug = true
		cfg.LogCategories = []string{"all"}
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	rt := hxrt.New(cfg)
	ctx, stop := signal.NotifyContext(rt.MainContext(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startDemo(ctx.Done(), rt, *workers)

	srv := &http.Server{
		Addr:              cfg.Inspect.Addr,
		Handler:           hxrt.NewInspectRouter(rt),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		rt.Logger().NoticeCat(hxrt.CatInspect, "inspection server listening on %s", cfg.Inspect.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger().ErrorCat(hxrt.CatInspect, "inspection server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		rt.Logger().ErrorCat(hxrt.CatInspect, "inspection server shutdown: %v", err)
	}
	stopDemo(rt)
	if err := rt.Close(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
