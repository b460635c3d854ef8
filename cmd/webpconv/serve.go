package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ah-its-andy/webpconv/internal/api"
	"github.com/ah-its-andy/webpconv/internal/converter"
	"github.com/ah-its-andy/webpconv/internal/db"
	"github.com/ah-its-andy/webpconv/internal/livelog"
	"github.com/ah-its-andy/webpconv/internal/queue"
	"github.com/ah-its-andy/webpconv/internal/result"
	"github.com/ah-its-andy/webpconv/internal/settings"
	"github.com/ah-its-andy/webpconv/internal/watcher"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	servePort    int
	serveDropDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP bridge and the drop folder watcher",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (overrides HTTP_PORT)")
	serveCmd.Flags().StringVar(&serveDropDir, "drop-dir", "", "folder watched for dropped files (overrides DROP_DIR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.HTTPPort = servePort
	}
	if cmd.Flags().Changed("drop-dir") {
		cfg.DropDir = serveDropDir
	}
	log.Printf("starting webpconv on port %d, db=%s, drop=%q, workers=%d", cfg.HTTPPort, cfg.DBPath, cfg.DropDir, cfg.MaxWorkers)
	gin.SetMode(cfg.GinMode())

	conn, err := db.Init(cfg.DBPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	store := settings.NewDBStore(conn)
	board := result.NewBoard(cfg.NoticeDuration)
	session := queue.NewSession(queue.WithStore(store), queue.WithBoard(board))
	session.Restore()

	live := livelog.NewManager()
	converter.CheckExternalTools(builtinOptions(cfg, nil))
	reg := newRegistry(cfg, live)

	var w *watcher.Watcher
	if cfg.DropDir != "" {
		w, err = watcher.New(cfg.DropDir, cfg.DropSettleDelay)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	srv := api.NewServer(api.Options{
		DB:          conn,
		Session:     session,
		Board:       board,
		Registry:    reg,
		Settings:    store,
		Watcher:     w,
		Live:        live,
		Converter:   cfg.Converter,
		CorsOrigins: cfg.CorsOrigins,
		StaticDir:   cfg.StaticDir,
	})
	httpSrv := &http.Server{Addr: cfg.HTTPAddr(), Handler: srv.Router}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("http bridge listening on %s", cfg.HTTPAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := live.Prune(10 * time.Minute); n > 0 {
					log.Printf("pruned %d stale live logs", n)
				}
			}
		}
	})
	if w != nil {
		g.Go(func() error { return w.Start(ctx) })
		g.Go(func() error {
			forwardDrops(ctx, w.Events(), session)
			return nil
		})
	}

	err = g.Wait()
	// a started batch always reports back before the process exits
	srv.Wait()
	log.Println("shutdown complete")
	return err
}

// forwardDrops queues the paths of every completed drop. Drops that arrive
// while a conversion is running are rejected by the session and only logged.
func forwardDrops(ctx context.Context, events <-chan watcher.Event, session *queue.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev.Kind {
			case watcher.EventEnter:
				log.Println("drop started")
			case watcher.EventLeave:
				log.Println("drop left without files")
			case watcher.EventDrop:
				added, err := session.AddDropped(ev.Paths)
				if err != nil {
					log.Printf("drop ignored: %v", err)
					continue
				}
				log.Printf("queued %d of %d dropped paths", len(added), len(ev.Paths))
			}
		}
	}
}
