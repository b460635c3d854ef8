package api

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/ah-its-andy/webpconv/internal/converter"
	"github.com/ah-its-andy/webpconv/internal/db"
	"github.com/ah-its-andy/webpconv/internal/livelog"
	"github.com/ah-its-andy/webpconv/internal/queue"
	"github.com/ah-its-andy/webpconv/internal/result"
	"github.com/ah-its-andy/webpconv/internal/settings"
	"github.com/ah-its-andy/webpconv/internal/watcher"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Options carries the collaborators of the HTTP bridge. Watcher and Live may
// be nil.
type Options struct {
	DB        *gorm.DB
	Session   *queue.Session
	Board     *result.Board
	Registry  *converter.Registry
	Settings  settings.Store
	Watcher   *watcher.Watcher
	Live      *livelog.Manager
	Converter string // backend used when a request names none

	// CorsOrigins lists the browser origins allowed to call the bridge; "*"
	// or an empty list allows any origin.
	CorsOrigins []string
	// StaticDir, when set, is served at / for a bundled web UI.
	StaticDir string
}

type Server struct {
	Router *gin.Engine
	opts   Options

	// in-flight conversion runs
	runs sync.WaitGroup
}

func NewServer(opts Options) *Server {
	g := gin.Default()
	g.Use(cors.New(corsConfig(opts.CorsOrigins)))
	if opts.StaticDir != "" {
		g.Use(static.Serve("/", static.LocalFile(opts.StaticDir, false)))
	}
	s := &Server{Router: g, opts: opts}

	api := g.Group("/api")
	api.GET("/status", s.getStatus)
	api.PUT("/watcher", s.setWatcher)

	api.GET("/queue", s.getQueue)
	api.DELETE("/queue", s.clearQueue)
	api.POST("/queue/files", s.addFiles)
	api.POST("/queue/drop", s.addDropped)
	api.PUT("/queue/selection", s.setAllSelection)
	api.POST("/queue/:index/toggle", s.toggleRow)
	api.PUT("/queue/:index/quality", s.setEntryQuality)
	api.PUT("/queue/:index/format", s.setEntryFormat)
	api.DELETE("/queue/:index", s.deleteRow)

	api.PUT("/override/quality", s.setBatchQuality)
	api.PUT("/override/format", s.setBatchFormat)

	api.POST("/convert", s.startConversion)
	api.GET("/convert/live", s.liveOutput)
	api.GET("/convert/:id", s.getRun)
	api.GET("/runs", s.listRuns)

	api.GET("/notice", s.getNotice)
	api.DELETE("/notice", s.dismissNotice)

	api.GET("/formats", s.listFormats)
	api.GET("/converters", s.listConverters)
	api.PUT("/converters/:name", s.updateConverter)

	api.GET("/settings/theme", s.getTheme)
	api.PUT("/settings/theme", s.putTheme)

	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Wait blocks until every conversion started through the bridge has finished.
func (s *Server) Wait() { s.runs.Wait() }

func (s *Server) getStatus(c *gin.Context) {
	snap := s.opts.Session.Snapshot()
	resp := gin.H{
		"state":         snap.State,
		"queue_len":     len(snap.Entries),
		"watcher_state": s.watcherState(),
	}
	if w := s.opts.Watcher; w != nil {
		resp["drop_dir"] = w.Dir()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) watcherState() string {
	w := s.opts.Watcher
	switch {
	case w == nil:
		return "disabled"
	case w.Paused():
		return "paused"
	default:
		return "running"
	}
}

type watcherRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

// setWatcher pauses or resumes delivery from the drop folder.
func (s *Server) setWatcher(c *gin.Context) {
	w := s.opts.Watcher
	if w == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "drop folder watcher is disabled"})
		return
	}
	var req watcherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Paused {
		w.Pause()
	} else {
		w.Resume()
	}
	c.JSON(http.StatusOK, gin.H{"watcher_state": s.watcherState()})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, queue.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, queue.ErrIndexOutOfRange), errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, queue.ErrInvalidQuality),
		errors.Is(err, queue.ErrInvalidFormat),
		errors.Is(err, queue.ErrNoDestination),
		errors.Is(err, queue.ErrNothingSelected),
		errors.Is(err, converter.ErrNoConverter):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func indexParam(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return 0, false
	}
	return idx, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
