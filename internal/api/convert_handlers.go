package api

import (
	"context"
	"log"
	"net/http"

	"github.com/ah-its-andy/webpconv/internal/db"
	"github.com/ah-its-andy/webpconv/internal/livelog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type convertRequest struct {
	// empty when the folder picker was cancelled
	Destination string `json:"destination"`
	Converter   string `json:"converter"`
}

// startConversion enters the processing state synchronously so that the
// response already reflects a busy session, then runs the batch in the
// background.
func (s *Server) startConversion(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := req.Converter
	if name == "" {
		name = s.opts.Converter
	}
	conv, err := s.opts.Registry.Resolve(name)
	if err != nil {
		writeError(c, err)
		return
	}

	job, err := s.opts.Session.Begin(req.Destination)
	if err != nil {
		writeError(c, err)
		return
	}

	run := &db.ConversionRun{
		ID:          uuid.NewString(),
		Destination: req.Destination,
		Converter:   conv.Name(),
		Requested:   job.Requested(),
		Files:       db.FilesJSON(job.Request().Files),
	}
	if err := db.CreateRun(s.opts.DB, run); err != nil {
		log.Printf("failed to record run %s: %v", run.ID, err)
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		out, err := job.Run(context.Background(), conv)
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		if err := db.FinishRun(s.opts.DB, run.ID, out.Processed, string(out.Status()), errMsg); err != nil {
			log.Printf("failed to finish run %s: %v", run.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID, "requested": run.Requested, "converter": run.Converter})
}

func (s *Server) getRun(c *gin.Context) {
	run, err := db.GetRun(s.opts.DB, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// liveOutput returns the tool output of files still being converted.
func (s *Server) liveOutput(c *gin.Context) {
	entries := s.opts.Live.Active()
	if entries == nil {
		entries = []livelog.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) listRuns(c *gin.Context) {
	limit := parseIntDefault(c.Query("limit"), 50)
	offset := parseIntDefault(c.Query("offset"), 0)
	rows, total, err := db.ListRuns(s.opts.DB, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": total})
}

func (s *Server) getNotice(c *gin.Context) {
	n, ok := s.opts.Board.Current()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"notice": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notice": n})
}

func (s *Server) dismissNotice(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dismissed": s.opts.Board.Dismiss()})
}
