package api

import (
	"fmt"
	"net/http"

	"github.com/ah-its-andy/webpconv/internal/imagefmt"
	"github.com/ah-its-andy/webpconv/internal/queue"
	"github.com/gin-gonic/gin"
)

type pathsRequest struct {
	// nil or empty when the picker was cancelled
	Paths []string `json:"paths"`
}

type qualityRequest struct {
	Quality *int `json:"quality" binding:"required"`
}

type formatRequest struct {
	Format string `json:"format"`
}

func (s *Server) getQueue(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Session.Snapshot())
}

func (s *Server) addFiles(c *gin.Context) {
	s.ingest(c, s.opts.Session.AddFiles)
}

func (s *Server) addDropped(c *gin.Context) {
	s.ingest(c, s.opts.Session.AddDropped)
}

func (s *Server) ingest(c *gin.Context, add func([]string) ([]queue.Entry, error)) {
	var req pathsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := add(req.Paths)
	if err != nil {
		writeError(c, err)
		return
	}
	if added == nil {
		added = []queue.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "queue_len": s.opts.Session.Len()})
}

func (s *Server) setAllSelection(c *gin.Context) {
	var req struct {
		Checked bool `json:"checked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respond(c, s.opts.Session.SetAllSelection(req.Checked))
}

func (s *Server) toggleRow(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	s.respond(c, s.opts.Session.ToggleRowSelection(idx))
}

func (s *Server) setEntryQuality(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	q, ok := bindQuality(c)
	if !ok {
		return
	}
	s.respond(c, s.opts.Session.SetEntryQuality(idx, q))
}

func (s *Server) setEntryFormat(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	f, ok := bindFormat(c)
	if !ok {
		return
	}
	s.respond(c, s.opts.Session.SetEntryFormat(idx, f))
}

func (s *Server) deleteRow(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	s.respond(c, s.opts.Session.DeleteRow(idx))
}

func (s *Server) clearQueue(c *gin.Context) {
	s.respond(c, s.opts.Session.ClearQueue())
}

func (s *Server) setBatchQuality(c *gin.Context) {
	q, ok := bindQuality(c)
	if !ok {
		return
	}
	s.respond(c, s.opts.Session.SetBatchQuality(q))
}

func (s *Server) setBatchFormat(c *gin.Context) {
	f, ok := bindFormat(c)
	if !ok {
		return
	}
	s.respond(c, s.opts.Session.SetBatchFormat(f))
}

// respond writes the queue snapshot after a successful mutation.
func (s *Server) respond(c *gin.Context, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.opts.Session.Snapshot())
}

func bindQuality(c *gin.Context) (imagefmt.Quality, bool) {
	var req qualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	q, err := imagefmt.ParseQuality(*req.Quality)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", queue.ErrInvalidQuality, err))
		return 0, false
	}
	return q, true
}

func bindFormat(c *gin.Context) (imagefmt.Format, bool) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	f, err := imagefmt.ParseFormat(req.Format)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", queue.ErrInvalidFormat, err))
		return 0, false
	}
	return f, true
}
