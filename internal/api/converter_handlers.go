package api

import (
	"net/http"

	"github.com/ah-its-andy/webpconv/internal/imagefmt"
	"github.com/ah-its-andy/webpconv/internal/settings"
	"github.com/gin-gonic/gin"
)

// FormatResponse describes one selectable output format
type FormatResponse struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Lossy     bool   `json:"lossy"`
}

// ConverterResponse describes a registered conversion backend
type ConverterResponse struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Default bool   `json:"default"`
}

func (s *Server) listFormats(c *gin.Context) {
	formats := make([]FormatResponse, 0, len(imagefmt.Formats()))
	for _, f := range imagefmt.Formats() {
		formats = append(formats, FormatResponse{Name: f.String(), Extension: f.Extension(), Lossy: f.Lossy()})
	}
	c.JSON(http.StatusOK, gin.H{"formats": formats, "qualities": imagefmt.QualityOptions()})
}

// listConverters handles GET /api/converters
func (s *Server) listConverters(c *gin.Context) {
	var def string
	if conv, err := s.opts.Registry.Resolve(s.opts.Converter); err == nil {
		def = conv.Name()
	}
	all := []ConverterResponse{}
	for _, info := range s.opts.Registry.ListInfo() {
		all = append(all, ConverterResponse{Name: info.Name, Enabled: info.Enabled, Default: info.Name == def})
	}
	c.JSON(http.StatusOK, all)
}

// updateConverter handles PUT /api/converters/:name - enables or disables a backend
func (s *Server) updateConverter(c *gin.Context) {
	name := c.Param("name")
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var err error
	if req.Enabled {
		err = s.opts.Registry.Enable(name)
	} else {
		err = s.opts.Registry.Disable(name)
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "enabled": req.Enabled})
}

// The theme is stored and returned verbatim; nothing here applies it.
func (s *Server) getTheme(c *gin.Context) {
	theme, _ := s.opts.Settings.Get(settings.KeyTheme)
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

func (s *Server) putTheme(c *gin.Context) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.opts.Settings.Set(settings.KeyTheme, req.Theme); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}
