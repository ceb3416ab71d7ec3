package mockhost

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Options configure the simulated print host.
type Options struct {
	BindAddress string
	Port        int
	APIKey      string
	Version     string
	Name        string
}

// DefaultOptions returns options matching a stock Repetier-Server on its
// usual port.
func DefaultOptions() Options {
	return Options{
		BindAddress: "127.0.0.1",
		Port:        3344,
		Version:     "1.4.17",
		Name:        "Repetier-Server 1.4.17",
	}
}

// ReceivedJob records one upload accepted by the mock server.
type ReceivedJob struct {
	Printer    string
	Filename   string
	Size       int64
	StartPrint bool
}

// Handler contains the HTTP handlers emulating the print host protocol.
type Handler struct {
	opts   Options
	logger *logrus.Logger

	mu   sync.Mutex
	jobs []ReceivedJob
}

// NewHandler creates a new mock host handler.
func NewHandler(opts Options, logger *logrus.Logger) *Handler {
	return &Handler{
		opts:   opts,
		logger: logger,
	}
}

func (h *Handler) validateKey(c *gin.Context) bool {
	if h.opts.APIKey == "" {
		return true
	}
	return c.GetHeader("X-Api-Key") == h.opts.APIKey
}

// Info handles the probe endpoint.
func (h *Handler) Info(c *gin.Context) {
	if !h.validateKey(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version": h.opts.Version,
		"name":    h.opts.Name,
	})
}

// Upload handles multipart uploads to /printer/{job|model}/:printer.
func (h *Handler) Upload(c *gin.Context) {
	if !h.validateKey(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}

	target := c.Param("target")
	if target != "job" && target != "model" {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown upload target"})
		return
	}

	if c.PostForm("a") != "upload" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected form field a=upload"})
		return
	}

	file, err := c.FormFile("filename")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file part"})
		return
	}

	job := ReceivedJob{
		Printer:    c.Param("printer"),
		Filename:   file.Filename,
		Size:       file.Size,
		StartPrint: target == "job",
	}

	h.mu.Lock()
	h.jobs = append(h.jobs, job)
	h.mu.Unlock()

	h.logger.Infof("mock host: received %s for printer %s (%d bytes, print: %v)",
		job.Filename, job.Printer, job.Size, job.StartPrint)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Jobs returns a copy of the uploads received so far.
func (h *Handler) Jobs() []ReceivedJob {
	h.mu.Lock()
	defer h.mu.Unlock()

	jobs := make([]ReceivedJob, len(h.jobs))
	copy(jobs, h.jobs)
	return jobs
}
