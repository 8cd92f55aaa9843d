// Package server - Handler fuer Laden, Initialisieren, Inferenz und Verlauf
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arkcheck/arkcheck/accuracy"
	"github.com/arkcheck/arkcheck/ark"
	"github.com/arkcheck/arkcheck/evaluate"
	"github.com/arkcheck/arkcheck/fetch"
	"github.com/arkcheck/arkcheck/harness"
	"github.com/arkcheck/arkcheck/importer"
	"github.com/arkcheck/arkcheck/model"
	"github.com/arkcheck/arkcheck/store"
	"github.com/arkcheck/arkcheck/tensor"
)

// InitRequest waehlt Backend und Praeferenz. Leere Felder nutzen die Defaults.
type InitRequest struct {
	Backend string `json:"backend"`
	Prefer  string `json:"prefer"`
}

type PredictRequest struct {
	Input     string `json:"input"`
	Reference string `json:"reference,omitempty"`
	Rows      int    `json:"rows,omitempty"`
	Cols      int    `json:"cols,omitempty"`
}

type PredictResponse struct {
	ElapsedMS string    `json:"elapsedMs"`
	Output    []float64 `json:"output"`

	// nur mit Referenz
	Errors *int                 `json:"errors,omitempty"`
	Frame  *accuracy.ErrorStats `json:"frame,omitempty"`
}

type EvaluateRequest struct {
	Pairs []evaluate.Pair `json:"pairs"`
	Rows  int             `json:"rows,omitempty"`
	Cols  int             `json:"cols,omitempty"`
	Save  bool            `json:"save,omitempty"`
}

// statusFor bildet Fehler der Pakete auf HTTP-Status ab
func statusFor(err error) int {
	var une *importer.UnknownNameError
	switch {
	case errors.As(err, &une):
		return http.StatusBadRequest
	case errors.Is(err, harness.ErrNotLoaded), errors.Is(err, harness.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, model.ErrUnrecognizedFormat),
		errors.Is(err, model.ErrInvalidModel),
		errors.Is(err, tensor.ErrInvalidShape),
		errors.Is(err, ark.ErrTruncatedFrame),
		errors.Is(err, accuracy.ErrShapeMismatch),
		errors.Is(err, accuracy.ErrNoScores),
		errors.Is(err, evaluate.ErrNoFrames):
		return http.StatusBadRequest
	case errors.Is(err, fetch.ErrFetchFailure):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrCGORequired), errors.Is(err, importer.ErrNoImporter):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// LoadHandler laedt einen Modell-Deskriptor
func (s *Server) LoadHandler(c *gin.Context) {
	var cfg harness.ModelConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cfg.ModelFile == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "modelFile is required"})
		return
	}

	status, err := s.harness.Load(c.Request.Context(), cfg)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := gin.H{"status": status.String()}
	if raw := s.harness.RawModel(); raw != nil && status != harness.LoadSuperseded {
		resp["format"] = raw.Format().String()
		resp["ops"] = raw.Ops()
	}
	c.JSON(http.StatusOK, resp)
}

// InitHandler initialisiert das Backend
func (s *Server) InitHandler(c *gin.Context) {
	var req InitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	status, err := s.harness.Init(c.Request.Context(), req.Backend, req.Prefer)
	if err != nil {
		resp := gin.H{"error": err.Error()}
		if status != 0 {
			resp["status"] = status.String()
		}
		c.AbortWithStatusJSON(statusFor(err), resp)
		return
	}

	backend, prefer := s.harness.Backend()
	c.JSON(http.StatusOK, gin.H{
		"status":    status.String(),
		"backend":   backend,
		"prefer":    prefer,
		"subgraphs": s.harness.SubgraphsSummary(),
	})
}

// OpsHandler wartet auf die benoetigten Operationen des Backends.
// Mit ?timeout=30s wird das Warten begrenzt.
func (s *Server) OpsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	if t := c.Query("timeout"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid timeout %q", t)})
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	ops, err := s.harness.RequiredOps(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ops": ops})
}

// StateHandler gibt Zustand, Modell und Backend zurueck
func (s *Server) StateHandler(c *gin.Context) {
	backend, prefer := s.harness.Backend()
	c.JSON(http.StatusOK, gin.H{
		"state":   s.harness.State().String(),
		"model":   s.harness.Config().ModelFile,
		"backend": backend,
		"prefer":  prefer,
	})
}

// PredictHandler fuehrt einen Frame aus und vergleicht optional mit einer Referenz
func (s *Server) PredictHandler(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Input == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "input is required"})
		return
	}

	ctx := c.Request.Context()
	pred, err := s.harness.Predict(ctx, req.Input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	resp := PredictResponse{ElapsedMS: pred.ElapsedMS(), Output: pred.Output.Floats()}

	if req.Reference != "" {
		if err := s.harness.LoadReference(ctx, req.Reference); err != nil {
			abortWithError(c, err)
			return
		}

		rows, cols := req.Rows, req.Cols
		if rows <= 0 || cols <= 0 {
			rows, cols = 1, pred.Output.Len()
		}
		n, err := s.harness.CompareFrame(rows, cols)
		if err != nil {
			abortWithError(c, err)
			return
		}
		frame := s.harness.Frame()
		resp.Errors, resp.Frame = &n, &frame
	}

	c.JSON(http.StatusOK, resp)
}

// EvaluateHandler wertet mehrere Frame-Paare aus und speichert optional den Run
func (s *Server) EvaluateHandler(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := evaluate.Options{Rows: req.Rows, Cols: req.Cols}
	if req.Save && s.store != nil {
		opts.Recorder = s.store
	}

	res, err := evaluate.Run(c.Request.Context(), s.harness, req.Pairs, opts)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// OutputHandler liefert den Output-Tensor als little-endian float32
func (s *Server) OutputHandler(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.harness.ExportOutput(&buf); err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="output.ark"`)
	c.Data(http.StatusOK, "application/octet-stream", buf.Bytes())
}

func (s *Server) ListRunsHandler(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []store.Run{}})
		return
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit %q", l)})
			return
		}
		limit = n
	}

	runs, err := s.store.Runs(limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) ShowRunHandler(c *gin.Context) {
	if s.store == nil {
		abortWithError(c, store.ErrRunNotFound)
		return
	}

	run, err := s.store.Run(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) DeleteRunHandler(c *gin.Context) {
	if s.store == nil {
		abortWithError(c, store.ErrRunNotFound)
		return
	}

	if err := s.store.DeleteRun(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
