package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KaramelBytes/insight-layer/internal/dataset"
)

// multipartSlack covers multipart framing around the file part.
const multipartSlack = 1 << 20

func (s *Server) analyze(c *gin.Context) {
	start := time.Now()
	limit := s.cfg.MaxUploadMB << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.reject(c, dataset.TooLarge(s.cfg.MaxUploadMB))
			return
		}
		s.reject(c, &dataset.RejectError{Reason: "No file uploaded", Err: err})
		return
	}
	if err := dataset.CheckName(fh.Filename); err != nil {
		s.reject(c, err)
		return
	}
	if fh.Size > limit {
		s.reject(c, dataset.TooLarge(s.cfg.MaxUploadMB))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		s.fail(c, err)
		return
	}
	if int64(len(data)) > limit {
		s.reject(c, dataset.TooLarge(s.cfg.MaxUploadMB))
		return
	}

	ds, err := dataset.Load(fh.Filename, data)
	if err != nil {
		s.reject(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.AnalysisTimeout())
	defer cancel()
	rep, err := s.analyzer.Analyze(ctx, ds)
	if err != nil {
		s.fail(c, err)
		return
	}
	analysesTotal.WithLabelValues(outcomeOK).Inc()
	analysisDuration.Observe(time.Since(start).Seconds())
	s.log.Info("analysis complete",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("file", ds.Name),
		zap.Int("rows", rep.Overview.Rows),
		zap.Int("columns", rep.Overview.Columns),
		zap.Duration("elapsed", time.Since(start)))
	c.JSON(http.StatusOK, rep)
}

// reject answers 400 for input rejections and 500 for anything else.
func (s *Server) reject(c *gin.Context, err error) {
	var rej *dataset.RejectError
	if !errors.As(err, &rej) {
		s.fail(c, err)
		return
	}
	analysesTotal.WithLabelValues(outcomeRejected).Inc()
	s.log.Warn("upload rejected",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("reason", rej.Reason))
	c.JSON(http.StatusBadRequest, gin.H{"detail": rej.Reason})
}

func (s *Server) fail(c *gin.Context, err error) {
	analysesTotal.WithLabelValues(outcomeFailed).Inc()
	s.log.Error("analysis failed",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Analysis failed: " + err.Error()})
}
