package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anttok/recognitiond/internal/apperr"
	"github.com/anttok/recognitiond/internal/orchestrator"
	"github.com/anttok/recognitiond/pkg/dto"
)

const streamFrameInterval = 150 * time.Millisecond

type SourceHandler struct {
	orch *orchestrator.Orchestrator
}

func NewSourceHandler(orch *orchestrator.Orchestrator) *SourceHandler {
	return &SourceHandler{orch: orch}
}

func (h *SourceHandler) Change(c *gin.Context) {
	var req dto.ChangeSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid request", err))
		return
	}
	if err := h.orch.ChangeSource(c.Request.Context(), req.Source); err != nil {
		respondErr(c, err)
		return
	}
	uri, sourceType, active := h.orch.CurrentSource()
	c.JSON(http.StatusOK, dto.SourceResponse{Source: uri, SourceType: sourceType, Active: active})
}

func (h *SourceHandler) Stop(c *gin.Context) {
	if err := h.orch.StopSource(c.Request.Context()); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "stop source", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *SourceHandler) Validate(c *gin.Context) {
	var req dto.ChangeSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid request", err))
		return
	}
	if err := h.orch.ValidateSource(req.Source); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "valid"})
}

func (h *SourceHandler) Current(c *gin.Context) {
	uri, sourceType, active := h.orch.CurrentSource()
	c.JSON(http.StatusOK, dto.SourceResponse{Source: uri, SourceType: sourceType, Active: active})
}

func (h *SourceHandler) Status(c *gin.Context) {
	st := h.orch.Status()
	c.JSON(http.StatusOK, dto.StatusResponse{
		Active: st.Active, Source: st.Source, SourceType: st.SourceType,
		Connected: st.IngestHealth.Connected, Alive: st.IngestHealth.Alive,
		Width: st.IngestHealth.Width, Height: st.IngestHealth.Height,
		ReconnectCount: st.IngestHealth.ReconnectCount, TracksActive: st.TracksActive,
	})
}

// Stream pushes the annotated active-source frame as a motion JPEG over
// multipart/x-mixed-replace, polling the orchestrator at a fixed rate
// until the client disconnects.
func (h *SourceHandler) Stream(c *gin.Context) {
	const boundary = "frame"
	c.Writer.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		respondErr(c, apperr.New(apperr.KindInternal, "streaming not supported"))
		return
	}

	ticker := time.NewTicker(streamFrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			jpegData, err := h.orch.StreamFrame()
			if err != nil {
				continue
			}
			c.Writer.WriteString("--" + boundary + "\r\n")
			c.Writer.WriteString("Content-Type: image/jpeg\r\n")
			c.Writer.WriteString("Content-Length: " + strconv.Itoa(len(jpegData)) + "\r\n\r\n")
			c.Writer.Write(jpegData)
			c.Writer.WriteString("\r\n")
			flusher.Flush()
		}
	}
}
