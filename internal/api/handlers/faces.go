package handlers

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anttok/recognitiond/internal/apperr"
	"github.com/anttok/recognitiond/internal/facestore"
	"github.com/anttok/recognitiond/internal/orchestrator"
	"github.com/anttok/recognitiond/internal/storage"
	"github.com/anttok/recognitiond/internal/vision"
	"github.com/anttok/recognitiond/pkg/dto"
)

type FaceHandler struct {
	store        *facestore.Store
	recognizer   *vision.Recognizer
	orchestrator *orchestrator.Orchestrator
	db           *storage.PostgresStore
	minio        *storage.MinIOStore
}

func NewFaceHandler(store *facestore.Store, recognizer *vision.Recognizer, orch *orchestrator.Orchestrator, db *storage.PostgresStore, minio *storage.MinIOStore) *FaceHandler {
	return &FaceHandler{store: store, recognizer: recognizer, orchestrator: orch, db: db, minio: minio}
}

func readUploadedImage(c *gin.Context) (image.Image, []byte, error) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		return nil, nil, apperr.New(apperr.KindBadRequest, "image file required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindBadRequest, "read image", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInvalidImage, "decode image", err)
	}
	return img, data, nil
}

// Register implements the fast-path register(name, person_id, image)
// operation: detect the single best face with upsample=0, append to
// the Face Store and Recognizer mirror, and upsert the matching
// Person row in the Attendance Store.
func (h *FaceHandler) Register(c *gin.Context) {
	name := c.PostForm("name")
	personID := c.Param("person_id")
	if personID == "" {
		personID = c.PostForm("person_id")
	}
	if name == "" || personID == "" {
		respondErr(c, apperr.New(apperr.KindBadRequest, "name and person_id are required"))
		return
	}

	img, raw, err := readUploadedImage(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	embedding, bbox, err := h.recognizer.RecognizeSingleBest(img)
	if err != nil {
		if errors.Is(err, vision.ErrNoFace) {
			respondErr(c, apperr.New(apperr.KindNoFace, "no face detected in image"))
			return
		}
		respondErr(c, apperr.Wrap(apperr.KindInternal, "recognize", err))
		return
	}
	_ = bbox

	blobPath := "faces/" + personID + "/" + uuid.New().String() + ".jpg"
	if h.minio != nil {
		if err := h.minio.PutObject(c.Request.Context(), blobPath, raw, "image/jpeg"); err != nil {
			respondErr(c, apperr.Wrap(apperr.KindInternal, "store face image", err))
			return
		}
	}

	entry, err := h.store.Add(name, personID, embedding, blobPath)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "add face entry", err))
		return
	}

	if h.db != nil {
		if _, err := h.db.UpsertPerson(c.Request.Context(), personID, name); err != nil {
			respondErr(c, apperr.Wrap(apperr.KindInternal, "upsert person", err))
			return
		}
	}

	c.JSON(http.StatusCreated, dto.RegisterResponse{
		Name: entry.Name, PersonID: entry.PersonID, ImageBlobPath: entry.ImageBlobPath,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339),
	})
}

// RegisterForExisting implements register_face_for_existing_person:
// the Person row must already exist; otherwise reject.
func (h *FaceHandler) RegisterForExisting(c *gin.Context) {
	personID := c.Param("person_id")
	if h.db != nil {
		person, err := h.db.GetPerson(c.Request.Context(), personID)
		if err != nil {
			respondErr(c, apperr.Wrap(apperr.KindInternal, "get person", err))
			return
		}
		if person == nil {
			respondErr(c, apperr.New(apperr.KindPersonNotFound, "person not found"))
			return
		}
		c.Set("resolved_name", person.Name)
	}
	h.Register(c)
}

// Recognize runs the interactive loop (§4.G.1): if an image form field
// is provided, run detect→track→recognize on it directly; otherwise
// pull the latest ingestor frame. Never commits attendance.
func (h *FaceHandler) Recognize(c *gin.Context) {
	var (
		tracks []orchestrator.TrackView
		err    error
	)

	if _, _, ferr := c.Request.FormFile("image"); ferr == nil {
		var img image.Image
		img, _, err = readUploadedImage(c)
		if err != nil {
			respondErr(c, err)
			return
		}
		tracks, err = h.orchestrator.RecognizeImage(c.Request.Context(), img)
	} else {
		tracks, err = h.orchestrator.RecognizeNow(c.Request.Context())
	}
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := dto.RecognizeResponse{Tracks: make([]dto.TrackResponse, 0, len(tracks))}
	for _, t := range tracks {
		resp.Tracks = append(resp.Tracks, dto.TrackResponse{
			TrackID: t.TrackID, BBox: t.BBox, FaceBBox: t.FaceBBox,
			Name: t.Name, PersonID: t.PersonID, Confidence: t.Confidence, Status: t.Status,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FaceHandler) List(c *gin.Context) {
	entries := h.store.List()
	resp := dto.FaceListResponse{Faces: make([]dto.FaceEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Faces = append(resp.Faces, dto.FaceEntryResponse{
			Name: e.Name, PersonID: e.PersonID, ImageBlobPath: e.ImageBlobPath,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	resp.Total = len(resp.Faces)
	c.JSON(http.StatusOK, resp)
}

func (h *FaceHandler) Clear(c *gin.Context) {
	if err := h.store.Clear(); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "clear face store", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
