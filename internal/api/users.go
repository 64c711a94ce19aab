package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/camm-community/camm-server/internal/models"
)

var (
	errFaceImageTooLarge = errors.New("face image exceeds the maximum allowed size")
	errFaceImageBadType  = errors.New("only jpg, jpeg, png and webp images are allowed")
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// registerUser handles opt-in: profile fields plus an optional face image,
// all in one multipart form. Registration without explicit consent is
// rejected before anything touches the store.
func (h *Handler) registerUser(c *gin.Context) {
	email := c.PostForm("email")
	fullName := c.PostForm("fullName")
	consentGiven := c.PostForm("consentGiven")

	if email == "" || fullName == "" || consentGiven != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields or consent not given"})
		return
	}

	ctx := c.Request.Context()

	exists, err := h.users.EmailExists(ctx, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
		return
	}

	facePath, err := h.saveFaceImage(c)
	if err != nil {
		if errors.Is(err, errFaceImageTooLarge) || errors.Is(err, errFaceImageBadType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store face image"})
		return
	}

	now := time.Now()
	userID, err := h.users.CreateUser(ctx, &models.User{
		Email:            email,
		FullName:         fullName,
		Phone:            c.PostForm("phone"),
		Address:          c.PostForm("address"),
		MedicalInfo:      c.PostForm("medicalInfo"),
		EmergencyContact: c.PostForm("emergencyContact"),
		FaceImagePath:    facePath,
		ConsentGiven:     true,
		ConsentTimestamp: &now,
		CreatedAt:        now,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	if err := h.users.LogConsent(ctx, userID, "program_participation", true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"userId":  userID,
	})
}

// saveFaceImage stores the uploaded face image under the uploads dir with a
// generated filename and returns its public path. No file is fine; a file
// with a bad extension or over the size limit is a caller error.
func (h *Handler) saveFaceImage(c *gin.Context) (string, error) {
	file, err := c.FormFile("faceImage")
	if err != nil {
		// No image attached.
		return "", nil
	}

	if file.Size > h.cfg.Uploads.MaxImageSize {
		return "", errFaceImageTooLarge
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return "", errFaceImageBadType
	}

	dir := filepath.Join(h.cfg.Uploads.Dir, "faces")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := "face-" + uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		return "", err
	}
	return "/uploads/faces/" + name, nil
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) getUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
