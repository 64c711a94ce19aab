package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/camm-community/camm-server/internal/models"
)

func postRegisterForm(t *testing.T, env *testEnv, fields map[string]string, imageName string, imageData []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if imageName != "" {
		fw, err := mw.CreateFormFile("faceImage", imageName)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		fw.Write(imageData)
	}
	mw.Close()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	env.router.ServeHTTP(w, req)
	return w
}

func TestRegisterUser_RequiresConsent(t *testing.T) {
	env := setupTestEnv(t)

	w := postRegisterForm(t, env, map[string]string{
		"email":    "jane@example.com",
		"fullName": "Jane Resident",
	}, "", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without consent, got %d", w.Code)
	}
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	env := setupTestEnv(t)

	env.users.CreateUser(context.Background(), &models.User{
		Email:        "jane@example.com",
		FullName:     "Jane Resident",
		ConsentGiven: true,
	})

	w := postRegisterForm(t, env, map[string]string{
		"email":        "jane@example.com",
		"fullName":     "Jane Again",
		"consentGiven": "true",
	}, "", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for duplicate email, got %d", w.Code)
	}
}

func TestRegisterUser_WithFaceImage(t *testing.T) {
	env := setupTestEnv(t)

	w := postRegisterForm(t, env, map[string]string{
		"email":            "jane@example.com",
		"fullName":         "Jane Resident",
		"phone":            "555-0100",
		"address":          "221B Baker Street",
		"medicalInfo":      "diabetic",
		"emergencyContact": "John 555-0101",
		"consentGiven":     "true",
	}, "portrait.png", []byte("not-really-a-png"))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		UserID int64 `json:"userId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.UserID == 0 {
		t.Error("expected a user id")
	}

	user, _ := env.users.GetUserByID(context.Background(), resp.UserID)
	if user == nil {
		t.Fatal("expected stored user")
	}
	if !strings.HasPrefix(user.FaceImagePath, "/uploads/faces/face-") {
		t.Errorf("unexpected face image path '%s'", user.FaceImagePath)
	}
	if env.users.consents != 1 {
		t.Errorf("expected 1 consent log entry, got %d", env.users.consents)
	}
}

func TestRegisterUser_RejectsBadImageType(t *testing.T) {
	env := setupTestEnv(t)

	w := postRegisterForm(t, env, map[string]string{
		"email":        "jane@example.com",
		"fullName":     "Jane Resident",
		"consentGiven": "true",
	}, "payload.exe", []byte("nope"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for disallowed extension, got %d", w.Code)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/users/42", nil)
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestListUsers_EmptyIsArray(t *testing.T) {
	env := setupTestEnv(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/users", nil)
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}

func TestSaveFaceImage_WritesFile(t *testing.T) {
	env := setupTestEnv(t)

	w := postRegisterForm(t, env, map[string]string{
		"email":        "file@example.com",
		"fullName":     "File Check",
		"consentGiven": "true",
	}, "portrait.jpg", []byte("jpeg-bytes"))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	user, _ := env.users.GetUserByID(context.Background(), 1)
	if user == nil {
		t.Fatal("expected stored user")
	}
	name := filepath.Base(user.FaceImagePath)
	onDisk := filepath.Join(env.uploadsDir, "faces", name)
	data, err := os.ReadFile(onDisk)
	if err != nil {
		t.Fatalf("expected saved image at %s: %v", onDisk, err)
	}
	if string(data) != "jpeg-bytes" {
		t.Error("saved image content mismatch")
	}
}
