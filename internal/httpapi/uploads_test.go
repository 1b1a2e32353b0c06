package httpapi_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
)

// TestUploadRejectsFileOverTheConfiguredLimit exercises the too-large
// branch: the declared Content-Length alone is enough to reject the
// request before any bytes are streamed to disk, and no upload record is
// left behind for the client to reference later.
func TestUploadRejectsFileOverTheConfiguredLimit(t *testing.T) {
	h := newTestHarness(t)

	content := strings.Repeat("x", 4096)
	resp := h.uploadFile("too-big.srt", content)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
	errBody := mustDecodeError(t, resp)
	if errBody.Code != "too_large" {
		t.Fatalf("code = %q, want too_large", errBody.Code)
	}

	sum := sha256.Sum256([]byte(content))
	hash := hex.EncodeToString(sum[:])
	if _, found, err := h.store.FindUploadByHash(context.Background(), hash); err != nil {
		t.Fatalf("FindUploadByHash() error = %v", err)
	} else if found {
		t.Fatal("a rejected upload must not leave an upload record behind")
	}
}

// TestUploadRejectsUnsupportedExtension confirms a file type outside the
// video/audio/subtitle families is rejected by uploadstore.Put's extension
// check before any bytes are streamed.
func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	h := newTestHarness(t)

	resp := h.uploadFile("notes.txt", "just some notes")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", resp.StatusCode)
	}
}

func TestUploadRejectsMissingFileField(t *testing.T) {
	h := newTestHarness(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("not_file", "irrelevant"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	resp, err := h.client.Post(h.url+"/api/uploads", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /api/uploads: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
