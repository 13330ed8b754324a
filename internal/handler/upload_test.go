package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildUploadRequest(t *testing.T, userID, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if userID != "" {
		assert.NoError(t, writer.WriteField("user_id", userID))
	}
	part, err := writer.CreateFormFile("file", filename)
	assert.NoError(t, err)
	_, err = part.Write([]byte(content))
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleUpload_Success(t *testing.T) {
	var uploadedContainer, uploadedBlob, uploadedContent string
	var queuedName string
	var queuedMsg map[string]string

	mockBlob := &MockBlobClient{
		UploadTextFunc: func(ctx context.Context, containerName, blobName, content string) error {
			uploadedContainer = containerName
			uploadedBlob = blobName
			uploadedContent = content
			return nil
		},
	}
	mockQueue := &MockQueueClient{
		EnqueueMessageFunc: func(ctx context.Context, queueName string, message any) error {
			queuedName = queueName
			queuedMsg = message.(map[string]string)
			return nil
		},
	}
	deps := &Dependencies{Database: &MockDatabaseClient{}, Blob: mockBlob, Queue: mockQueue}

	req := buildUploadRequest(t, "user1", "statement.txt", "01/10/2025 SALARY 3500.00")
	rec := httptest.NewRecorder()
	deps.HandleUpload(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "statements", uploadedContainer)
	assert.True(t, strings.HasPrefix(uploadedBlob, "user1/"))
	assert.True(t, strings.HasSuffix(uploadedBlob, "-statement.txt"))
	assert.Equal(t, "01/10/2025 SALARY 3500.00", uploadedContent)

	assert.Equal(t, "ingest-queue", queuedName)
	assert.Equal(t, "user1", queuedMsg["user_id"])
	assert.Equal(t, uploadedBlob, queuedMsg["blob_name"])
	assert.Equal(t, "statement.txt", queuedMsg["filename"])

	var resp map[string]string
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, uploadedBlob, resp["blobName"])
}

func TestHandleUpload_MissingUserID(t *testing.T) {
	deps := &Dependencies{Blob: &MockBlobClient{}, Queue: &MockQueueClient{}}

	req := buildUploadRequest(t, "", "statement.txt", "content")
	rec := httptest.NewRecorder()
	deps.HandleUpload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_id form field is required")
}

func TestHandleUpload_WrongMethod(t *testing.T) {
	deps := &Dependencies{}

	req := httptest.NewRequest(http.MethodGet, "/api/upload", nil)
	rec := httptest.NewRecorder()
	deps.HandleUpload(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleUpload_BlobFailure(t *testing.T) {
	mockBlob := &MockBlobClient{
		UploadTextFunc: func(ctx context.Context, containerName, blobName, content string) error {
			return assert.AnError
		},
	}
	deps := &Dependencies{Blob: mockBlob, Queue: &MockQueueClient{}}

	req := buildUploadRequest(t, "user1", "statement.txt", "content")
	rec := httptest.NewRecorder()
	deps.HandleUpload(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to upload blob")
}

func TestHandleUpload_QueueFailure(t *testing.T) {
	mockQueue := &MockQueueClient{
		EnqueueMessageFunc: func(ctx context.Context, queueName string, message any) error {
			return assert.AnError
		},
	}
	deps := &Dependencies{Blob: &MockBlobClient{}, Queue: mockQueue}

	req := buildUploadRequest(t, "user1", "statement.txt", "content")
	rec := httptest.NewRecorder()
	deps.HandleUpload(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to enqueue message")
}
