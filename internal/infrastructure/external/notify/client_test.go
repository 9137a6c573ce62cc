package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanops/oms/internal/domain/entity"
)

func TestClient_Notify(t *testing.T) {
	var gotPath, gotAuth string
	var got notifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", Token: "secret"}, zap.NewNop())
	require.NoError(t, c.Notify(context.Background(), 42, entity.NotificationPhotosReady))

	assert.Equal(t, "/api/jobs/42/notify", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, entity.NotificationPhotosReady, got.Type)
}

func TestClient_NotifyErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "job not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, zap.NewNop())
	err := c.Notify(context.Background(), 1, entity.NotificationScanCompleted)
	assert.ErrorContains(t, err, "unexpected status 404: job not found")

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = NewClient(Config{BaseURL: slow.URL}, zap.NewNop()).Notify(ctx, 1, entity.NotificationScanCompleted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
