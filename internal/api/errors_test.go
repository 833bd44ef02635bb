package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteStoreError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "deadline exceeded maps to transient",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrCodeTransientStore,
		},
		{
			name:       "wrapped deadline exceeded maps to transient",
			err:        fmt.Errorf("storing reading: %w", context.DeadlineExceeded),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrCodeTransientStore,
		},
		{
			name:       "other storage error is opaque internal",
			err:        errors.New("database is locked (5) (SQLITE_BUSY)"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeStoreError(rec, tt.err, "failed to store readings")

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body Error
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}

			// Internal error text never reaches the caller.
			if strings.Contains(body.Message, "SQLITE") {
				t.Errorf("message leaked internal error text: %q", body.Message)
			}
		})
	}
}
