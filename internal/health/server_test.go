package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Server(t *testing.T) {
	tests := []struct {
		name              string
		feedErr           error
		displayErr        error
		withDisplay       bool
		wantIsReady       bool
		wantMessageSubstr string
	}{
		{
			"returns isReady if no systems report errors",
			nil,
			nil,
			true,
			true,
			"fully operational",
		},
		{
			"returns !isReady if the feed is unavailable",
			fmt.Errorf("dial tcp: connection refused"),
			nil,
			true,
			false,
			"broadcast feed is unavailable, so remote displays cannot be updated. (Error: dial tcp: connection refused)",
		},
		{
			"a missing display window degrades the message only",
			nil,
			fmt.Errorf("no local display window is open"),
			true,
			true,
			"local display is not connected. (Error: no local display window is open)",
		},
		{
			"display status is optional",
			nil,
			nil,
			false,
			true,
			"fully operational",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var getDisplayStatus GetDisplayStatusFunc
			if tt.withDisplay {
				getDisplayStatus = func() error { return tt.displayErr }
			}
			s := NewServer(func(ctx context.Context) error { return tt.feedErr }, getDisplayStatus)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			res := httptest.NewRecorder()
			s.ServeHTTP(res, req)

			r := res.Result()
			assert.Equal(t, http.StatusOK, r.StatusCode)

			var status Status
			err := json.NewDecoder(r.Body).Decode(&status)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantIsReady, status.IsReady)
			assert.Contains(t, status.Message, tt.wantMessageSubstr)
		})
	}
}
