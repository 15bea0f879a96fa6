package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Status is the readiness report served to operators and load balancers
type Status struct {
	IsReady bool   `json:"isReady"`
	Message string `json:"message"`
}

// GetFeedStatusFunc reports whether the broadcast feed slot can be read
type GetFeedStatusFunc func(ctx context.Context) error

// GetDisplayStatusFunc reports whether a local display window is open
type GetDisplayStatusFunc func() error

const statusTimeout = 2 * time.Second

type Server struct {
	getFeedStatus    GetFeedStatusFunc
	getDisplayStatus GetDisplayStatusFunc
}

// NewServer builds a health check. getDisplayStatus may be nil when the process
// drives no local display.
func NewServer(getFeedStatus GetFeedStatusFunc, getDisplayStatus GetDisplayStatusFunc) *Server {
	return &Server{
		getFeedStatus:    getFeedStatus,
		getDisplayStatus: getDisplayStatus,
	}
}

func (s *Server) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), statusTimeout)
	defer cancel()

	status := s.resolveStatus(ctx)
	res.Header().Set("content-type", "application/json")
	if err := json.NewEncoder(res).Encode(status); err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
	}
}

// resolveStatus treats the feed as required. A missing display window degrades the
// message but not readiness, since remote viewers are still served.
func (s *Server) resolveStatus(ctx context.Context) Status {
	if err := s.getFeedStatus(ctx); err != nil {
		return Status{
			IsReady: false,
			Message: fmt.Sprintf("The broadcast feed is unavailable, so remote displays cannot be updated. (Error: %s)", err),
		}
	}

	if s.getDisplayStatus != nil {
		if err := s.getDisplayStatus(); err != nil {
			return Status{
				IsReady: true,
				Message: fmt.Sprintf("The broadcast feed is operational, but the local display is not connected. (Error: %s)", err),
			}
		}
	}

	return Status{
		IsReady: true,
		Message: "The broadcast feed and local display are fully operational.",
	}
}
