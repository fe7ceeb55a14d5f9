package matchmaking

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/mcdev12/ladders/go/internal/rpcjson"
)

const (
	MatchmakingServiceName = "ladders.v1.MatchmakingService"

	MatchmakingServiceRequestMatchProcedure = "/ladders.v1.MatchmakingService/RequestMatch"
	MatchmakingServiceCancelMatchProcedure  = "/ladders.v1.MatchmakingService/CancelMatch"
)

// MatchmakingApp defines what the service layer needs from matchmaking
type MatchmakingApp interface {
	RequestMatch(ctx context.Context, player models.Player) (*models.WaitQueueEntry, error)
	CancelMatch(ctx context.Context, playerID string) bool
}

type RequestMatchRequest struct {
	Address     string  `json:"address"`
	DisplayName string  `json:"display_name"`
	Avatar      *string `json:"avatar,omitempty"`
}

type RequestMatchResponse struct {
	Entry *models.WaitQueueEntry `json:"entry"`
}

type CancelMatchRequest struct{}

type CancelMatchResponse struct {
	Cancelled bool `json:"cancelled"`
}

// Service implements the MatchmakingService RPC interface
type Service struct {
	app MatchmakingApp
}

// NewService creates a new matchmaking service
func NewService(app MatchmakingApp) *Service {
	return &Service{app: app}
}

// RequestMatch queues the caller for a quick match
func (s *Service) RequestMatch(ctx context.Context, req *connect.Request[RequestMatchRequest]) (*connect.Response[RequestMatchResponse], error) {
	playerID, err := rpcjson.PlayerID(req.Header())
	if err != nil {
		return nil, err
	}

	entry, err := s.app.RequestMatch(ctx, models.Player{
		ID:          playerID,
		Address:     req.Msg.Address,
		DisplayName: req.Msg.DisplayName,
		Avatar:      req.Msg.Avatar,
	})
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	return connect.NewResponse(&RequestMatchResponse{Entry: entry}), nil
}

// CancelMatch withdraws the caller's pending match request
func (s *Service) CancelMatch(ctx context.Context, req *connect.Request[CancelMatchRequest]) (*connect.Response[CancelMatchResponse], error) {
	playerID, err := rpcjson.PlayerID(req.Header())
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&CancelMatchResponse{Cancelled: s.app.CancelMatch(ctx, playerID)}), nil
}

// NewHandler builds the HTTP handler serving every MatchmakingService procedure.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(rpcjson.HandlerOptions(), opts...)

	mux := http.NewServeMux()
	mux.Handle(MatchmakingServiceRequestMatchProcedure, connect.NewUnaryHandler(MatchmakingServiceRequestMatchProcedure, svc.RequestMatch, opts...))
	mux.Handle(MatchmakingServiceCancelMatchProcedure, connect.NewUnaryHandler(MatchmakingServiceCancelMatchProcedure, svc.CancelMatch, opts...))
	return "/" + MatchmakingServiceName + "/", mux
}
