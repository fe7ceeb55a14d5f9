package turn

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/mcdev12/ladders/go/internal/rpcjson"
)

const (
	TurnServiceName = "ladders.v1.TurnService"

	TurnServiceRollProcedure         = "/ladders.v1.TurnService/Roll"
	TurnServiceLeaveSessionProcedure = "/ladders.v1.TurnService/LeaveSession"
	TurnServiceGetSessionProcedure   = "/ladders.v1.TurnService/GetSession"
)

// TurnApp defines what the service layer needs from the turn engine
type TurnApp interface {
	Roll(ctx context.Context, sessionID uuid.UUID, playerID string) (*RollResult, error)
	Leave(ctx context.Context, sessionID uuid.UUID, playerID string) (*models.Session, error)
	State(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
}

type RollRequest struct {
	SessionID string `json:"session_id"`
}

type RollResponse struct {
	Roll     models.Roll     `json:"roll"`
	Session  *models.Session `json:"session"`
	NextTurn string          `json:"next_turn,omitempty"`
	Won      bool            `json:"won"`
}

type LeaveSessionRequest struct {
	SessionID string `json:"session_id"`
}

type LeaveSessionResponse struct {
	Session *models.Session `json:"session"`
}

type GetSessionRequest struct {
	SessionID string `json:"session_id"`
}

type GetSessionResponse struct {
	Session *models.Session `json:"session"`
}

// Service implements the TurnService RPC interface
type Service struct {
	app TurnApp
}

// NewService creates a new turn service
func NewService(app TurnApp) *Service {
	return &Service{app: app}
}

// Roll rolls the die for the calling player
func (s *Service) Roll(ctx context.Context, req *connect.Request[RollRequest]) (*connect.Response[RollResponse], error) {
	playerID, err := rpcjson.PlayerID(req.Header())
	if err != nil {
		return nil, err
	}
	sessionID, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.app.Roll(ctx, sessionID, playerID)
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}

	return connect.NewResponse(&RollResponse{
		Roll:     result.Roll,
		Session:  result.Session,
		NextTurn: result.NextTurn,
		Won:      result.Won,
	}), nil
}

// LeaveSession removes the calling player from a running session
func (s *Service) LeaveSession(ctx context.Context, req *connect.Request[LeaveSessionRequest]) (*connect.Response[LeaveSessionResponse], error) {
	playerID, err := rpcjson.PlayerID(req.Header())
	if err != nil {
		return nil, err
	}
	sessionID, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.app.Leave(ctx, sessionID, playerID)
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	return connect.NewResponse(&LeaveSessionResponse{Session: session}), nil
}

// GetSession returns the current state of a session
func (s *Service) GetSession(ctx context.Context, req *connect.Request[GetSessionRequest]) (*connect.Response[GetSessionResponse], error) {
	sessionID, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.app.State(ctx, sessionID)
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	return connect.NewResponse(&GetSessionResponse{Session: session}), nil
}

// NewHandler builds the HTTP handler serving every TurnService procedure.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(rpcjson.HandlerOptions(), opts...)

	mux := http.NewServeMux()
	mux.Handle(TurnServiceRollProcedure, connect.NewUnaryHandler(TurnServiceRollProcedure, svc.Roll, opts...))
	mux.Handle(TurnServiceLeaveSessionProcedure, connect.NewUnaryHandler(TurnServiceLeaveSessionProcedure, svc.LeaveSession, opts...))
	mux.Handle(TurnServiceGetSessionProcedure, connect.NewUnaryHandler(TurnServiceGetSessionProcedure, svc.GetSession, opts...))
	return "/" + TurnServiceName + "/", mux
}

func parseSessionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid session_id: %w", err))
	}
	return id, nil
}
