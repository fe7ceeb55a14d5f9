package lobby

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
	LobbyServiceName = "ladders.v1.LobbyService"

	LobbyServiceCreateLobbyProcedure = "/ladders.v1.LobbyService/CreateLobby"
	LobbyServiceJoinLobbyProcedure   = "/ladders.v1.LobbyService/JoinLobby"
	LobbyServiceLeaveLobbyProcedure  = "/ladders.v1.LobbyService/LeaveLobby"
	LobbyServiceSetReadyProcedure    = "/ladders.v1.LobbyService/SetReady"
	LobbyServiceStartLobbyProcedure  = "/ladders.v1.LobbyService/StartLobby"
	LobbyServiceGetLobbyProcedure    = "/ladders.v1.LobbyService/GetLobby"
	LobbyServiceListLobbiesProcedure = "/ladders.v1.LobbyService/ListLobbies"
)

// LobbyApp defines what the service layer needs from the lobby application
type LobbyApp interface {
	CreateLobby(ctx context.Context, tierID string, creator models.Player) (*models.Lobby, error)
	Join(ctx context.Context, lobbyID uuid.UUID, player models.Player) (*models.Lobby, error)
	Leave(ctx context.Context, lobbyID uuid.UUID, playerID string) (*models.Lobby, error)
	SetReady(ctx context.Context, lobbyID uuid.UUID, playerID string, ready bool) (*models.Lobby, error)
	Start(ctx context.Context, lobbyID uuid.UUID, playerID string) (*models.Session, error)
	Get(ctx context.Context, lobbyID uuid.UUID) (*models.Lobby, error)
	ListOpen(ctx context.Context, tierID string) ([]*models.Lobby, error)
}

// PlayerInfo is the caller's presentation data and transport address.
type PlayerInfo struct {
	Address     string  `json:"address"`
	DisplayName string  `json:"display_name"`
	Avatar      *string `json:"avatar,omitempty"`
}

func (p PlayerInfo) toPlayer(id string) models.Player {
	return models.Player{ID: id, Address: p.Address, DisplayName: p.DisplayName, Avatar: p.Avatar}
}

type CreateLobbyRequest struct {
	TierID string     `json:"tier_id"`
	Player PlayerInfo `json:"player"`
}

type JoinLobbyRequest struct {
	LobbyID string     `json:"lobby_id"`
	Player  PlayerInfo `json:"player"`
}

type LeaveLobbyRequest struct {
	LobbyID string `json:"lobby_id"`
}

type SetReadyRequest struct {
	LobbyID string `json:"lobby_id"`
	Ready   bool   `json:"ready"`
}

type StartLobbyRequest struct {
	LobbyID string `json:"lobby_id"`
}

type GetLobbyRequest struct {
	LobbyID string `json:"lobby_id"`
}

type ListLobbiesRequest struct {
	TierID string `json:"tier_id,omitempty"`
}

// LobbyResponse carries a lobby. Lobby is nil after the last player left.
type LobbyResponse struct {
	Lobby *models.Lobby `json:"lobby"`
}

type StartLobbyResponse struct {
	Lobby   *models.Lobby   `json:"lobby"`
	Session *models.Session `json:"session"`
}

type ListLobbiesResponse struct {
	Lobbies []*models.Lobby `json:"lobbies"`
}

// Service implements the LobbyService RPC interface
type Service struct {
	app LobbyApp
}

// NewService creates a new lobby service
func NewService(app LobbyApp) *Service {
	return &Service{app: app}
}

// CreateLobby opens a new room owned by the caller
func (s *Service) CreateLobby(ctx context.Context, req *connect.Request[CreateLobbyRequest]) (*connect.Response[LobbyResponse], error) {
	playerID, err := rpcjson.PlayerID(req.Header())
	if err != nil {
		return nil, err
	}
	if req.Msg.TierID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("tier_id is required"))
	}

	lobby, err := s.app.CreateLobby(ctx, req.Msg.TierID, req.Msg.Player.toPlayer(playerID))
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	return connect.NewResponse(&LobbyResponse{Lobby: lobby}), nil
}

// JoinLobby seats the caller in a room
func (s *Service) JoinLobby(ctx context.Context, req *connect.Request[JoinLobbyRequest]) (*connect.Response[LobbyResponse], error) {
	playerID, err := rpcjson.PlayerID(req.Header())
	if err != nil {
		return nil, err
	}
	lobbyID, err := parseLobbyID(req.Msg.LobbyID)
	if err != nil {
		return nil, err
	}

	lobby, err := s.app.Join(ctx, lobbyID, req.Msg.Player.toPlayer(playerID))
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	return connect.NewResponse(&LobbyResponse{Lobby: lobby}), nil
}

// LeaveLobby removes the caller from a room
func (s *Service) LeaveLobby(ctx context.Context, req *connect.Request[LeaveLobbyRequest]) (*connect.Response[LobbyResponse], error) {
	playerID, err := rpcjson.PlayerID(req.Header())
	if err != nil {
		return nil, err
	}
	lobbyID, err := parseLobbyID(req.Msg.LobbyID)
	if err != nil {
		return nil, err
	}

	lobby, err := s.app.Leave(ctx, lobbyID, playerID)
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	return connect.NewResponse(&LobbyResponse{Lobby: lobby}), nil
}

// SetReady toggles the caller's readiness
func (s *Service) SetReady(ctx context.Context, req *connect.Request[SetReadyRequest]) (*connect.Response[LobbyResponse], error) {
	playerID, err := rpcjson.PlayerID(req.Header())
	if err != nil {
		return nil, err
	}
	lobbyID, err := parseLobbyID(req.Msg.LobbyID)
	if err != nil {
		return nil, err
	}

	lobby, err := s.app.SetReady(ctx, lobbyID, playerID, req.Msg.Ready)
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	return connect.NewResponse(&LobbyResponse{Lobby: lobby}), nil
}

// StartLobby starts the session for a full, ready room
func (s *Service) StartLobby(ctx context.Context, req *connect.Request[StartLobbyRequest]) (*connect.Response[StartLobbyResponse], error) {
	playerID, err := rpcjson.PlayerID(req.Header())
	if err != nil {
		return nil, err
	}
	lobbyID, err := parseLobbyID(req.Msg.LobbyID)
	if err != nil {
		return nil, err
	}

	session, err := s.app.Start(ctx, lobbyID, playerID)
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	lobby, err := s.app.Get(ctx, lobbyID)
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	return connect.NewResponse(&StartLobbyResponse{Lobby: lobby, Session: session}), nil
}

// GetLobby returns a room by id
func (s *Service) GetLobby(ctx context.Context, req *connect.Request[GetLobbyRequest]) (*connect.Response[LobbyResponse], error) {
	lobbyID, err := parseLobbyID(req.Msg.LobbyID)
	if err != nil {
		return nil, err
	}

	lobby, err := s.app.Get(ctx, lobbyID)
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	return connect.NewResponse(&LobbyResponse{Lobby: lobby}), nil
}

// ListLobbies returns the rooms still accepting players
func (s *Service) ListLobbies(ctx context.Context, req *connect.Request[ListLobbiesRequest]) (*connect.Response[ListLobbiesResponse], error) {
	lobbies, err := s.app.ListOpen(ctx, req.Msg.TierID)
	if err != nil {
		return nil, gameerr.ToConnect(err)
	}
	if lobbies == nil {
		lobbies = []*models.Lobby{}
	}
	return connect.NewResponse(&ListLobbiesResponse{Lobbies: lobbies}), nil
}

// NewHandler builds the HTTP handler serving every LobbyService procedure.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(rpcjson.HandlerOptions(), opts...)

	mux := http.NewServeMux()
	mux.Handle(LobbyServiceCreateLobbyProcedure, connect.NewUnaryHandler(LobbyServiceCreateLobbyProcedure, svc.CreateLobby, opts...))
	mux.Handle(LobbyServiceJoinLobbyProcedure, connect.NewUnaryHandler(LobbyServiceJoinLobbyProcedure, svc.JoinLobby, opts...))
	mux.Handle(LobbyServiceLeaveLobbyProcedure, connect.NewUnaryHandler(LobbyServiceLeaveLobbyProcedure, svc.LeaveLobby, opts...))
	mux.Handle(LobbyServiceSetReadyProcedure, connect.NewUnaryHandler(LobbyServiceSetReadyProcedure, svc.SetReady, opts...))
	mux.Handle(LobbyServiceStartLobbyProcedure, connect.NewUnaryHandler(LobbyServiceStartLobbyProcedure, svc.StartLobby, opts...))
	mux.Handle(LobbyServiceGetLobbyProcedure, connect.NewUnaryHandler(LobbyServiceGetLobbyProcedure, svc.GetLobby, opts...))
	mux.Handle(LobbyServiceListLobbiesProcedure, connect.NewUnaryHandler(LobbyServiceListLobbiesProcedure, svc.ListLobbies, opts...))
	return "/" + LobbyServiceName + "/", mux
}

func parseLobbyID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid lobby_id: %w", err))
	}
	return id, nil
}
