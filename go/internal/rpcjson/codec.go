// Package rpcjson carries plain Go request and response structs over connect
// using JSON, and the handler options every service shares.
package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/rs/zerolog/log"
)

// PlayerHeader carries the already-authenticated player id.
const PlayerHeader = "X-Player-Id"

// Codec marshals messages with encoding/json. It registers under the name
// "json" so it serves application/json requests.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// HandlerOptions returns the options for every ladders handler.
func HandlerOptions() []connect.HandlerOption {
	return []connect.HandlerOption{
		connect.WithCodec(Codec{}),
		connect.WithInterceptors(LoggingInterceptor()),
	}
}

// LoggingInterceptor logs each unary call with its duration and outcome.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			res, err := next(ctx, req)

			evt := log.Debug()
			if err != nil {
				code := connect.CodeOf(err)
				// typed rejections are the caller's problem, not ours
				if gameerr.Recoverable(err) || code == connect.CodeInvalidArgument || code == connect.CodeUnauthenticated {
					evt = log.Info()
				} else {
					evt = log.Error()
				}
				evt = evt.Err(err).Str("code", code.String())
			}
			evt.Str("procedure", req.Spec().Procedure).
				Str("player_id", req.Header().Get(PlayerHeader)).
				Dur("duration", time.Since(start)).
				Msg("rpc handled")
			return res, err
		}
	}
}

// PlayerID returns the caller identity attached upstream.
func PlayerID(h http.Header) (string, error) {
	id := strings.TrimSpace(h.Get(PlayerHeader))
	if id == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("missing "+PlayerHeader+" header"))
	}
	return id, nil
}
