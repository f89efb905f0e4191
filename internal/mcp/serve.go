package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
)

type decoded struct {
	req *Request
	err error
}

// Serve reads newline-delimited JSON-RPC requests from r and writes
// responses to w until r is exhausted or ctx is canceled. Only JSON is
// written to w. Requests are handled one at a time.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	decoder := json.NewDecoder(bufio.NewReader(r))
	encoder := json.NewEncoder(w)

	requests := make(chan decoded)
	go func() {
		defer close(requests)
		for {
			var req Request
			err := decoder.Decode(&req)

			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			switch {
			case err == nil, errors.As(err, &typeErr), errors.As(err, &syntaxErr):
			case errors.Is(err, io.EOF):
				return
			default:
				log.Error().Err(err).Msg("failed to read request")
				return
			}

			select {
			case requests <- decoded{req: &req, err: err}:
			case <-ctx.Done():
				return
			}
			// The decoder cannot resync after a syntax error.
			if syntaxErr != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-requests:
			if !ok {
				log.Info().Msg("input closed, stopping mcp server")
				return nil
			}
			if d.err != nil {
				log.Warn().Err(d.err).Msg("failed to parse request")
				if err := encoder.Encode(&Response{
					JSONRPC: "2.0",
					ID:      nil, // unknown id is null
					Error:   &ErrorObject{Code: ParseError, Message: "Failed to parse request"},
				}); err != nil {
					return fmt.Errorf("failed to encode response: %w", err)
				}
				continue
			}

			resp := s.HandleRequest(ctx, d.req)
			// Notifications get no response.
			if resp == nil || d.req.ID == nil {
				continue
			}
			if err := encoder.Encode(resp); err != nil {
				return fmt.Errorf("failed to encode response: %w", err)
			}
		}
	}
}
