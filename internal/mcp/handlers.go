package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/raine/product-price-finder/internal/quote"
	"github.com/rs/zerolog/log"
)

const internalErrorMessage = "Failed to find product price"

type findPriceArgs struct {
	PuchUserID     string `json:"puch_user_id"`
	ProductURL     string `json:"product_url"`
	PuchImageData  string `json:"puch_image_data"`
	ImageIDForTool string `json:"image_id_for_tool"`
}

func (s *Server) handleFindProductPrice(ctx context.Context, id any, arguments json.RawMessage) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic in find_product_price")
			resp = s.internalError(id, fmt.Errorf("panic: %v", r))
		}
	}()

	var args findPriceArgs
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return s.errorResponse(id, InvalidParams, "Invalid arguments for find_product_price")
		}
	}

	log.Debug().
		Str("userID", args.PuchUserID).
		Bool("hasURL", args.ProductURL != "").
		Bool("hasImageData", args.PuchImageData != "").
		Str("imageID", args.ImageIDForTool).
		Msg("find_product_price called")

	res, err := s.quotes.Resolve(ctx, quote.Request{
		ProductURL:      args.ProductURL,
		InlineImageData: args.PuchImageData,
		ImageReference:  args.ImageIDForTool,
	})
	if err != nil {
		return s.quoteError(id, err)
	}
	return s.textResponse(id, res.Text(), false)
}

func (s *Server) quoteError(id any, err error) *Response {
	if errors.Is(err, quote.ErrInvalidInput) {
		return s.errorResponse(id, InvalidParams, invalidInputMessage(err))
	}

	var fetchErr *quote.FetchError
	if errors.As(err, &fetchErr) {
		log.Warn().Err(err).Msg("product page fetch failed")
		return s.textResponse(id, fetchErr.Text(), true)
	}

	return s.internalError(id, err)
}

func (s *Server) internalError(id any, err error) *Response {
	log.Error().Err(err).Msg("find_product_price failed")
	if s.opts.Debug {
		return s.textResponse(id, fmt.Sprintf("Debug error: %v", err), true)
	}
	return s.errorResponse(id, InternalError, internalErrorMessage)
}

// invalidInputMessage strips the sentinel prefix and capitalizes the detail.
func invalidInputMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), quote.ErrInvalidInput.Error()+": ")
	if msg == "" {
		return "Please provide either a product URL or upload an image"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
