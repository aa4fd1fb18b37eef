package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/tradepost/catalog-server/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the shared
// response envelope. Errors become {"success": false, "error": {...}}.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.Fail(body.Code, body.Message, body.Details), nil
	case *huma.ErrorModel:
		return response.Fail(string(response.CodeForStatus(body.Status)), body.Detail, body.Errors), nil
	}
	return response.Wrap(v), nil
}
