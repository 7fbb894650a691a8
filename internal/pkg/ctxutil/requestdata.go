package ctxutil

import "context"

type requestDataKey struct{}

// RequestData carries the authenticated identity for one request.
// It is attached once by the auth middleware and never re-derived downstream.
type RequestData struct {
	UserID      string
	TokenString string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	rd, ok := ctx.Value(requestDataKey{}).(*RequestData)
	if !ok {
		return nil
	}
	return rd
}
