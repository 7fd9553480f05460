// Package apiconnect wires the receiptsplit.v1.SplitService messages in
// package api to Connect handlers and clients.
package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/receiptsplit/pkg/api"
)

// SplitServiceName is the fully-qualified name of the SplitService service.
const SplitServiceName = "receiptsplit.v1.SplitService"

// Procedure paths, in the form "/service/method".
const (
	SplitServiceCalculateProcedure        = "/receiptsplit.v1.SplitService/Calculate"
	SplitServiceCheckReceiptProcedure     = "/receiptsplit.v1.SplitService/CheckReceipt"
	SplitServiceCreateSessionProcedure    = "/receiptsplit.v1.SplitService/CreateSession"
	SplitServiceGetSessionProcedure       = "/receiptsplit.v1.SplitService/GetSession"
	SplitServiceUpdateSessionProcedure    = "/receiptsplit.v1.SplitService/UpdateSession"
	SplitServiceCalculateSessionProcedure = "/receiptsplit.v1.SplitService/CalculateSession"
	SplitServiceDeleteSessionProcedure    = "/receiptsplit.v1.SplitService/DeleteSession"
)

// PublicProcedures can be called without a session token.
var PublicProcedures = []string{
	SplitServiceCalculateProcedure,
	SplitServiceCheckReceiptProcedure,
	SplitServiceCreateSessionProcedure,
}

// SplitServiceHandler is implemented by the server.
type SplitServiceHandler interface {
	Calculate(context.Context, *connect.Request[api.CalculateRequest]) (*connect.Response[api.CalculateResponse], error)
	CheckReceipt(context.Context, *connect.Request[api.CheckReceiptRequest]) (*connect.Response[api.CheckReceiptResponse], error)
	CreateSession(context.Context, *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.CreateSessionResponse], error)
	GetSession(context.Context, *connect.Request[api.GetSessionRequest]) (*connect.Response[api.GetSessionResponse], error)
	UpdateSession(context.Context, *connect.Request[api.UpdateSessionRequest]) (*connect.Response[api.UpdateSessionResponse], error)
	CalculateSession(context.Context, *connect.Request[api.CalculateSessionRequest]) (*connect.Response[api.CalculateResponse], error)
	DeleteSession(context.Context, *connect.Request[api.DeleteSessionRequest]) (*connect.Response[api.DeleteSessionResponse], error)
}

// NewSplitServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewSplitServiceHandler(svc SplitServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	options := append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	handlers := map[string]http.Handler{
		SplitServiceCalculateProcedure:        connect.NewUnaryHandler(SplitServiceCalculateProcedure, svc.Calculate, options...),
		SplitServiceCheckReceiptProcedure:     connect.NewUnaryHandler(SplitServiceCheckReceiptProcedure, svc.CheckReceipt, options...),
		SplitServiceCreateSessionProcedure:    connect.NewUnaryHandler(SplitServiceCreateSessionProcedure, svc.CreateSession, options...),
		SplitServiceGetSessionProcedure:       connect.NewUnaryHandler(SplitServiceGetSessionProcedure, svc.GetSession, options...),
		SplitServiceUpdateSessionProcedure:    connect.NewUnaryHandler(SplitServiceUpdateSessionProcedure, svc.UpdateSession, options...),
		SplitServiceCalculateSessionProcedure: connect.NewUnaryHandler(SplitServiceCalculateSessionProcedure, svc.CalculateSession, options...),
		SplitServiceDeleteSessionProcedure:    connect.NewUnaryHandler(SplitServiceDeleteSessionProcedure, svc.DeleteSession, options...),
	}
	return "/" + SplitServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// UnimplementedSplitServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedSplitServiceHandler struct{}

func (UnimplementedSplitServiceHandler) Calculate(context.Context, *connect.Request[api.CalculateRequest]) (*connect.Response[api.CalculateResponse], error) {
	return nil, unimplemented("Calculate")
}

func (UnimplementedSplitServiceHandler) CheckReceipt(context.Context, *connect.Request[api.CheckReceiptRequest]) (*connect.Response[api.CheckReceiptResponse], error) {
	return nil, unimplemented("CheckReceipt")
}

func (UnimplementedSplitServiceHandler) CreateSession(context.Context, *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.CreateSessionResponse], error) {
	return nil, unimplemented("CreateSession")
}

func (UnimplementedSplitServiceHandler) GetSession(context.Context, *connect.Request[api.GetSessionRequest]) (*connect.Response[api.GetSessionResponse], error) {
	return nil, unimplemented("GetSession")
}

func (UnimplementedSplitServiceHandler) UpdateSession(context.Context, *connect.Request[api.UpdateSessionRequest]) (*connect.Response[api.UpdateSessionResponse], error) {
	return nil, unimplemented("UpdateSession")
}

func (UnimplementedSplitServiceHandler) CalculateSession(context.Context, *connect.Request[api.CalculateSessionRequest]) (*connect.Response[api.CalculateResponse], error) {
	return nil, unimplemented("CalculateSession")
}

func (UnimplementedSplitServiceHandler) DeleteSession(context.Context, *connect.Request[api.DeleteSessionRequest]) (*connect.Response[api.DeleteSessionResponse], error) {
	return nil, unimplemented("DeleteSession")
}

func unimplemented(method string) error {
	return connect.NewError(connect.CodeUnimplemented, errors.New(SplitServiceName+"."+method+" is not implemented"))
}

// SplitServiceClient is a client for the receiptsplit.v1.SplitService service.
type SplitServiceClient interface {
	Calculate(context.Context, *connect.Request[api.CalculateRequest]) (*connect.Response[api.CalculateResponse], error)
	CheckReceipt(context.Context, *connect.Request[api.CheckReceiptRequest]) (*connect.Response[api.CheckReceiptResponse], error)
	CreateSession(context.Context, *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.CreateSessionResponse], error)
	GetSession(context.Context, *connect.Request[api.GetSessionRequest]) (*connect.Response[api.GetSessionResponse], error)
	UpdateSession(context.Context, *connect.Request[api.UpdateSessionRequest]) (*connect.Response[api.UpdateSessionResponse], error)
	CalculateSession(context.Context, *connect.Request[api.CalculateSessionRequest]) (*connect.Response[api.CalculateResponse], error)
	DeleteSession(context.Context, *connect.Request[api.DeleteSessionRequest]) (*connect.Response[api.DeleteSessionResponse], error)
}

// NewSplitServiceClient constructs a client for the SplitService. baseURL is
// the server root, e.g. "http://localhost:8080".
func NewSplitServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SplitServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	options := append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &splitServiceClient{
		calculate:        connect.NewClient[api.CalculateRequest, api.CalculateResponse](httpClient, baseURL+SplitServiceCalculateProcedure, options...),
		checkReceipt:     connect.NewClient[api.CheckReceiptRequest, api.CheckReceiptResponse](httpClient, baseURL+SplitServiceCheckReceiptProcedure, options...),
		createSession:    connect.NewClient[api.CreateSessionRequest, api.CreateSessionResponse](httpClient, baseURL+SplitServiceCreateSessionProcedure, options...),
		getSession:       connect.NewClient[api.GetSessionRequest, api.GetSessionResponse](httpClient, baseURL+SplitServiceGetSessionProcedure, options...),
		updateSession:    connect.NewClient[api.UpdateSessionRequest, api.UpdateSessionResponse](httpClient, baseURL+SplitServiceUpdateSessionProcedure, options...),
		calculateSession: connect.NewClient[api.CalculateSessionRequest, api.CalculateResponse](httpClient, baseURL+SplitServiceCalculateSessionProcedure, options...),
		deleteSession:    connect.NewClient[api.DeleteSessionRequest, api.DeleteSessionResponse](httpClient, baseURL+SplitServiceDeleteSessionProcedure, options...),
	}
}

type splitServiceClient struct {
	calculate        *connect.Client[api.CalculateRequest, api.CalculateResponse]
	checkReceipt     *connect.Client[api.CheckReceiptRequest, api.CheckReceiptResponse]
	createSession    *connect.Client[api.CreateSessionRequest, api.CreateSessionResponse]
	getSession       *connect.Client[api.GetSessionRequest, api.GetSessionResponse]
	updateSession    *connect.Client[api.UpdateSessionRequest, api.UpdateSessionResponse]
	calculateSession *connect.Client[api.CalculateSessionRequest, api.CalculateResponse]
	deleteSession    *connect.Client[api.DeleteSessionRequest, api.DeleteSessionResponse]
}

func (c *splitServiceClient) Calculate(ctx context.Context, req *connect.Request[api.CalculateRequest]) (*connect.Response[api.CalculateResponse], error) {
	return c.calculate.CallUnary(ctx, req)
}

func (c *splitServiceClient) CheckReceipt(ctx context.Context, req *connect.Request[api.CheckReceiptRequest]) (*connect.Response[api.CheckReceiptResponse], error) {
	return c.checkReceipt.CallUnary(ctx, req)
}

func (c *splitServiceClient) CreateSession(ctx context.Context, req *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.CreateSessionResponse], error) {
	return c.createSession.CallUnary(ctx, req)
}

func (c *splitServiceClient) GetSession(ctx context.Context, req *connect.Request[api.GetSessionRequest]) (*connect.Response[api.GetSessionResponse], error) {
	return c.getSession.CallUnary(ctx, req)
}

func (c *splitServiceClient) UpdateSession(ctx context.Context, req *connect.Request[api.UpdateSessionRequest]) (*connect.Response[api.UpdateSessionResponse], error) {
	return c.updateSession.CallUnary(ctx, req)
}

func (c *splitServiceClient) CalculateSession(ctx context.Context, req *connect.Request[api.CalculateSessionRequest]) (*connect.Response[api.CalculateResponse], error) {
	return c.calculateSession.CallUnary(ctx, req)
}

func (c *splitServiceClient) DeleteSession(ctx context.Context, req *connect.Request[api.DeleteSessionRequest]) (*connect.Response[api.DeleteSessionResponse], error) {
	return c.deleteSession.CallUnary(ctx, req)
}
