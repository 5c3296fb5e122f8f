package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dishankoza/svcsync/internal/dispatch"
	"github.com/dishankoza/svcsync/internal/hlc"
	"github.com/dishankoza/svcsync/internal/registry"
)

// Client calls the registry service of a remote node.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to addr without transport security. Extra options are
// appended after the insecure credentials.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Lookup returns the node's record for name.
func (c *Client) Lookup(ctx context.Context, name string) (registry.Service, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodLookup, wrapperspb.String(name), out); err != nil {
		return registry.Service{}, err
	}
	var svc registry.Service
	err := fromStruct(out, &svc)
	return svc, err
}

// Touch dispatches a request for name on the node.
func (c *Client) Touch(ctx context.Context, name string) (dispatch.Result, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodTouch, wrapperspb.String(name), out); err != nil {
		return dispatch.Result{}, err
	}
	var res dispatch.Result
	err := fromStruct(out, &res)
	return res, err
}

// Now asks the node for a fresh timestamp.
func (c *Client) Now(ctx context.Context) (hlc.Timestamp, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, methodNow, &emptypb.Empty{}, out); err != nil {
		return hlc.Timestamp{}, err
	}
	return hlc.ParseTimestamp(out.GetValue())
}

// Observe merges ts into the node's clock and returns the merged timestamp.
func (c *Client) Observe(ctx context.Context, ts hlc.Timestamp) (hlc.Timestamp, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, methodObserve, wrapperspb.String(ts.Encode()), out); err != nil {
		return hlc.Timestamp{}, err
	}
	return hlc.ParseTimestamp(out.GetValue())
}
