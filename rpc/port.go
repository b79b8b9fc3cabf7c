package rpc

import (
	"context"

	"github.com/pkg/errors"
	commonpb "go.viam.com/api/common/v1"
	genericpb "go.viam.com/api/service/generic/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// BottleKey is the DoCommand field carrying a bottle in both directions.
const BottleKey = "bottle"

var (
	// ErrNotConnected is returned when a port has no live link to its collaborator.
	ErrNotConnected = errors.New("no connection")
	// ErrMalformedReply is returned when a reply does not have the expected shape.
	ErrMalformedReply = errors.New("malformed reply")
)

// A Port is a request/response channel to a single remote collaborator.
type Port interface {
	// Name is the local name of the port, used in logs.
	Name() string
	// Connected reports whether the port currently has a live output connection. It never blocks
	// waiting for one.
	Connected(ctx context.Context) bool
	// Write sends cmd and waits for the reply.
	Write(ctx context.Context, cmd Bottle) (Bottle, error)
	// Close releases the connection.
	Close(ctx context.Context) error
}

// genericPort talks to a generic service resource over gRPC, wrapping bottles in DoCommand.
type genericPort struct {
	name     string
	resource string
	conn     *grpc.ClientConn
	client   genericpb.GenericServiceClient
}

// NewGenericPort creates a port to the named generic service resource served at address.
// The connection is established lazily.
func NewGenericPort(name, address, resource string, opts ...grpc.DialOption) (Port, error) {
	if address == "" {
		return NewDisconnectedPort(name), nil
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "creating port %q to %s", name, address)
	}
	return &genericPort{
		name:     name,
		resource: resource,
		conn:     conn,
		client:   genericpb.NewGenericServiceClient(conn),
	}, nil
}

func (p *genericPort) Name() string {
	return p.name
}

func (p *genericPort) Connected(ctx context.Context) bool {
	state := p.conn.GetState()
	if state == connectivity.Idle {
		p.conn.Connect()
	}
	return state != connectivity.TransientFailure && state != connectivity.Shutdown
}

func (p *genericPort) Write(ctx context.Context, cmd Bottle) (Bottle, error) {
	command, err := structpb.NewStruct(map[string]interface{}{BottleKey: toWire(cmd)})
	if err != nil {
		return nil, errors.Wrapf(err, "encoding command for %q", p.name)
	}
	resp, err := p.client.DoCommand(ctx, &commonpb.DoCommandRequest{Name: p.resource, Command: command})
	if err != nil {
		return nil, errors.Wrapf(err, "writing to %q", p.name)
	}
	return DecodeBottle(resp.GetResult().AsMap())
}

func (p *genericPort) Close(ctx context.Context) error {
	return p.conn.Close()
}

// DecodeBottle extracts the bottle field of a DoCommand map.
func DecodeBottle(m map[string]interface{}) (Bottle, error) {
	raw, ok := m[BottleKey]
	if !ok {
		return nil, errors.Wrapf(ErrMalformedReply, "missing %q field", BottleKey)
	}
	values, ok := raw.([]interface{})
	if !ok {
		return nil, errors.Wrapf(ErrMalformedReply, "%q field is %T, not a list", BottleKey, raw)
	}
	return fromWire(values), nil
}

// EncodeBottle is the inverse of DecodeBottle.
func EncodeBottle(b Bottle) map[string]interface{} {
	return map[string]interface{}{BottleKey: toWire(b)}
}

type disconnectedPort struct {
	name string
}

// NewDisconnectedPort returns a port for a collaborator that is not configured. It is never connected.
func NewDisconnectedPort(name string) Port {
	return &disconnectedPort{name: name}
}

func (p *disconnectedPort) Name() string                   { return p.name }
func (p *disconnectedPort) Connected(context.Context) bool { return false }
func (p *disconnectedPort) Close(context.Context) error    { return nil }

func (p *disconnectedPort) Write(context.Context, Bottle) (Bottle, error) {
	return nil, errors.Wrapf(ErrNotConnected, "port %q", p.name)
}

// ExpectAck fails unless the reply's first element is the ack token.
func ExpectAck(reply Bottle) error {
	if reply.Size() < 1 {
		return errors.Wrap(ErrMalformedReply, "empty reply")
	}
	if !reply.IsVocab(0, AckToken) {
		return errors.Wrapf(ErrMalformedReply, "not acknowledged: %s", reply.Text())
	}
	return nil
}
