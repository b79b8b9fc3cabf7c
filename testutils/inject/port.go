// Package inject provides fakes whose behavior can be swapped out per test.
package inject

import (
	"context"
	"sync"

	"go.viam.com/graspplanner/rpc"
)

// Port is an injected port. Every write is recorded.
type Port struct {
	rpc.Port
	NameFunc      func() string
	ConnectedFunc func(ctx context.Context) bool
	WriteFunc     func(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error)
	CloseFunc     func(ctx context.Context) error

	mu     sync.Mutex
	writes []rpc.Bottle
}

// NewPort returns an injected port that is connected and replies with a bare ack.
func NewPort(name string) *Port {
	return &Port{
		Port:          rpc.NewDisconnectedPort(name),
		ConnectedFunc: func(context.Context) bool { return true },
		WriteFunc: func(context.Context, rpc.Bottle) (rpc.Bottle, error) {
			return rpc.NewBottle(rpc.AckToken), nil
		},
	}
}

// Writes returns every command written so far.
func (p *Port) Writes() []rpc.Bottle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]rpc.Bottle(nil), p.writes...)
}

// Name calls the injected Name or the real version.
func (p *Port) Name() string {
	if p.NameFunc == nil {
		return p.Port.Name()
	}
	return p.NameFunc()
}

// Connected calls the injected Connected or the real version.
func (p *Port) Connected(ctx context.Context) bool {
	if p.ConnectedFunc == nil {
		return p.Port.Connected(ctx)
	}
	return p.ConnectedFunc(ctx)
}

// Write calls the injected Write or the real version.
func (p *Port) Write(ctx context.Context, cmd rpc.Bottle) (rpc.Bottle, error) {
	p.mu.Lock()
	p.writes = append(p.writes, cmd)
	p.mu.Unlock()
	if p.WriteFunc == nil {
		return p.Port.Write(ctx, cmd)
	}
	return p.WriteFunc(ctx, cmd)
}

// Close calls the injected Close or the real version.
func (p *Port) Close(ctx context.Context) error {
	if p.CloseFunc == nil {
		return p.Port.Close(ctx)
	}
	return p.CloseFunc(ctx)
}
