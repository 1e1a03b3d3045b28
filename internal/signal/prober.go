package signal

import (
	"context"
	"sync"
	"time"

	platformgrpc "github.com/wordtrail/wordtrail/internal/platform/grpc"
	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthProber checks backend reachability through the gRPC health service.
// The connection is dialed lazily on first probe and reused afterwards.
type HealthProber struct {
	addr        string
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *gogrpc.ClientConn
}

// NewHealthProber creates a prober against the backend health endpoint.
func NewHealthProber(addr string, dialTimeout time.Duration) *HealthProber {
	return &HealthProber{addr: addr, dialTimeout: dialTimeout}
}

// Probe reports whether the backend health check answers SERVING.
func (p *HealthProber) Probe(ctx context.Context) bool {
	conn := p.connection(ctx)
	if conn == nil {
		return false
	}

	client := grpc_health_v1.NewHealthClient(conn)
	response, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return false
	}
	return response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
}

// Close releases the probe connection.
func (p *HealthProber) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	conn := p.conn
	p.conn = nil
	return conn.Close()
}

func (p *HealthProber) connection(ctx context.Context) *gogrpc.ClientConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn
	}

	conn, err := platformgrpc.DialWithHealth(
		ctx,
		nil,
		p.addr,
		p.dialTimeout,
		nil,
		platformgrpc.DefaultClientDialOptions()...,
	)
	if err != nil {
		return nil
	}
	p.conn = conn
	return conn
}
