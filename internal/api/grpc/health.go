// Package grpc exposes the metastore's liveness over the standard gRPC
// health checking protocol.
package grpc

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/arkilian/infoschema/internal/metastore"
)

// ServiceName is the health service name reported for the information schema.
const ServiceName = "arkilian.infoschema"

// HealthReporter pings the metastore and publishes the result as the
// serving status of ServiceName and of the server as a whole.
type HealthReporter struct {
	reader   metastore.Reader
	server   *health.Server
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	serving bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewHealthReporter creates a reporter that checks every interval.
func NewHealthReporter(reader metastore.Reader, interval time.Duration) *HealthReporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{
		reader:   reader,
		server:   hs,
		interval: interval,
		timeout:  interval / 2,
	}
}

// Register installs the health service on s.
func (h *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Check pings the metastore once and updates the serving status.
func (h *HealthReporter) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.reader.Ping(ctx)
	serving := err == nil

	h.mu.Lock()
	changed := serving != h.serving
	h.serving = serving
	h.mu.Unlock()

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus(ServiceName, status)
	h.server.SetServingStatus("", status)

	if changed {
		if serving {
			log.Printf("grpc health: %s is serving", ServiceName)
		} else {
			log.Printf("grpc health: %s is not serving: %v", ServiceName, err)
		}
	}
	return serving
}

// Start runs Check immediately and then every interval until Stop.
func (h *HealthReporter) Start(ctx context.Context) {
	h.mu.Lock()
	if h.stopCh != nil {
		h.mu.Unlock()
		return
	}
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})
	stopCh, doneCh := h.stopCh, h.doneCh
	h.mu.Unlock()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		h.Check(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				h.Check(ctx)
			}
		}
	}()
}

// Stop halts the periodic check and marks every service NOT_SERVING.
func (h *HealthReporter) Stop() {
	h.mu.Lock()
	stopCh, doneCh := h.stopCh, h.doneCh
	h.stopCh, h.doneCh = nil, nil
	h.serving = false
	h.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
	h.server.Shutdown()
}

// RequestIDInterceptor echoes an x-request-id header on every unary call,
// generating one when the client sent none.
func RequestIDInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	requestID := extractRequestID(ctx)
	grpc.SetHeader(ctx, metadata.Pairs("x-request-id", requestID))
	return handler(ctx, req)
}

func extractRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get("x-request-id"); len(ids) > 0 {
			return ids[0]
		}
	}
	return uuid.New().String()
}
