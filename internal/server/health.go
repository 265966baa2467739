package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// HealthServer reports serving status over gRPC and over HTTP.
type HealthServer struct {
	*grpc.Server
	health *health.Server
}

func NewHealthServer(logger logrus.FieldLogger) *HealthServer {
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger)))
	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, h)

	return &HealthServer{
		Server: srv,
		health: h,
	}
}

// Shutdown reports NOT_SERVING to watchers before stopping the server.
func (s *HealthServer) Shutdown() {
	s.health.Shutdown()
	s.GracefulStop()
}

func (s *HealthServer) Check(c *fiber.Ctx) error {
	resp, err := s.health.Check(c.UserContext(), &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return err
	}

	code := fiber.StatusOK
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status": resp.Status.String(),
	})
}

func LoggingInterceptor(logger logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		entry := logger.
			WithField("method", info.FullMethod).
			WithField("code", status.Code(err).String()).
			WithField("duration", time.Since(start).String())
		if err != nil {
			entry.WithError(err).Warn("grpc request failed")
		} else {
			entry.Debug("grpc request handled")
		}
		return resp, err
	}
}
