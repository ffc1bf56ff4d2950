package consul

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	consul "github.com/hashicorp/consul/api"
	"github.com/oakline-labs/orderproc/internal/discovery"
)

type Registry struct {
	client *consul.Client
	logger *slog.Logger
}

// NewRegistry dials the consul agent at addr. logger is the injected
// per-component logger (spec §3a); Registry never logs through a
// package-level global.
func NewRegistry(addr string, logger *slog.Logger) (*Registry, error) {
	config := consul.DefaultConfig()
	config.Address = addr

	client, err := consul.NewClient(config)
	if err != nil {
		return nil, err
	}

	return &Registry{client: client, logger: logger}, nil
}

func (r *Registry) Register(ctx context.Context, instanceID, serviceName, hostPort string) error {
	parts := strings.Split(hostPort, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid hostPort format")
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return err
	}

	return r.client.Agent().ServiceRegister(&consul.AgentServiceRegistration{
		ID:      instanceID,
		Name:    serviceName,
		Address: parts[0],
		Port:    port,
		Check: &consul.AgentServiceCheck{
			CheckID:                        instanceID,
			TLSSkipVerify:                 true,
			TTL:                           "5s",
			DeregisterCriticalServiceAfter: "10s",
		},
	})
}

func (r *Registry) Deregister(ctx context.Context, instanceID, serviceName string) error {
	r.logger.Info("deregistering service", slog.String("service", serviceName), slog.String("instance_id", instanceID))
	return r.client.Agent().ServiceDeregister(instanceID)
}

func (r *Registry) Discover(ctx context.Context, serviceName string) ([]string, error) {
	services, _, err := r.client.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return nil, err
	}

	var addresses []string
	for _, service := range services {
		addresses = append(addresses, fmt.Sprintf("%s:%d",
			service.Service.Address, service.Service.Port))
	}

	return addresses, nil
}

func (r *Registry) HealthCheck(instanceID, serviceName string) error {
	return r.client.Agent().UpdateTTL(instanceID, "online", consul.HealthPassing)
}

var _ discovery.Registry = (*Registry)(nil)
