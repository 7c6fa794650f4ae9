package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/whatsapp"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/repositories"
)

// InstanceStatus is what the dashboard shows for a business number.
type InstanceStatus struct {
	InstanceName string `json:"instance_name"`
	State        string `json:"state"`
	Owner        string `json:"owner,omitempty"`
}

// InstanceService pairs business numbers through a remote gateway.
type InstanceService struct {
	businesses repositories.BusinessRepo
	manager    whatsapp.InstanceManager
	webhookURL string
}

// NewInstanceService registers webhookURL on every instance it connects.
func NewInstanceService(businesses repositories.BusinessRepo, manager whatsapp.InstanceManager, webhookURL string) *InstanceService {
	return &InstanceService{businesses: businesses, manager: manager, webhookURL: webhookURL}
}

// Connect returns the pairing QR as PNG, nil once the number is paired.
func (s *InstanceService) Connect(ctx context.Context, businessID uuid.UUID) ([]byte, InstanceStatus, error) {
	inst, err := s.businesses.GetInstanceByBusiness(ctx, businessID)
	if err != nil {
		return nil, InstanceStatus{}, err
	}

	qr, state, err := s.manager.Connect(ctx, inst.InstanceName)
	if err != nil {
		return nil, InstanceStatus{}, fmt.Errorf("connect %s: %w", inst.InstanceName, err)
	}

	if err := s.manager.SetWebhook(ctx, inst.InstanceName, s.webhookURL); err != nil {
		log.Warn().Err(err).Str("instance", inst.InstanceName).Msg("⚠️ Failed to register webhook")
	}
	if err := s.businesses.UpdateInstanceStatus(ctx, inst.ID, state); err != nil {
		log.Warn().Err(err).Str("instance", inst.InstanceName).Msg("⚠️ Failed to store instance status")
	}

	return qr, InstanceStatus{InstanceName: inst.InstanceName, State: state}, nil
}

// Status asks the gateway for the live state and caches it on the instance.
func (s *InstanceService) Status(ctx context.Context, businessID uuid.UUID) (InstanceStatus, error) {
	inst, err := s.businesses.GetInstanceByBusiness(ctx, businessID)
	if err != nil {
		return InstanceStatus{}, err
	}

	state, owner, err := s.manager.State(ctx, inst.InstanceName)
	if err != nil {
		return InstanceStatus{}, fmt.Errorf("state of %s: %w", inst.InstanceName, err)
	}

	if state != inst.Status {
		if err := s.businesses.UpdateInstanceStatus(ctx, inst.ID, state); err != nil {
			log.Warn().Err(err).Str("instance", inst.InstanceName).Msg("⚠️ Failed to store instance status")
		}
	}
	return InstanceStatus{InstanceName: inst.InstanceName, State: state, Owner: owner}, nil
}
