package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/logger"
	"github.com/tomasagata/extra-api-sub001/model"
)

type DeviceService struct {
	devices  contract.DeviceRepo
	notifier contract.Notifier
	now      contract.Clock
}

func NewDeviceService(devices contract.DeviceRepo, notifier contract.Notifier, now contract.Clock) *DeviceService {
	return &DeviceService{devices: devices, notifier: notifier, now: now}
}

func (s *DeviceService) Register(ctx context.Context, ownerID int64, req model.DeviceRequest) (*model.Device, error) {
	device, err := s.devices.Register(ctx, &model.Device{
		OwnerID:  ownerID,
		Token:    req.Token,
		Platform: model.Platform(req.Platform),
	})
	if err != nil {
		return nil, fmt.Errorf("register device: %w", err)
	}
	return device, nil
}

func (s *DeviceService) Unregister(ctx context.Context, ownerID int64, token string) error {
	if err := s.devices.Unregister(ctx, ownerID, token); err != nil {
		return fmt.Errorf("unregister device: %w", err)
	}
	return nil
}

// Push sends a notification to every device of the user. Users without
// devices are skipped silently.
func (s *DeviceService) Push(ctx context.Context, userID int64, title, body string, data map[string]string) error {
	devices, err := s.devices.Find(ctx, userID)
	if err != nil {
		return fmt.Errorf("find devices: %w", err)
	}
	if len(devices) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.Token)
	}
	n := model.Notification{
		UserID: userID,
		Tokens: tokens,
		Title:  title,
		Body:   body,
		Data:   data,
		SentAt: s.now().UTC().Truncate(time.Second),
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("notify user %d: %w", userID, err)
	}
	log := logger.FromContext(ctx)
	log.Debug().Int64("user_id", userID).Int("devices", len(tokens)).Str("title", title).Msg("notification sent")
	return nil
}
