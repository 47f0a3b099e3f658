package sender

import (
	"fmt"
	"strings"

	"devicemonitor/internal/config"
	"devicemonitor/internal/logger"
)

// NewSender creates a Sender based on the configuration.
func NewSender(cfg *config.Config) (Sender, error) {
	log := logger.WithComponent("sender-factory")

	senderType := strings.ToLower(cfg.SenderType)
	if senderType == "" {
		senderType = config.SenderFile
	}

	log.Info().
		Str("sender_type", senderType).
		Msg("Creating sender")

	switch senderType {
	case config.SenderKafka:
		return NewKafkaSender(cfg.Kafka, cfg.SOCKSProxy)
	case config.SenderRedis:
		return NewRedisSender(cfg.Redis, cfg.SOCKSProxy)
	case config.SenderFile:
		return NewFileSender(cfg.File)
	default:
		return nil, fmt.Errorf("unknown sender type: %s (supported: file, kafka, redis)", senderType)
	}
}
