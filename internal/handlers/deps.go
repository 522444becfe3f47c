package handlers

import (
	"github.com/mindbridge-app/mindbridge-backend/internal/config"
	"github.com/mindbridge-app/mindbridge-backend/internal/services"
)

var (
	messaging     *services.MessagingService
	cloudinarySvc *services.CloudinaryService
	cfg           *config.Config
)

// Init wires the handler package's services. Call after the database and
// Redis connections are established.
func Init(c *config.Config, cld *services.CloudinaryService) {
	cfg = c
	messaging = &services.MessagingService{
		Messages: services.NewMongoMessageStore(),
		Blocks:   services.NewMongoBlockStore(),
		Users:    services.NewMongoUserGetter(),
		Notify:   services.Notifications,
	}
	cloudinarySvc = cld
}
