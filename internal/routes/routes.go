package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jenga-hub/jenga/internal/config"
	"github.com/jenga-hub/jenga/internal/directory"
	"github.com/jenga-hub/jenga/internal/middleware"
	"github.com/jenga-hub/jenga/internal/notification"
	"github.com/jenga-hub/jenga/internal/otp"
	"github.com/jenga-hub/jenga/internal/registration"
	"github.com/jenga-hub/jenga/internal/session"
)

// Deps aggregates shared dependencies required to wire routes. Gateway and
// Directory override the configured providers when set.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Logger    *slog.Logger
	Gateway   otp.Gateway
	Directory directory.Directory
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	codec, err := session.NewCodec([]byte(d.Cfg.JWTSecret), d.Cfg.SessionTTL)
	if err != nil {
		return err
	}
	gateway, err := buildGateway(d)
	if err != nil {
		return err
	}
	members, err := buildDirectory(d)
	if err != nil {
		return err
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cfg.IsDev() {
		// Plain text access log in the format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}

	RegisterHealthRoutes(app, d)

	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	flow := registration.NewFlow(codec, gateway, members, d.Logger)
	RegisterRegistrationRoutes(app, registration.NewHandler(flow), codec, idempotency)

	return nil
}

func buildGateway(d Deps) (otp.Gateway, error) {
	if d.Gateway != nil {
		return d.Gateway, nil
	}
	switch d.Cfg.OTPProvider {
	case config.OTPProviderMSG91:
		return otp.NewMSG91Client(d.Cfg.MSG91AuthKey, d.Cfg.MSG91TemplateID, d.Cfg.MSG91BaseURL, d.Cfg.PhoneRegion), nil
	case config.OTPProviderLocal:
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when OTP_PROVIDER=%s", d.Cfg.OTPProvider)
		}
		notifier := notification.NewLoggerNotifier(d.Logger)
		return otp.NewLocalGateway(d.Cache, notifier, registration.OTPLength, d.Cfg.OTPTTL), nil
	default:
		return nil, fmt.Errorf("unknown OTP_PROVIDER %q", d.Cfg.OTPProvider)
	}
}

func buildDirectory(d Deps) (directory.Directory, error) {
	members := d.Directory
	if members == nil {
		switch d.Cfg.DirectoryProvider {
		case config.DirectoryAirtable:
			members = directory.NewAirtable(d.Cfg.AirtableAPIKey, d.Cfg.AirtableBaseKey, d.Cfg.AirtableTable, d.Cfg.AirtableBaseURL)
		case config.DirectoryPostgres:
			if d.DB == nil {
				return nil, fmt.Errorf("database is required when DIRECTORY_PROVIDER=%s", d.Cfg.DirectoryProvider)
			}
			members = directory.NewPostgres(d.DB)
		case config.DirectoryMemory:
			members = directory.NewMemory()
		default:
			return nil, fmt.Errorf("unknown DIRECTORY_PROVIDER %q", d.Cfg.DirectoryProvider)
		}
	}
	if d.Cache != nil {
		members = directory.NewCached(members, d.Cache, d.Cfg.ListCacheTTL, d.Logger)
	}
	return members, nil
}
