package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/gotd/td/tg"
	"github.com/mdp/qrterminal/v3"

	"github.com/blockedby/listingbot/internal/config"
	"github.com/blockedby/listingbot/internal/logger"
)

// ErrNotConfigured is returned when API credentials are missing.
var ErrNotConfigured = errors.New("telegram: TG_API_ID and TG_API_HASH are required")

// Client is a user-account MTProto connection delivering updates.
type Client struct {
	client     *telegram.Client
	dispatcher tg.UpdateDispatcher
	loginToken chan struct{}
	updates    *Updates
	qrOut      io.Writer
	log        *logger.Logger
}

// NewClient creates a client persisting its session to cfg.TGSessionFile.
func NewClient(cfg *config.Config, updates *Updates, log *logger.Logger) (*Client, error) {
	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		return nil, ErrNotConfigured
	}
	if err := os.MkdirAll(filepath.Dir(cfg.TGSessionFile), 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	// NewUpdateDispatcher initializes the handler maps.
	c := &Client{
		dispatcher: tg.NewUpdateDispatcher(),
		updates:    updates,
		qrOut:      os.Stdout,
		log:        log,
	}
	updates.Register(c.dispatcher)
	c.loginToken = qrlogin.OnLoginToken(&c.dispatcher)

	c.client = telegram.NewClient(cfg.TGApiID, cfg.TGApiHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.TGSessionFile},
		UpdateHandler:  &c.dispatcher,
	})

	return c, nil
}

// Run connects, logs in by QR code when the session is not authorized
// and blocks until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	return c.client.Run(ctx, func(ctx context.Context) error {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			if err := c.loginQR(ctx); err != nil {
				return err
			}
		}

		self, err := c.client.Self(ctx)
		if err != nil {
			return fmt.Errorf("get self: %w", err)
		}
		c.updates.SetSelfID(self.ID)
		c.log.Info().
			Int64("id", self.ID).
			Str("username", self.Username).
			Msg("telegram: client is ready")

		<-ctx.Done()
		return ctx.Err()
	})
}

func (c *Client) loginQR(ctx context.Context) error {
	c.log.Info().Msg("telegram: session not authorized, starting QR login")

	_, err := c.client.QR().Auth(ctx, c.loginToken, func(_ context.Context, token qrlogin.Token) error {
		c.log.Info().Time("expires", token.Expires()).Msg("telegram: scan the QR code with the Telegram app")
		qrterminal.GenerateHalfBlock(token.URL(), qrterminal.L, c.qrOut)
		return nil
	})
	if err != nil {
		return fmt.Errorf("qr login: %w", err)
	}

	c.log.Info().Msg("telegram: QR login succeeded")
	return nil
}
