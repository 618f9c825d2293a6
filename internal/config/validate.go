package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.Workers < 0 {
		return errors.New("engine.workers must be zero (auto) or positive")
	}
	return ensurePositiveMap(map[string]int{
		"engine.image_timeout":      c.Engine.ImageTimeout,
		"engine.video_timeout":      c.Engine.VideoTimeout,
		"engine.gif_timeout":        c.Engine.GifTimeout,
		"engine.document_timeout":   c.Engine.DocumentTimeout,
		"engine.background_timeout": c.Engine.BackgroundTimeout,
	})
}

func (c *Config) validateLimits() error {
	return ensurePositiveMap(map[string]int{
		"limits.image":             c.Limits.Image,
		"limits.video_audio":       c.Limits.VideoAudio,
		"limits.gif":               c.Limits.Gif,
		"limits.document":          c.Limits.Document,
		"limits.remove_background": c.Limits.RemoveBackground,
		"limits.compress":          c.Limits.Compress,
	})
}

func (c *Config) validateServer() error {
	for token, user := range c.Server.Tokens {
		if strings.TrimSpace(token) == "" {
			return errors.New("server.tokens must not contain empty tokens")
		}
		if user <= 0 {
			return fmt.Errorf("server.tokens: user id for token %s must be positive", redact(token))
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero (disabled) or positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
