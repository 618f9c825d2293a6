package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeServer(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeS3()
	c.normalizeEvents()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	token, ok := os.LookupEnv("CONVERTO_API_TOKEN")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return nil
	}
	userID := int64(1)
	if raw, ok := os.LookupEnv("CONVERTO_API_USER"); ok && strings.TrimSpace(raw) != "" {
		parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("CONVERTO_API_USER: %w", err)
		}
		userID = parsed
	}
	if c.Server.Tokens == nil {
		c.Server.Tokens = make(map[string]int64)
	}
	if _, exists := c.Server.Tokens[token]; !exists {
		c.Server.Tokens[token] = userID
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = fallback(c.Tools.FFmpeg, defaultFFmpegBinary)
	c.Tools.Magick = fallback(c.Tools.Magick, defaultMagickBinary)
	c.Tools.Soffice = fallback(c.Tools.Soffice, defaultSofficeBinary)
	c.Tools.Rembg = fallback(c.Tools.Rembg, defaultRembgBinary)
	c.Tools.FFprobe = fallback(c.Tools.FFprobe, defaultFFprobeBinary)
}

func (c *Config) normalizeS3() {
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	if c.S3.Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok {
			c.S3.Region = strings.TrimSpace(value)
		}
	}
	c.S3.Endpoint = strings.TrimSpace(c.S3.Endpoint)
}

func (c *Config) normalizeEvents() {
	c.Events.AMQPURL = strings.TrimSpace(c.Events.AMQPURL)
	if c.Events.AMQPURL == "" {
		if value, ok := os.LookupEnv("CONVERTO_AMQP_URL"); ok {
			c.Events.AMQPURL = strings.TrimSpace(value)
		}
	}
	c.Events.Exchange = fallback(c.Events.Exchange, defaultEventsExchange)
	c.Events.RoutingKey = fallback(c.Events.RoutingKey, defaultEventsRoutingKey)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(fallback(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(fallback(c.Logging.Level, defaultLogLevel))
}

func fallback(value, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}
