package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"quire/internal/config"
	"quire/internal/queue"
)

type commandContext struct {
	addrFlag   *string
	tokenFlag  *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, tokenFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		tokenFlag:  tokenFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiAddr(cfg *config.Config) string {
	if c.addrFlag != nil && strings.TrimSpace(*c.addrFlag) != "" {
		return strings.TrimSpace(*c.addrFlag)
	}
	if cfg != nil {
		return cfg.Paths.APIBind
	}
	return ""
}

func (c *commandContext) apiToken(cfg *config.Config) string {
	if c.tokenFlag != nil && strings.TrimSpace(*c.tokenFlag) != "" {
		return strings.TrimSpace(*c.tokenFlag)
	}
	if cfg != nil {
		return cfg.Paths.APIToken
	}
	return ""
}

// dialClient probes the daemon API and returns a client when it responds.
// A nil return means the daemon is unreachable and callers should fall back
// to direct store access.
func (c *commandContext) dialClient(cfg *config.Config) *apiClient {
	addr := c.apiAddr(cfg)
	if addr == "" {
		return nil
	}
	client := newAPIClient(addr, c.apiToken(cfg))
	probeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(probeCtx); err != nil {
		return nil
	}
	return client
}

// withQueue runs fn against the live daemon when one is reachable, and
// otherwise against the durable store directly. Exactly one of the two
// arguments is non-nil.
func (c *commandContext) withQueue(fn func(client *apiClient, store *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	if client := c.dialClient(cfg); client != nil {
		return fn(client, nil)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(nil, store)
}
