package config

import (
	"strconv"

	agollo "github.com/apolloconfig/agollo/v4"
	apconf "github.com/apolloconfig/agollo/v4/env/config"
	"github.com/apolloconfig/agollo/v4/storage"
)

// overrideFromApollo starts the Apollo client and overrides config values if
// present. Returns a closer to stop the Apollo client.
func overrideFromApollo(cfg *Config, store *Store) (func(), error) {
	if cfg.Apollo.Addrs == "" || cfg.Apollo.AppID == "" {
		configLogger.Sugar().Info("apollo: missing APOLLO_ADDRS or APOLLO_APP_ID; skip")
		return nil, nil
	}

	ns := cfg.Apollo.Namespace
	if ns == "" {
		ns = "application"
	}

	appCfg := &apconf.AppConfig{
		AppID:         cfg.Apollo.AppID,
		Cluster:       cfg.Apollo.Cluster,
		NamespaceName: ns,
		IP:            cfg.Apollo.Addrs,
		Secret:        cfg.Apollo.AccessKey,
	}

	client, err := agollo.StartWithConfig(func() (*apconf.AppConfig, error) { return appCfg, nil })
	if err != nil {
		return nil, err
	}

	applyApolloOverrides(client, ns, cfg)
	_ = store.UpdateValidated(cfg, map[string]bool{"apollo.init": true})

	client.AddChangeListener(&apolloListener{ns: ns, client: client, store: store})

	// agollo v4 exposes no Stop API; the closer is a no-op.
	closer := func() {}
	return closer, nil
}

func applyApolloOverrides(client agollo.Client, namespace string, cfg *Config) {
	cache := client.GetConfigCache(namespace)
	if cache == nil {
		return
	}
	getStr := func(key string) (string, bool) {
		v, err := cache.Get(key)
		if err != nil {
			return "", false
		}
		s, _ := v.(string)
		return s, s != ""
	}

	if s, ok := getStr("app.env"); ok {
		cfg.Environment = s
	}
	if s, ok := getStr("server.addr"); ok {
		cfg.Server.Addr = s
	}
	if s, ok := getStr("log.level"); ok {
		cfg.Log.Level = s
	}
	if s, ok := getStr("log.format"); ok {
		cfg.Log.Format = s
	}
	if s, ok := getStr("pg.url"); ok {
		cfg.PG.URL = s
	}
	if s, ok := getStr("pg.max_open"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.PG.MaxOpenConns = n
		}
	}
	if s, ok := getStr("pg.max_idle"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.PG.MaxIdleConns = n
		}
	}
	if s, ok := getStr("rate_limit.max"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.RateLimit.Max = n
		}
	}
	if s, ok := getStr("jwt.secret"); ok {
		cfg.JWT.Secret = s
	}
	if s, ok := getStr("redis.addr"); ok {
		cfg.Redis.Addr = s
	}
	if s, ok := getStr("redis.password"); ok {
		cfg.Redis.Password = s
	}
	if s, ok := getStr("redis.db"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.Redis.DB = n
		}
	}
	if s, ok := getStr("mq.url"); ok {
		cfg.MQ.URL = s
	}
	if s, ok := getStr("es.addrs"); ok {
		cfg.ES.Addrs = s
	}
	if s, ok := getStr("es.username"); ok {
		cfg.ES.Username = s
	}
	if s, ok := getStr("es.password"); ok {
		cfg.ES.Password = s
	}
}

type apolloListener struct {
	ns     string
	client agollo.Client
	store  *Store
}

func (c *apolloListener) OnChange(e *storage.ChangeEvent) {
	configLogger.Sugar().Infof("apollo change: namespace=%s, changes=%d", e.Namespace, len(e.Changes))
	cur := c.store.Get()
	next := cloneConfig(cur)
	applyApolloOverrides(c.client, c.ns, next)
	changed := map[string]bool{}
	for k := range e.Changes {
		changed[k] = true
	}
	_ = c.store.UpdateValidated(next, changed)
}

func (c *apolloListener) OnNewestChange(e *storage.FullChangeEvent) {
	configLogger.Sugar().Debugf("apollo full sync: namespace=%s", e.Namespace)
}
