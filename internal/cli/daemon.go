package cli

import (
	"context"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/royna2544/tgbotd/antireplay"
	"github.com/royna2544/tgbotd/essentials"
	"github.com/royna2544/tgbotd/events"
	"github.com/royna2544/tgbotd/internal/config"
	"github.com/royna2544/tgbotd/internal/listener"
	"github.com/royna2544/tgbotd/internal/logging"
	"github.com/royna2544/tgbotd/internal/store"
	"github.com/royna2544/tgbotd/internal/telegram"
	"github.com/royna2544/tgbotd/network"
	"github.com/royna2544/tgbotd/stats"
	"github.com/royna2544/tgbotd/tgproto"
)

// runDaemon wires every collaborator from conf and serves every
// configured listener until ctx is cancelled (SIGINT/SIGTERM). Both Run
// and SimpleRun funnel into this once they have a *config.Config.
func runDaemon(conf *config.Config, version string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var logFanout *tgproto.LogFanoutSink
	if conf.LogFanout.Enabled.Get(false) {
		logFanout = tgproto.NewLogFanoutSink(logging.New(os.Stderr, false, false))
	}

	var logger essentials.Logger
	if logFanout != nil {
		logger = logging.New(os.Stderr, conf.Debug.Get(false), true, logFanout)
	} else {
		logger = logging.New(os.Stderr, conf.Debug.Get(false), true)
	}

	logger.Info(conf.String())

	if logFanout != nil {
		logFanoutListener, err := listener.Listen(listener.KindTCP4, conf.LogFanout.BindTo.Get("0.0.0.0:9402"), listener.Opts{})
		if err != nil {
			return fmt.Errorf("cannot bind log fanout listener: %w", err)
		}

		go func() {
			if err := logFanout.Serve(logFanoutListener); err != nil && ctx.Err() == nil {
				logger.WarningError("log fanout listener stopped", err)
			}
		}()

		go func() {
			<-ctx.Done()
			logFanoutListener.Close()
		}()
	}

	tgNetwork, err := buildDaemonNetwork(conf)
	if err != nil {
		return fmt.Errorf("cannot build telegram network: %w", err)
	}

	tg, err := telegram.New(conf.Telegram.APIID, conf.Telegram.APIHash, conf.Telegram.BotToken, "./session", tgNetwork)
	if err != nil {
		return fmt.Errorf("cannot build telegram client: %w", err)
	}

	go func() {
		if err := tg.Run(ctx); err != nil && ctx.Err() == nil {
			logger.WarningError("telegram client stopped", err)
		}
	}()

	st := store.New()

	antiReplay := antireplay.NewStableBloomFilterWithMetrics(
		uint(conf.Defense.AntiReplay.MaxSize.Get(uint64(antireplay.DefaultStableBloomFilterMaxSize))),
		conf.Defense.AntiReplay.ErrorRate.Get(antireplay.DefaultStableBloomFilterErrorRate))

	allowlist, err := tgproto.NewIPList(nil)
	if err != nil {
		return fmt.Errorf("cannot build ip allowlist: %w", err)
	}

	blocklist, err := tgproto.NewIPList(nil)
	if err != nil {
		return fmt.Errorf("cannot build ip blocklist: %w", err)
	}

	var rateLimiter *tgproto.RateLimiter
	if conf.RateLimit.Enabled.Get(false) {
		rateLimiter = tgproto.NewRateLimiter(
			rateLimitFrom(conf.RateLimit.PerSecond.Get(0)),
			int(conf.RateLimit.Burst.Get(1)),
			time.Minute)
	}

	observerFactories := []events.ObserverFactory{}

	var promFactory *stats.PrometheusFactory
	if conf.Stats.Prometheus.Enabled.Get(false) {
		promFactory = stats.NewPrometheus(
			conf.Stats.Prometheus.MetricPrefix.Get("tgbotd"),
			conf.Stats.Prometheus.HTTPPath.Get("/metrics"),
			version)
		observerFactories = append(observerFactories, promFactory.Make)
	}

	stream := events.NewEventStream(observerFactories)

	srv, err := tgproto.NewServer(tgproto.ServerOpts{
		BotAPI:          tg,
		Observer:        st,
		SpamBlock:       st,
		FileSystem:      st,
		AntiReplayCache: antiReplay,
		EventStream:     stream,
		Logger:          logger,
		IPAllowlist:     allowlist,
		IPBlocklist:     blocklist,
		RateLimiter:     rateLimiter,
		Config: &tgproto.ServerConfig{
			HandshakeTimeout:         30 * time.Second,
			ConnectionIdleTimeout:    conf.Session.IdleTimeout.Get(5 * time.Minute),
			SessionTTL:               conf.Session.TTL.Get(tgproto.DefaultSessionTTL),
			MaxDataSize:              conf.Transfer.MaxDataSize.Get(tgproto.DefaultMaxDataSize),
			ChunkedTransferThreshold: conf.Transfer.Threshold.Get(tgproto.ChunkedTransferThreshold),
			DefaultChunkSize:         uint32(conf.Transfer.ChunkSize.Get(uint64(tgproto.DefaultChunkSize))),
		},
	})
	if err != nil {
		return fmt.Errorf("cannot build server: %w", err)
	}

	listeners, err := buildListeners(conf)
	if err != nil {
		return err
	}

	if len(listeners) == 0 {
		return fmt.Errorf("no listeners configured")
	}

	errCh := make(chan error, len(listeners)+1)

	for _, l := range listeners {
		l := l

		go func() {
			logger.Named("listener").BindStr("addr", l.Addr().String()).Info("serving")
			errCh <- srv.Serve(l)
		}()
	}

	if promFactory != nil {
		metricsListener, err := net.Listen("tcp", conf.Stats.Prometheus.BindTo.Get("0.0.0.0:9401"))
		if err != nil {
			return fmt.Errorf("cannot bind prometheus listener: %w", err)
		}

		go func() {
			errCh <- promFactory.Serve(metricsListener)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		srv.Shutdown()

		for _, l := range listeners {
			l.Close()
		}

		if promFactory != nil {
			promFactory.Close()
		}

		return nil
	case err := <-errCh:
		srv.Shutdown()

		if err != nil {
			return fmt.Errorf("listener failed: %w", err)
		}

		return nil
	}
}

func buildListeners(conf *config.Config) ([]net.Listener, error) {
	specs := []struct {
		kind listener.Kind
		addr string
	}{
		{listener.KindTCP4, conf.Listen.TCP4.Get("")},
		{listener.KindTCP6, conf.Listen.TCP6.Get("")},
		{listener.KindUDP4, conf.Listen.UDP4.Get("")},
		{listener.KindUDP6, conf.Listen.UDP6.Get("")},
	}

	var out []net.Listener

	for _, s := range specs {
		if s.addr == "" {
			continue
		}

		enableTFO := s.kind == listener.KindTCP4 || s.kind == listener.KindTCP6

		l, err := listener.Listen(s.kind, s.addr, listener.Opts{EnableTFO: enableTFO})
		if err != nil {
			return nil, fmt.Errorf("cannot listen on %s %s: %w", s.kind, s.addr, err)
		}

		out = append(out, l)
	}

	if conf.Listen.Unix != "" {
		l, err := listener.Listen(listener.KindUnix, conf.Listen.Unix, listener.Opts{})
		if err != nil {
			return nil, fmt.Errorf("cannot listen on unix %s: %w", conf.Listen.Unix, err)
		}

		out = append(out, l)
	}

	return out, nil
}

// buildDaemonNetwork assembles the network.Network the daemon's
// Telegram leg dials through, from conf.Network.* (TGBOTD_PROXY's
// config-file counterpart): TCP Fast Open, an optional upstream proxy
// and DNS-over-HTTPS unless network.dnsMode is "plain". Returns nil
// (no error) when network.proxy and network.dohIp are both empty and
// network.dnsMode is DoH, letting telegram.New fall back to gotd/td's
// own dialer.
func buildDaemonNetwork(conf *config.Config) (network.Network, error) {
	if conf.Network.Proxy == "" && conf.Network.DOHIP == "" && conf.Network.DNSMode.Value() == config.DNSModeDoH {
		return nil, nil //nolint: nilnil
	}

	dialer, err := network.NewDefaultDialerWithTFO(network.DefaultTimeout, 0, true)
	if err != nil {
		return nil, fmt.Errorf("cannot build dialer: %w", err)
	}

	if conf.Network.Proxy != "" {
		proxyURL, err := neturl.Parse(conf.Network.Proxy)
		if err != nil {
			return nil, fmt.Errorf("cannot parse network.proxy: %w", err)
		}

		base := dialer

		if proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h" {
			username := proxyURL.User.Username()
			password, _ := proxyURL.User.Password()
			base = network.NewSOCKS5Dialer(proxyURL.Host, username, password, network.DefaultTimeout)
		}

		dialer = network.NewProxyDialer(base, proxyURL)
	}

	dohIP := conf.Network.DOHIP
	if dohIP == "" {
		dohIP = "1.1.1.1"
	}

	netw, err := network.NewNetworkWithDNSMode(dialer, "tgbotd", dohIP,
		network.DefaultHTTPTimeout, conf.Network.DNSMode.Get(config.DNSModeDoH) == config.DNSModePlain)
	if err != nil {
		return nil, fmt.Errorf("cannot build network: %w", err)
	}

	return netw, nil
}

func rateLimitFrom(perSecond uint) float64 {
	if perSecond == 0 {
		return 1
	}

	return float64(perSecond)
}
