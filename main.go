package main

import (
	"bytes"
	"flag"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	log "github.com/sirupsen/logrus"

	"tomato-exporter/internal/collector"
	"tomato-exporter/internal/config"
	"tomato-exporter/internal/metrics"
)

// single device can be defined via CLI flags, multiple via config file.
var (
	address     = flag.String("address", "", "address of the router to monitor")
	configFile  = flag.String("config-file", "", "config file to load")
	device      = flag.String("device", "", "single device to monitor")
	insecure    = flag.Bool("insecure", false, "skips verification of server certificate when using TLS (not recommended)")
	logFormat   = flag.String("log-format", "json", "logformat text or json (default json)")
	logLevel    = flag.String("log-level", "info", "log level")
	metricsPath = flag.String("path", "/metrics", "path to answer requests on")
	password    = flag.String("password", "", "password for authentication for single device")
	deviceport  = flag.String("deviceport", "80", "web console port for single device")
	port        = flag.String("port", ":9744", "port number to listen on")
	timeout     = flag.Duration("timeout", collector.DefaultTimeout, "timeout per console request")
	tls         = flag.Bool("tls", false, "use tls to connect to routers")
	user        = flag.String("user", "", "user for authentication with single device")
	feats       = flag.String("features", "", "comma-separated collector features")
	ver         = flag.Bool("version", false, "find the version of binary")

	cfg *config.Config

	appVersion = "DEVELOPMENT"
	shortSha   = "0xDEADBEEF"
)

func main() {
	flag.Parse()

	if *ver {
		fmt.Printf("\nVersion:   %s\nShort SHA: %s\n\n", appVersion, shortSha)
		os.Exit(0)
	}

	configureLog()

	c, err := loadConfig()
	if err != nil {
		log.Errorf("Could not load config: %v", err)
		os.Exit(3)
	}
	cfg = c

	if err := collector.DiscoverDevices(cfg); err != nil {
		log.Errorf("Could not resolve SRV devices: %v", err)
		os.Exit(3)
	}

	startServer()
}

func configureLog() {
	ll, err := log.ParseLevel(*logLevel)
	if err != nil {
		panic(err)
	}

	log.SetLevel(ll)

	if *logFormat == "text" {
		log.SetFormatter(&log.TextFormatter{})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func loadConfig() (*config.Config, error) {
	if *configFile != "" {
		return loadConfigFromFile()
	}

	return loadConfigFromFlags()
}

func loadConfigFromFile() (*config.Config, error) {
	b, err := ioutil.ReadFile(*configFile)
	if err != nil {
		return nil, err
	}

	return config.Load(bytes.NewReader(b))
}

func loadConfigFromFlags() (*config.Config, error) {
	// Attempt to read credentials from env if not already defined
	if *user == "" {
		*user = os.Getenv("TOMATO_USER")
	}
	if *password == "" {
		*password = os.Getenv("TOMATO_PASSWORD")
	}
	if *device == "" || *address == "" || *user == "" || *password == "" {
		return nil, fmt.Errorf("missing required param for single device configuration")
	}

	return &config.Config{
		Devices: []*config.Device{
			{
				Name:     *device,
				Address:  *address,
				User:     *user,
				Password: *password,
				Port:     *deviceport,
			},
		},
	}, nil
}

func startServer() {
	h, err := createMetricsHandler()
	if err != nil {
		log.Fatal(err)
	}
	http.Handle(*metricsPath, h)

	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>
			<head><title>Tomato Exporter</title></head>
			<body>
			<h1>Tomato Exporter</h1>
			<p><a href="` + *metricsPath + `">Metrics</a></p>
			</body>
			</html>`))
	})

	log.Info("Listening on ", *port)
	log.Fatal(http.ListenAndServe(*port, nil))
}

func featureNames() []string {
	if *feats != "" {
		return strings.Split(*feats, ",")
	}
	if len(cfg.Features) > 0 {
		return cfg.FeatureNames()
	}
	return metrics.DefaultFeatures()
}

// createMetricsHandler builds the scrape endpoint. The collector and its
// registry are constructed per request: every scrape authenticates fresh
// and no session or sample state survives the response.
func createMetricsHandler() (http.Handler, error) {
	names := featureNames()
	if _, err := metrics.Registry.Load(names...); err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs, err := metrics.Registry.Load(names...)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		opts := []collector.Option{
			collector.WithMetrics(cs...),
			collector.WithContext(r.Context()),
		}

		if *timeout != collector.DefaultTimeout {
			opts = append(opts, collector.WithTimeout(*timeout))
		}

		if *tls {
			opts = append(opts, collector.WithTLS(*insecure))
		}

		nc, err := collector.NewCollector(cfg, opts...)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(version.NewCollector("tomato_exporter"))
		if err := registry.Register(nc); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		promhttp.HandlerFor(registry,
			promhttp.HandlerOpts{
				ErrorLog:      log.New(),
				ErrorHandling: promhttp.ContinueOnError,
			}).ServeHTTP(w, r)
	}), nil
}
