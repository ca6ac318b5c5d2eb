package internal

import (
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/txsvc/stdlib/v2"
)

const (
	PROMETHEUS_HOST         = "prometheus_host"
	PROMETHEUS_METRICS_PATH = "prometheus_metrics_path"

	LOG_LEVEL         = "log_level"
	LOG_LEVEL_DEBUG   = "log_level_debug"
	LOG_FILE          = "log_file"
	LOG_FILE_MAX_SIZE = "log_file_max_size" // megabytes
	LOG_FILE_MAX_AGE  = "log_file_max_age"  // days
)

func StartPrometheusListener() {
	// prometheus endpoint setup
	promHost := stdlib.GetString(PROMETHEUS_HOST, "0.0.0.0:2112")
	promMetricsPath := stdlib.GetString(PROMETHEUS_METRICS_PATH, "/metrics")

	// start the metrics listener
	go func() {
		log.Debug().Str("host", promHost).Str("path", promMetricsPath).Msg("start metrics")

		mux := http.NewServeMux()
		mux.Handle(promMetricsPath, promhttp.Handler())
		if err := http.ListenAndServe(promHost, mux); err != nil {
			log.Error().Err(err).Msg("metrics listener stopped")
		}
	}()
}

// SetLogLevel configures the global zerolog logger from the environment.
func SetLogLevel() {
	zerolog.SetGlobalLevel(ParseLogLevel(stdlib.GetString(LOG_LEVEL, "info")))
	if GetBool(LOG_LEVEL_DEBUG, false) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if path := stdlib.GetString(LOG_FILE, ""); path != "" {
		log.Logger = zerolog.New(LogWriter(os.Stdout, path)).With().Timestamp().Logger()
	}
}

// LogWriter duplicates the log stream into a rotating file.
func LogWriter(out io.Writer, path string) io.Writer {
	rotating := &lumberjack.Logger{
		Filename: path,
		MaxSize:  int(stdlib.GetInt(LOG_FILE_MAX_SIZE, 100)),
		MaxAge:   int(stdlib.GetInt(LOG_FILE_MAX_AGE, 7)),
		Compress: true,
	}
	return zerolog.MultiLevelWriter(out, rotating)
}

func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Duration(d time.Duration, dicimal int) time.Duration {
	shift := int(math.Pow10(dicimal))

	units := []time.Duration{time.Second, time.Millisecond, time.Microsecond, time.Nanosecond}
	for _, u := range units {
		if d > u {
			div := u / time.Duration(shift)
			if div == 0 {
				break
			}
			d = d / div * div
			break
		}
	}
	return d
}

func XID() string {
	return xid.New().String()
}

// FIXME move this to stdlib
func GetBool(env string, def bool) bool {
	e, ok := os.LookupEnv(env)
	if !ok {
		return def
	}

	e = strings.ToLower(e)
	if e == "true" || e == "yes" || e == "1" {
		return true
	}
	return false
}
