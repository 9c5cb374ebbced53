package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stakepit/internal/config"
)

var (
	sinkMu sync.Mutex
	sink   io.Writer = os.Stdout
)

// Init wires the global zerolog logger according to cfg. With LOG_FILE
// set, output goes to a size-capped file that truncates and restarts
// once it grows past LOG_MAX_MB.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var output io.Writer = os.Stdout
	if cfg.File != "" {
		if w, err := openCappedFile(cfg.File, cfg.MaxMB); err == nil {
			output = w
		}
	}
	setWriter(output)
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}

// Writer returns the raw sink Init selected, before any pretty
// wrapping. The HTTP request logger writes its JSON lines here so
// request logs land next to application logs.
func Writer() io.Writer {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	return sink
}

func setWriter(w io.Writer) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sink = w
}
