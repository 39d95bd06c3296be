package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/alecthomas/kingpin.v2"

	"git.lost.host/meutraa/bmsplay/internal/vfs"
)

const (
	CommandPlay = "play"
	CommandInfo = "info"
	CommandHash = "hash"
	CommandScan = "scan"
)

type Config struct {
	Command string

	LogLevel  string
	LogFormat string
	LogFile   string

	Charset    string
	Seed       uint64
	Workers    int
	SampleRate int
	Buffer     time.Duration
	Library    string
	S3         vfs.BucketConfig

	// play, info and hash
	Chart string

	// play
	Delay       time.Duration
	FramePeriod time.Duration
	Watch       bool
	Headless    bool

	// hash
	Algorithm string
	Encoding  string

	// scan
	Directory string
}

// New builds the command line. Every global flag can also be set from a
// BMSPLAY_ environment variable.
func New() (*kingpin.Application, *Config) {
	c := &Config{}
	app := kingpin.New("bmsplay", "BMS and bmson chart player")
	app.Version("0.2.0")

	app.Flag("log-level", "Log level").Default("info").Envar("BMSPLAY_LOG_LEVEL").EnumVar(&c.LogLevel, "debug", "info", "warn", "error")
	app.Flag("log-format", "Console log format").Default("console").Envar("BMSPLAY_LOG_FORMAT").EnumVar(&c.LogFormat, "console", "json")
	app.Flag("log-file", "Rotated log file").Envar("BMSPLAY_LOG_FILE").StringVar(&c.LogFile)
	app.Flag("charset", "Chart charset, auto detects UTF-8 and Shift_JIS").Default("auto").Envar("BMSPLAY_CHARSET").StringVar(&c.Charset)
	app.Flag("seed", "Seed for #RANDOM").Default("0").Envar("BMSPLAY_SEED").Uint64Var(&c.Seed)
	app.Flag("workers", "Parallel asset loads, 0 for one per CPU").Default("0").Envar("BMSPLAY_WORKERS").IntVar(&c.Workers)
	app.Flag("sample-rate", "Output sample rate").Default("44100").Envar("BMSPLAY_SAMPLE_RATE").IntVar(&c.SampleRate)
	app.Flag("buffer", "Output buffer length").Default("16ms").Envar("BMSPLAY_BUFFER").DurationVar(&c.Buffer)
	app.Flag("library", "Chart library database").Default("./library.db").Envar("BMSPLAY_LIBRARY").StringVar(&c.Library)

	app.Flag("s3-endpoint", "Object store endpoint for s3:// charts").Envar("BMSPLAY_S3_ENDPOINT").StringVar(&c.S3.Endpoint)
	app.Flag("s3-access-key", "Object store access key").Envar("BMSPLAY_S3_ACCESS_KEY").StringVar(&c.S3.AccessKey)
	app.Flag("s3-secret-key", "Object store secret key").Envar("BMSPLAY_S3_SECRET_KEY").StringVar(&c.S3.SecretKey)
	app.Flag("s3-region", "Object store region").Envar("BMSPLAY_S3_REGION").StringVar(&c.S3.Region)
	app.Flag("s3-ssl", "Use TLS for the object store").Default("true").Envar("BMSPLAY_S3_SSL").BoolVar(&c.S3.UseSSL)

	play := app.Command(CommandPlay, "Play a chart").Default()
	play.Arg("chart", "Chart file or s3:// url").Required().StringVar(&c.Chart)
	play.Flag("delay", "Start delay").Default("1.5s").Short('d').DurationVar(&c.Delay)
	play.Flag("frame-period", "Tick period").Default("4ms").Short('p').DurationVar(&c.FramePeriod)
	play.Flag("watch", "Reload the chart when its file changes").Short('w').BoolVar(&c.Watch)
	play.Flag("headless", "Do not draw or read the keyboard").BoolVar(&c.Headless)

	info := app.Command(CommandInfo, "Print chart details")
	info.Arg("chart", "Chart file or s3:// url").Required().StringVar(&c.Chart)

	hash := app.Command(CommandHash, "Print the content hash of a chart")
	hash.Arg("chart", "Chart file or s3:// url").Required().StringVar(&c.Chart)
	hash.Flag("algo", "Digest").Default("md5").EnumVar(&c.Algorithm, "md5", "sha1", "sha256", "sha512")
	hash.Flag("encoding", "Encoding the lines are hashed in").Default("utf-8").StringVar(&c.Encoding)

	scan := app.Command(CommandScan, "Index every chart below a directory")
	scan.Arg("directory", "Song directory").Required().ExistingDirVar(&c.Directory)

	return app, c
}

// Parse loads the env files, .env if none are given, then parses args.
// Missing env files are ignored.
func Parse(args []string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); nil != err && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	app, c := New()
	cmd, err := app.Parse(args)
	if nil != err {
		return nil, err
	}
	c.Command = cmd
	return c, nil
}
