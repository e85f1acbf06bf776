package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Options struct {
	DatabasePath   string
	ServerURL      string
	Secret         string
	SyncWithServer bool
	SyncInterval   time.Duration
	RequestTimeout time.Duration
	CacheCapacity  int
	LogPath        string

	rest []string
}

// NewConfig parses flags from args (normally os.Args[1:]), then lets
// environment variables override the values. Anything after the flags is
// kept for the command dispatcher.
func NewConfig(args []string) *Options {
	fs := flag.NewFlagSet("rosterkeeper", flag.ExitOnError)
	databasePath := fs.String("databasePath", "", "sqlite database path")
	serverURL := fs.String("serverURL", "http://localhost:8080", "server URL")
	secret := fs.String("secret", "", "shared secret for the remote store")
	syncWithServer := fs.Bool("syncWithServer", false, "synchronize with server")
	syncInterval := fs.Duration("syncInterval", 5*time.Minute, "periodic sync interval")
	requestTimeout := fs.Duration("requestTimeout", 10*time.Second, "remote request timeout")
	cacheCapacity := fs.Int("cacheCapacity", 4096, "fast store entry capacity")
	logPath := fs.String("logPath", "log.txt", "log file path")

	fs.Parse(args)

	// Check if corresponding environment variables are set and override the values if present.
	if envDatabasePath, exists := os.LookupEnv("DATABASE_PATH"); exists {
		*databasePath = envDatabasePath
	}

	if envServerURL, exists := os.LookupEnv("SERVER_URL"); exists {
		*serverURL = envServerURL
	}

	if envSecret, exists := os.LookupEnv("ROSTER_SECRET"); exists {
		*secret = envSecret
	}

	if envSyncWithServer, exists := os.LookupEnv("SYNC_WITH_SERVER"); exists {
		if value, err := strconv.ParseBool(envSyncWithServer); err == nil {
			*syncWithServer = value
		}
	}

	if envSyncInterval, exists := os.LookupEnv("SYNC_INTERVAL"); exists {
		if value, err := time.ParseDuration(envSyncInterval); err == nil {
			*syncInterval = value
		}
	}

	if envRequestTimeout, exists := os.LookupEnv("REQUEST_TIMEOUT"); exists {
		if value, err := time.ParseDuration(envRequestTimeout); err == nil {
			*requestTimeout = value
		}
	}

	if envCacheCapacity, exists := os.LookupEnv("CACHE_CAPACITY"); exists {
		if value, err := strconv.Atoi(envCacheCapacity); err == nil {
			*cacheCapacity = value
		}
	}

	if envLogPath, exists := os.LookupEnv("LOG_PATH"); exists {
		*logPath = envLogPath
	}

	if *databasePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal(err)
		}
		dir := filepath.Join(home, "rosterkeeper")
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			err = os.Mkdir(dir, 0755)
			if err != nil {
				log.Fatal(err)
			}
		}
		*databasePath = filepath.Join(dir, "roster.db")
	}

	return &Options{
		DatabasePath:   *databasePath,
		ServerURL:      *serverURL,
		Secret:         *secret,
		SyncWithServer: *syncWithServer,
		SyncInterval:   *syncInterval,
		RequestTimeout: *requestTimeout,
		CacheCapacity:  *cacheCapacity,
		LogPath:        *logPath,
		rest:           append([]string{}, fs.Args()...),
	}
}

// Args returns the positional arguments left after flag parsing.
func (o *Options) Args() []string {
	return o.rest
}
