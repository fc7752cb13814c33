package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

const (
	BackendFirestore = "firestore"
	BackendFile      = "file"
)

type Config struct {
	Port             string
	DataDir          string
	StoreFile        string
	NoAuth           bool
	StoreBackend     string
	ProjectID        string
	ServiceAccount   string // inline JSON
	CredentialsFile  string
	AuthEmulatorHost string
	UsernameDebounce time.Duration
	AllowedOrigin    string
}

// Load reads the environment once at start-up.
func Load() (Config, error) {
	c := Config{
		Port:             envOr("PORT", "8088"),
		DataDir:          dataDir(),
		NoAuth:           NoAuth(),
		ProjectID:        os.Getenv("FIREBASE_PROJECT_ID"),
		ServiceAccount:   os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile:  os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		AuthEmulatorHost: os.Getenv("FIREBASE_AUTH_EMULATOR_HOST"),
		UsernameDebounce: 500 * time.Millisecond,
		AllowedOrigin:    envOr("CORS_ALLOWED_ORIGIN", "*"),
	}
	c.StoreFile = filepath.Join(c.DataDir, "gymmit.json")

	c.StoreBackend = strings.ToLower(os.Getenv("STORE_BACKEND"))
	if c.StoreBackend == "" {
		c.StoreBackend = BackendFirestore
		if c.NoAuth {
			c.StoreBackend = BackendFile
		}
	}
	if c.StoreBackend != BackendFirestore && c.StoreBackend != BackendFile {
		return Config{}, fmt.Errorf("STORE_BACKEND %q: want %s or %s", c.StoreBackend, BackendFirestore, BackendFile)
	}

	if v := os.Getenv("USERNAME_DEBOUNCE_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("USERNAME_DEBOUNCE_MS %q: want a positive integer", v)
		}
		c.UsernameDebounce = time.Duration(ms) * time.Millisecond
	}
	return c, nil
}

// NeedsFirebase reports whether the Firebase app must be built.
func (c Config) NeedsFirebase() bool {
	return !c.NoAuth || c.StoreBackend == BackendFirestore
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func dataDir() string {
	dir := os.Getenv("DATA_DIR")
	if dir == "" {
		dir = "/data"
		if _, err := os.Stat(dir); err != nil {
			dir = filepath.Join(".", "data")
		}
	}
	return dir
}

func EnsureDir(dir string) error { return os.MkdirAll(dir, 0o755) }

func NoAuth() bool { return os.Getenv("NO_AUTH") == "1" }

// NewFirebaseApp builds the app shared by the auth and Firestore clients.
func NewFirebaseApp(ctx context.Context, c Config) (*firebase.App, error) {
	if c.ProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID not set")
	}

	var opts []option.ClientOption
	switch {
	case c.ServiceAccount != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(c.ServiceAccount)))
	case c.CredentialsFile != "":
		if _, err := os.Stat(c.CredentialsFile); err != nil {
			return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS %q not readable: %w", c.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	case c.AuthEmulatorHost == "" && os.Getenv("FIRESTORE_EMULATOR_HOST") == "":
		return nil, errors.New("missing Firebase credentials: set FIREBASE_SERVICE_ACCOUNT_JSON or GOOGLE_APPLICATION_CREDENTIALS, or use an emulator / NO_AUTH=1")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: c.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	return app, nil
}
