package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	TLS_DOMAINS  = "" // e.g. "example.com,example2.com"
	BIND_ADDRESS = "0.0.0.0:8080"
	DEBUG_MODE   = false
	MYSQL_DSN    = ""           // MySQL will be used if this is set
	SQLITE_FILE  = "gallery.db" // SQLite will be used if MYSQL_DSN is not configured
	// The owner bypasses all role checks. Matched case-insensitively against the identity headers
	OWNER_EMAIL    = ""
	OWNER_USERNAME = ""
	// Identity is supplied by a trusted authenticating proxy in front of the server (e.g. oauth2-proxy)
	AUTH_HEADER_EMAIL    = "X-Auth-Request-Email"
	AUTH_HEADER_NAME     = "X-Auth-Request-User"
	AUTH_HEADER_USERNAME = "X-Auth-Request-Preferred-Username"
	// Private bucket (Cloudflare R2 or any S3 compatible storage)
	R2_ENDPOINT          = ""
	R2_REGION            = "auto"
	R2_ACCESS_KEY_ID     = ""
	R2_SECRET_ACCESS_KEY = ""
	R2_BUCKET_NAME       = ""
	// Public bucket (Oracle Object Storage S3 compatibility API), objects readable anonymously
	ORACLE_ENDPOINT          = ""
	ORACLE_REGION            = ""
	ORACLE_ACCESS_KEY_ID     = ""
	ORACLE_SECRET_ACCESS_KEY = ""
	ORACLE_BUCKET_NAME       = ""
	// Used instead of the buckets above when they are not configured (development)
	LOCAL_STORAGE_DIR = "./data"
	LOCAL_PUBLIC_URL  = "/local"
	// Shared cache. An in-process cache is used when empty
	REDIS_ADDR     = ""
	REDIS_PASSWORD = ""
	REDIS_DB       = 0
	// Timeouts and limits
	UPLOAD_URL_TTL     = 10 * time.Minute
	DOWNLOAD_URL_TTL   = time.Hour
	STORAGE_TIMEOUT    = 30 * time.Second
	MAX_UPLOAD_SIZE_MB = 100
	DELETE_CONCURRENCY = 8
	// Logging
	LOG_LEVEL  = "info"
	LOG_FORMAT = "json" // or "console"
)

func init() {
	// A missing .env file is fine, the environment is used as is
	_ = godotenv.Load()

	readEnvString("TLS_DOMAINS", &TLS_DOMAINS)
	readEnvString("BIND_ADDRESS", &BIND_ADDRESS)
	readEnvBool("DEBUG_MODE", &DEBUG_MODE)
	readEnvString("MYSQL_DSN", &MYSQL_DSN)
	readEnvString("SQLITE_FILE", &SQLITE_FILE)
	readEnvString("OWNER_EMAIL", &OWNER_EMAIL)
	readEnvString("OWNER_USERNAME", &OWNER_USERNAME)
	readEnvString("AUTH_HEADER_EMAIL", &AUTH_HEADER_EMAIL)
	readEnvString("AUTH_HEADER_NAME", &AUTH_HEADER_NAME)
	readEnvString("AUTH_HEADER_USERNAME", &AUTH_HEADER_USERNAME)
	readEnvString("R2_ENDPOINT", &R2_ENDPOINT)
	readEnvString("R2_REGION", &R2_REGION)
	readEnvString("R2_ACCESS_KEY_ID", &R2_ACCESS_KEY_ID)
	readEnvString("R2_SECRET_ACCESS_KEY", &R2_SECRET_ACCESS_KEY)
	readEnvString("R2_BUCKET_NAME", &R2_BUCKET_NAME)
	readEnvString("ORACLE_ENDPOINT", &ORACLE_ENDPOINT)
	readEnvString("ORACLE_REGION", &ORACLE_REGION)
	readEnvString("ORACLE_ACCESS_KEY_ID", &ORACLE_ACCESS_KEY_ID)
	readEnvString("ORACLE_SECRET_ACCESS_KEY", &ORACLE_SECRET_ACCESS_KEY)
	readEnvString("ORACLE_BUCKET_NAME", &ORACLE_BUCKET_NAME)
	readEnvString("LOCAL_STORAGE_DIR", &LOCAL_STORAGE_DIR)
	readEnvString("LOCAL_PUBLIC_URL", &LOCAL_PUBLIC_URL)
	readEnvString("REDIS_ADDR", &REDIS_ADDR)
	readEnvString("REDIS_PASSWORD", &REDIS_PASSWORD)
	readEnvInt("REDIS_DB", &REDIS_DB)
	readEnvDuration("UPLOAD_URL_TTL", &UPLOAD_URL_TTL)
	readEnvDuration("DOWNLOAD_URL_TTL", &DOWNLOAD_URL_TTL)
	readEnvDuration("STORAGE_TIMEOUT", &STORAGE_TIMEOUT)
	readEnvInt("MAX_UPLOAD_SIZE_MB", &MAX_UPLOAD_SIZE_MB)
	readEnvInt("DELETE_CONCURRENCY", &DELETE_CONCURRENCY)
	readEnvString("LOG_LEVEL", &LOG_LEVEL)
	readEnvString("LOG_FORMAT", &LOG_FORMAT)
}

// IsOwner reports whether the given identity is the configured owner
func IsOwner(email, username string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.ToLower(strings.TrimSpace(username))
	ownerEmail := strings.ToLower(strings.TrimSpace(OWNER_EMAIL))
	ownerUsername := strings.ToLower(strings.TrimSpace(OWNER_USERNAME))
	if ownerEmail != "" && email == ownerEmail {
		return true
	}
	return ownerUsername != "" && username == ownerUsername
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = f
}

// readEnvDuration accepts Go durations ("90s", "10m") or plain seconds
func readEnvDuration(name string, value *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*value = d
		return
	}
	if s, err := strconv.Atoi(v); err == nil {
		*value = time.Duration(s) * time.Second
	}
}
