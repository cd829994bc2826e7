package cfg

import (
	"testing"
	"time"

	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_USER", "vault")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "vault")
	t.Setenv("BUCKET_NAME", "digital-vault")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("KAFKA_TOPIC", "product-events")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, "minio:9000", cfg.Minio.MinioEndpoint)
	assert.Equal(t, "minio:9000", cfg.Minio.PublicEndpoint)
	assert.Equal(t, "products/previews", cfg.Minio.PreviewPrefix)
	assert.Equal(t, "products/files", cfg.Minio.AssetPrefix)
	assert.Equal(t, 11, cfg.Minio.UploadLimit)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "8080", cfg.Http.Port)
	assert.Equal(t, "8091", cfg.Grpc.Port)
	assert.Equal(t, 3*time.Minute, cfg.Redis.ProductTTL)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.GracePeriod)
	assert.Equal(t, "host=localhost port=5432 user=vault password=secret dbname=vault sslmode=disable", cfg.Db.DSN())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MINIO_PUBLIC_ENDPOINT", "cdn.example.com")
	t.Setenv("MINIO_PREVIEW_PREFIX", "/media/previews/")
	t.Setenv("SWEEP_GRACE_PERIOD", "2h")
	t.Setenv("SWEEP_DRY_RUN", "true")

	cfg, err := Load(logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, "cdn.example.com", cfg.Minio.PublicEndpoint)
	assert.Equal(t, "media/previews", cfg.Minio.PreviewPrefix)
	assert.Equal(t, 2*time.Hour, cfg.Sweep.GracePeriod)
	assert.True(t, cfg.Sweep.DryRun)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load(logger.Nop{})
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestParseIntEnv_Invalid(t *testing.T) {
	t.Setenv("SOME_INT", "ten")

	_, err := parseIntEnv("SOME_INT", 1)
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
}
