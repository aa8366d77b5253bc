package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/conftix/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		// Point the .env layer at a file that does not exist by default.
		_ = os.Setenv("CONFTIX_DOTENV", "")
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.AvatarMaxBytes, convey.ShouldEqual, 500_000)
				convey.So(cfg.CloudName, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CONFTIX_ADDR", ":8080")
			_ = os.Setenv("CONFTIX_CLOUD_NAME", "demo")
			_ = os.Setenv("CONFTIX_UPLOAD_PRESET", "tickets")
			_ = os.Setenv("CONFTIX_API_URL", "https://api.example.com/submit")
			_ = os.Setenv("CONFTIX_HANDLE_DEBOUNCE_MS", "250")
			_ = os.Setenv("CONFTIX_TICKET_TRUSTED_HOSTS", "cdn.example.com,assets.example.com")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.CloudName, convey.ShouldEqual, "demo")
				convey.So(cfg.UploadPreset, convey.ShouldEqual, "tickets")
				convey.So(cfg.APIURL, convey.ShouldEqual, "https://api.example.com/submit")
				convey.So(cfg.HandleDebounceMS, convey.ShouldEqual, 250)
				convey.So(cfg.TicketTrustedHosts, convey.ShouldResemble, []string{"cdn.example.com", "assets.example.com"})
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			path := writeTemp(t, "conftix-*.yaml", `
addr: ":9090"
worker_count: 3
avatar_max_bytes: 100000
event_location: "Lyon, FR"
`)
			_ = os.Setenv("CONFTIX_CONFIG", path)
			_ = os.Setenv("CONFTIX_WORKER_COUNT", "8")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over the file and the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.AvatarMaxBytes, convey.ShouldEqual, 100_000)
				convey.So(cfg.EventLocation, convey.ShouldEqual, "Lyon, FR")
				convey.So(cfg.AvatarQuality, convey.ShouldEqual, 70)
			})
		})

		convey.Convey("When loading config with a .env file", func() {
			path := writeTemp(t, "conftix-*.env", "CONFTIX_CLOUD_NAME=from-dotenv\nCONFTIX_API_URL=https://dotenv.example.com\n")
			_ = os.Setenv("CONFTIX_DOTENV", path)
			_ = os.Setenv("CONFTIX_API_URL", "https://env.example.com")

			cfg, err := config.Load(ctx)

			convey.Convey("Then dotenv fills gaps but real env vars win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.CloudName, convey.ShouldEqual, "from-dotenv")
				convey.So(cfg.APIURL, convey.ShouldEqual, "https://env.example.com")
			})
		})

		convey.Convey("When the explicit .env file is missing", func() {
			_ = os.Setenv("CONFTIX_DOTENV", filepath.Join(t.TempDir(), "missing.env"))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			path := writeTemp(t, "conftix-*.yaml", `invalid: yaml: content: [`)
			_ = os.Setenv("CONFTIX_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CONFTIX_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("CONFTIX_ADDR", "")
			path := writeTemp(t, "conftix-*.yaml", `addr: ""`)
			_ = os.Setenv("CONFTIX_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"CONFTIX_CONFIG",
		"CONFTIX_DOTENV",
		"CONFTIX_ADDR",
		"CONFTIX_WORKER_COUNT",
		"CONFTIX_QUEUE_SIZE",
		"CONFTIX_CLOUD_NAME",
		"CONFTIX_UPLOAD_PRESET",
		"CONFTIX_API_URL",
		"CONFTIX_HANDLE_DEBOUNCE_MS",
		"CONFTIX_TICKET_TRUSTED_HOSTS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}
