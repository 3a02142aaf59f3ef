package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/bonk/internal/adapters/http/api"
	"github.com/okian/bonk/internal/adapters/repository"
	app "github.com/okian/bonk/internal/app"
	"github.com/okian/bonk/internal/config"
	"github.com/okian/bonk/pkg/logger"
	"github.com/okian/bonk/pkg/metrics"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("BONK_ADDR", ":8080")
			_ = os.Setenv("BONK_QUEUE_SIZE", "1000")
			_ = os.Setenv("BONK_WORKER_COUNT", "4")
			_ = os.Setenv("BONK_STORE_DRIVER", "memory")
			defer func() {
				_ = os.Unsetenv("BONK_ADDR")
				_ = os.Unsetenv("BONK_QUEUE_SIZE")
				_ = os.Unsetenv("BONK_WORKER_COUNT")
				_ = os.Unsetenv("BONK_STORE_DRIVER")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, repository.DriverMemory)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				convey.So(app.New(), convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable from a config", func() {
				cfg := config.New()
				svc := newService(cfg, repository.NewMemoryStore(), api.NewBroadcaster(0), logger.Nop())
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.SlotCount(), convey.ShouldEqual, cfg.SlotCount)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})

			convey.Convey("And the configured refresh interval drives the pollers", func() {
				defer metrics.Init()
				cfg := config.New()
				cfg.MetricsRefreshMS = 20

				metrics.Init(metrics.WithRefreshInterval(cfg.MetricsRefresh()))
				convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 20*time.Millisecond)

				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()
				startSystemMetricsUpdater(ctx)

				w := httptest.NewRecorder()
				api.NewHealthHandler().HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "bonk_game_system_goroutine_count")
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := app.New()

			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing metrics updates", func() {
			svc := app.New()

			convey.Convey("Then they should not panic", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing logging setup", func() {
			defer func() {
				_ = logger.Init()
				_ = logger.SetLevelString("info")
			}()

			convey.Convey("Then a valid config applies cleanly", func() {
				cfg := config.New()
				cfg.LogLevel = "debug"
				convey.So(setupLogging(cfg), convey.ShouldBeNil)
			})

			convey.Convey("And an unknown level is reported", func() {
				cfg := config.New()
				cfg.LogLevel = "loud"
				convey.So(setupLogging(cfg), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		convey.Convey("When testing full application setup", func() {
			_ = logger.Init()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			cfg := config.New()
			cfg.StoreDriver = repository.DriverMemory
			cfg.WorkerCount = 2

			store, err := repository.Open(ctx, cfg.StoreDriver, cfg.DBPath)
			convey.So(err, convey.ShouldBeNil)

			events := api.NewBroadcaster(0)
			svc := newService(cfg, store, events, logger.Get())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			srv := httptest.NewServer(newMux(ctx, cfg, svc, events, logger.Get()))
			defer srv.Close()

			convey.Convey("Then the API, the page and the reference are all served", func() {
				for path, want := range map[string]string{
					"/game/state":   `"state":"idle"`,
					"/":             "<html",
					"/api-docs":     "redoc",
					"/openapi.yaml": "openapi:",
					"/leaderboard":  "No scores yet",
				} {
					resp, err := http.Get(srv.URL + path)
					convey.So(err, convey.ShouldBeNil)
					body := new(strings.Builder)
					_, _ = io.Copy(body, resp.Body)
					_ = resp.Body.Close()
					convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
					convey.So(strings.ToLower(body.String()), convey.ShouldContainSubstring, strings.ToLower(want))
				}
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("BONK_ADDR", "")
			defer func() { _ = os.Unsetenv("BONK_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing an unknown store driver", func() {
			_, err := repository.Open(context.Background(), "postgres", "")
			convey.So(errors.Is(err, repository.ErrUnknownDriver), convey.ShouldBeTrue)
		})

		convey.Convey("When testing service creation with extreme options", func() {
			svc := app.New(
				app.WithWorkerCount(0),
				app.WithQueueSize(0),
				app.WithDedupeSize(0),
			)
			convey.So(svc, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationResourceCleanup(t *testing.T) {
	convey.Convey("Given main application resource cleanup", t, func() {
		convey.Convey("When testing multiple service lifecycles", func() {
			convey.Convey("Then each service starts and stops cleanly", func() {
				for i := 0; i < 3; i++ {
					svc := app.New(app.WithStore(repository.NewMemoryStore()))
					convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
					convey.So(svc.GetStats()["started"], convey.ShouldEqual, true)
					svc.Stop()
				}
			})
		})
	})
}
