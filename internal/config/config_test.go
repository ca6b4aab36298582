package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/jansou/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DatabasePath, convey.ShouldEqual, "jansou.db")
			convey.So(cfg.RedisAddr, convey.ShouldBeEmpty)
			convey.So(cfg.SessionsPageSize, convey.ShouldEqual, 10)
			convey.So(cfg.DefaultTargetPoint, convey.ShouldEqual, 30000)
			convey.So(cfg.DefaultStartPoint, convey.ShouldEqual, 30000)
			convey.So(cfg.DefaultUmaArray(), convey.ShouldResemble, [4]int{15, 5, -5, -15})
			convey.So(cfg.DefaultChomboEnabled, convey.ShouldBeTrue)
			convey.So(cfg.StandingsCacheTTL(), convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.WarmWorkers, convey.ShouldEqual, 2)
			convey.So(cfg.WarmQueueCapacity, convey.ShouldEqual, 1024)
		})

		convey.Convey("And the defaults validate", func() {
			convey.So(cfg.Validate(context.Background()), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given configs that break an invariant", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":           func(c *config.Config) { c.Addr = " " },
			"empty database path":  func(c *config.Config) { c.DatabasePath = "" },
			"three uma values":     func(c *config.Config) { c.DefaultUma = []int{10, 0, -10} },
			"zero page size":       func(c *config.Config) { c.SessionsPageSize = 0 },
			"unknown log format":   func(c *config.Config) { c.LogFormat = "xml" },
			"negative warm pool":   func(c *config.Config) { c.WarmWorkers = -1 },
			"zero warm queue size": func(c *config.Config) { c.WarmQueueCapacity = 0 },
		}

		for name, mutate := range cases {
			cfg := config.New(ctx)
			mutate(cfg)

			convey.Convey("Then validation fails for "+name, func() {
				err := cfg.Validate(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
